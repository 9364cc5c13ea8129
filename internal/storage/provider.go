// Package storage keeps journal archives: JSONL exports of the event log in
// a directory.
package storage

import "time"

// Archive describes one stored export.
type Archive struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for archive file operations.
type Provider interface {
	// List returns every archive under dir (relative to the root).
	List(dir string) ([]Archive, error)
	// Read returns the raw bytes of the archive at path (relative to the root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the root).
	Write(path string, content []byte) error
	// Delete removes the archive at path (relative to the root).
	Delete(path string) error
}

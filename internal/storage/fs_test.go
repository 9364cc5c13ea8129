package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/folio/internal/checksum"
)

func tempArchive(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempArchive(t)
	content := []byte(`{"sequence":1}` + "\n")
	if err := s.Write("journal.jsonl", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("journal.jsonl")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempArchive(t)
	if err := s.Write("2026/05/c.jsonl", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("2026/05/c.jsonl")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempArchive(t)
	_ = s.Write("del.jsonl", []byte("bye"))
	if err := s.Delete("del.jsonl"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.jsonl"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestList(t *testing.T) {
	s := tempArchive(t)
	_ = s.Write("b.jsonl", []byte("b"))
	_ = s.Write("sub/a.jsonl", []byte("a"))
	_ = s.Write("readme.txt", []byte("not an archive"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "b.jsonl" || items[1].Path != "sub/a.jsonl" {
		t.Errorf("paths = %s, %s", items[0].Path, items[1].Path)
	}
	if items[0].Checksum != checksum.Sum([]byte("b")) || items[0].Size != 1 {
		t.Errorf("item = %+v", items[0])
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempArchive(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.jsonl",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempArchive(t)
	_ = s.Write("atomic.jsonl", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.jsonl", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.jsonl")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".folio-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive", "nested")
	if _, err := NewFS(dir); err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("archive dir not created: %v", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "folio-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

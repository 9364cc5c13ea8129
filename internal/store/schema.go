// Package store is the SQLite medium behind the event log, plus the search
// read model kept next to it.
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS events (
	sequence  INTEGER PRIMARY KEY,
	entity_id TEXT    NOT NULL,
	kind      TEXT    NOT NULL,
	payload   TEXT    NOT NULL DEFAULT '{}',
	ts        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity_id);

CREATE TABLE IF NOT EXISTS search_docs (
	entry_id      TEXT PRIMARY KEY,
	collection_id TEXT NOT NULL DEFAULT '',
	type          TEXT NOT NULL,
	body          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS checkpoints (
	name     TEXT PRIMARY KEY,
	sequence INTEGER NOT NULL
);
`

// DB wraps a sql.DB holding the journal.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the SQLite database and applies the schema.
// Transactions take the write lock up front so that two processes cannot
// both pass the head check.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &DB{conn: conn, path: abs}, nil
}

// Path returns the absolute path of the database file.
func (db *DB) Path() string { return db.path }

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

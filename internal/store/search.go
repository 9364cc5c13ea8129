package store

import (
	"context"
	"database/sql"
	"fmt"
)

// DocOp is the kind of change applied to a search document.
type DocOp int

const (
	// DocUpsert replaces the whole document.
	DocUpsert DocOp = iota
	// DocBody replaces only the text.
	DocBody
	// DocMove replaces only the collection.
	DocMove
	// DocDelete removes the document.
	DocDelete
)

// DocChange is one change to the search documents.
type DocChange struct {
	Op           DocOp
	EntryID      string
	CollectionID string
	Type         string
	Body         string
}

// SearchResult represents one search hit.
type SearchResult struct {
	EntryID      string `json:"entry_id"`
	CollectionID string `json:"collection_id"`
	Type         string `json:"type"`
	Snippet      string `json:"snippet"`
}

// Checkpoint returns the last sequence recorded under name, or 0.
func (db *DB) Checkpoint(ctx context.Context, name string) (uint64, error) {
	var seq uint64
	err := db.conn.QueryRowContext(ctx, `SELECT sequence FROM checkpoints WHERE name = ?`, name).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: checkpoint %s: %w", name, err)
	}
	return seq, nil
}

// ApplyDocs applies changes and advances the named checkpoint to sequence in
// one transaction.
func (db *DB) ApplyDocs(ctx context.Context, checkpoint string, sequence uint64, changes []DocChange) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, c := range changes {
		if err := applyDoc(tx, c); err != nil {
			return err
		}
	}
	_, err = tx.Exec(`
		INSERT INTO checkpoints (name, sequence) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET sequence = excluded.sequence
	`, checkpoint, sequence)
	if err != nil {
		return fmt.Errorf("store: save checkpoint: %w", err)
	}
	return tx.Commit()
}

// ResetDocs drops every search document and the named checkpoint.
func (db *DB) ResetDocs(ctx context.Context, checkpoint string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM search_docs`); err != nil {
		return fmt.Errorf("store: reset docs: %w", err)
	}
	if err := ftsReset(tx); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM checkpoints WHERE name = ?`, checkpoint); err != nil {
		return fmt.Errorf("store: reset checkpoint: %w", err)
	}
	return tx.Commit()
}

func applyDoc(tx *sql.Tx, c DocChange) error {
	var err error
	switch c.Op {
	case DocUpsert:
		_, err = tx.Exec(`
			INSERT INTO search_docs (entry_id, collection_id, type, body)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(entry_id) DO UPDATE SET
				collection_id = excluded.collection_id,
				type          = excluded.type,
				body          = excluded.body
		`, c.EntryID, c.CollectionID, c.Type, c.Body)
	case DocBody:
		_, err = tx.Exec(`UPDATE search_docs SET body = ? WHERE entry_id = ?`, c.Body, c.EntryID)
	case DocMove:
		_, err = tx.Exec(`UPDATE search_docs SET collection_id = ? WHERE entry_id = ?`, c.CollectionID, c.EntryID)
	case DocDelete:
		_, err = tx.Exec(`DELETE FROM search_docs WHERE entry_id = ?`, c.EntryID)
	default:
		return fmt.Errorf("store: unknown doc op %d", c.Op)
	}
	if err != nil {
		return fmt.Errorf("store: apply doc %s: %w", c.EntryID, err)
	}
	return ftsSync(tx, c.EntryID)
}

//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS docs_fts USING fts5(
			entry_id UNINDEXED,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

// ftsSync mirrors the current search_docs row for entryID into docs_fts.
func ftsSync(tx *sql.Tx, entryID string) error {
	if _, err := tx.Exec(`DELETE FROM docs_fts WHERE entry_id = ?`, entryID); err != nil {
		return fmt.Errorf("store: delete fts: %w", err)
	}
	_, err := tx.Exec(`
		INSERT INTO docs_fts (entry_id, body)
		SELECT entry_id, body FROM search_docs WHERE entry_id = ?
	`, entryID)
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

func ftsReset(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM docs_fts`); err != nil {
		return fmt.Errorf("store: reset fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT d.entry_id,
		       d.collection_id,
		       d.type,
		       snippet(docs_fts, 1, '<b>', '</b>', '...', 32)
		FROM docs_fts
		JOIN search_docs d ON d.entry_id = docs_fts.entry_id
		WHERE docs_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.EntryID, &r.CollectionID, &r.Type, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

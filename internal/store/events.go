package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/eventlog"
)

var _ eventlog.Store = (*DB)(nil)

// Append inserts events in one transaction after checking that the stored
// head still equals expectedHead.
func (db *DB) Append(ctx context.Context, expectedHead uint64, events []eventlog.Event) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var head uint64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence), 0) FROM events`).Scan(&head); err != nil {
		return fmt.Errorf("store: read head: %w", err)
	}
	if head != expectedHead {
		return fmt.Errorf("%w: head is %d, expected %d", apperr.ErrConflict, head, expectedHead)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (sequence, entity_id, kind, payload, ts) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, ev := range events {
		payload := string(ev.Payload)
		if payload == "" {
			payload = "{}"
		}
		_, err := stmt.ExecContext(ctx, ev.Sequence, ev.EntityID, ev.Kind, payload, ev.Timestamp.UnixNano())
		if err != nil {
			var sqErr sqlite3.Error
			if errors.As(err, &sqErr) && sqErr.Code == sqlite3.ErrConstraint {
				return fmt.Errorf("%w: sequence %d already stored", apperr.ErrConflict, ev.Sequence)
			}
			return fmt.Errorf("store: insert event %d: %w", ev.Sequence, err)
		}
	}
	return tx.Commit()
}

// Load streams events with a sequence greater than after in ascending order.
func (db *DB) Load(ctx context.Context, after uint64, fn func(eventlog.Event) error) error {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT sequence, entity_id, kind, payload, ts
		FROM events
		WHERE sequence > ?
		ORDER BY sequence
	`, after)
	if err != nil {
		return fmt.Errorf("store: load: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ev      eventlog.Event
			payload string
			ts      int64
		)
		if err := rows.Scan(&ev.Sequence, &ev.EntityID, &ev.Kind, &payload, &ts); err != nil {
			return fmt.Errorf("store: scan event: %w", err)
		}
		ev.Payload = []byte(payload)
		ev.Timestamp = time.Unix(0, ts).UTC()
		if err := fn(ev); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Head returns the highest stored sequence, or 0 for an empty journal.
func (db *DB) Head(ctx context.Context) (uint64, error) {
	var head uint64
	if err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence), 0) FROM events`).Scan(&head); err != nil {
		return 0, fmt.Errorf("store: head: %w", err)
	}
	return head, nil
}

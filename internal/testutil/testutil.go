// Package testutil provides shared test helpers for setting up journals and databases.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/folio/internal/eventlog"
	"github.com/starford/folio/internal/journal"
	"github.com/starford/folio/internal/projection"
	"github.com/starford/folio/internal/store"
)

// Start is the first timestamp handed out by Clock.
var Start = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "folio-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Clock returns a clock that advances one minute per call.
func Clock() func() time.Time {
	var mu sync.Mutex
	now := Start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
}

// IDs returns a generator of "id-1", "id-2", ...
func IDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// Journal bundles a service with the log and projections behind it.
type Journal struct {
	*journal.Service
	Log   *eventlog.Log
	Views *projection.Set
}

// NewJournal returns a service over an in-memory log with deterministic
// clock and ids.
func NewJournal(t *testing.T) *Journal {
	t.Helper()
	return OpenJournal(t, eventlog.NewMemoryStore())
}

// OpenJournal returns a service over the given store.
func OpenJournal(t *testing.T, st eventlog.Store, extra ...projection.Projection) *Journal {
	t.Helper()
	ctx := context.Background()
	log, err := eventlog.Open(ctx, st, eventlog.WithClock(Clock()), eventlog.WithLogger(Logger()))
	if err != nil {
		t.Fatal(err)
	}
	views := projection.NewSet(extra...)
	detach, err := views.Attach(ctx, log)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(detach)
	svc := journal.New(log, views, journal.WithIDGenerator(IDs()), journal.WithLogger(Logger()))
	return &Journal{Service: svc, Log: log, Views: views}
}

package projection

import (
	"context"
	"log/slog"

	"github.com/starford/folio/internal/eventlog"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/store"
)

const searchCheckpoint = "search"

// DocStore is the part of store.DB the search projection writes to.
type DocStore interface {
	Checkpoint(ctx context.Context, name string) (uint64, error)
	ApplyDocs(ctx context.Context, checkpoint string, sequence uint64, changes []store.DocChange) error
	ResetDocs(ctx context.Context, checkpoint string) error
	Search(ctx context.Context, query string, limit int) ([]store.SearchResult, error)
}

// Search keeps the full-text documents of live entries in the database.
// Batches at or below the stored checkpoint are skipped, so a restart only
// replays what the documents have not seen. Changes of a batch the store
// failed to take are kept and written together with the next batch.
type Search struct {
	hub

	docs       DocStore
	logger     *slog.Logger
	checkpoint uint64

	pending     []store.DocChange
	pendingLast uint64
}

// NewSearch loads the checkpoint of docs.
func NewSearch(ctx context.Context, docs DocStore, logger *slog.Logger) (*Search, error) {
	cp, err := docs.Checkpoint(ctx, searchCheckpoint)
	if err != nil {
		return nil, err
	}
	return &Search{docs: docs, logger: logger, checkpoint: cp}, nil
}

// Reset drops every document so the next replay rebuilds them.
func (s *Search) Reset(ctx context.Context) error {
	if err := s.docs.ResetDocs(ctx, searchCheckpoint); err != nil {
		return err
	}
	s.checkpoint = 0
	s.pending, s.pendingLast = nil, 0
	return nil
}

func (s *Search) Apply(batch []eventlog.Event) {
	changes := s.pending
	last := max(s.checkpoint, s.pendingLast)
	for _, ev := range batch {
		if ev.Sequence <= last {
			continue
		}
		last = ev.Sequence
		if c, ok := docChange(ev); ok {
			changes = append(changes, c)
		}
	}
	if last == s.checkpoint {
		return
	}
	if err := s.docs.ApplyDocs(context.Background(), searchCheckpoint, last, changes); err != nil {
		s.logger.Warn("search: apply failed, retrying with the next batch",
			slog.Uint64("checkpoint", s.checkpoint),
			slog.Uint64("sequence", last),
			slog.String("error", err.Error()))
		s.pending, s.pendingLast = changes, last
		return
	}
	s.checkpoint = last
	s.pending, s.pendingLast = nil, 0
	s.publish(batch)
}

// Query runs a full-text search over entry text.
func (s *Search) Query(ctx context.Context, q string, limit int) ([]store.SearchResult, error) {
	return s.docs.Search(ctx, q, limit)
}

func docChange(ev eventlog.Event) (store.DocChange, bool) {
	c := store.DocChange{EntryID: ev.EntityID}
	switch ev.Kind {
	case models.KindEntryCreated:
		var p models.EntryCreated
		if ev.Decode(&p) != nil {
			return c, false
		}
		c.Op = store.DocUpsert
		c.CollectionID = p.CollectionID
		c.Type = string(p.Type)
		c.Body = p.Title
		if p.Type != models.TypeTask {
			c.Body = p.Content
		}
	case models.KindTaskTitleUpdated:
		var p models.TaskTitleUpdated
		if ev.Decode(&p) != nil {
			return c, false
		}
		c.Op = store.DocBody
		c.Body = p.Title
	case models.KindNoteContentUpdated, models.KindEventContentUpdated:
		var p models.ContentUpdated
		if ev.Decode(&p) != nil {
			return c, false
		}
		c.Op = store.DocBody
		c.Body = p.Content
	case models.KindEntryMigrated:
		var p models.EntryMigrated
		if ev.Decode(&p) != nil {
			return c, false
		}
		c.Op = store.DocMove
		c.CollectionID = p.To
	case models.KindEntryDeleted:
		c.Op = store.DocDelete
	default:
		return c, false
	}
	return c, true
}

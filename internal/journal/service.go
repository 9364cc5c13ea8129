// Package journal holds the command handlers. Every command validates against
// the current projections and, on success, appends exactly one batch.
package journal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/folio/internal/eventlog"
	"github.com/starford/folio/internal/projection"
)

// Text limits, counted in runes after trimming.
const (
	MaxTitleLength   = 500
	MaxContentLength = 5000
	MaxNameLength    = 200
)

// Service is the single writer of the journal.
type Service struct {
	mu     sync.Mutex
	log    *eventlog.Log
	views  *projection.Set
	newID  func() string
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for commits and rejected commands.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New returns a Service writing to log. views must already be attached to
// log so that every commit is visible to the next command.
func New(log *eventlog.Log, views *projection.Set, opts ...Option) *Service {
	s := &Service{
		log:    log,
		views:  views,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CatchUp applies events other processes appended to the store. It holds the
// command lock, so a command never validates against one view and commits
// on top of another.
func (s *Service) CatchUp(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.CatchUp(ctx)
}

// Views returns the projections the service validates against.
func (s *Service) Views() *projection.Set { return s.views }

// batch collects drafts for one commit.
type batch struct {
	drafts []eventlog.Draft
	err    error
}

func (b *batch) add(entityID, kind string, payload any) {
	if b.err != nil {
		return
	}
	d, err := eventlog.NewDraft(entityID, kind, payload)
	if err != nil {
		b.err = err
		return
	}
	b.drafts = append(b.drafts, d)
}

// commit appends b. An empty batch is a successful no-op.
func (s *Service) commit(ctx context.Context, op string, b *batch) error {
	if b.err != nil {
		return b.err
	}
	if len(b.drafts) == 0 {
		s.logger.Debug("journal: no-op", slog.String("op", op))
		return nil
	}
	r, err := s.log.Append(ctx, b.drafts)
	if err != nil {
		s.logger.Warn("journal: commit failed", slog.String("op", op), slog.String("error", err.Error()))
		return err
	}
	s.logger.Debug("journal: committed",
		slog.String("op", op),
		slog.Uint64("first", r.First),
		slog.Int("events", r.Len()))
	return nil
}

// rejected logs a refused command and passes err through.
func (s *Service) rejected(op string, err error) error {
	if err != nil {
		s.logger.Debug("journal: rejected", slog.String("op", op), slog.String("error", err.Error()))
	}
	return err
}

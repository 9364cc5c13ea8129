package eventlog

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrEmptyBatch is returned when Append is called without drafts.
	ErrEmptyBatch = errors.New("eventlog: empty batch")
	// ErrGap is returned when the store yields a non-contiguous sequence.
	ErrGap = errors.New("eventlog: sequence gap")

	errStop = errors.New("eventlog: iteration stopped")
)

// Listener receives every committed batch, in commit order.
type Listener func(batch []Event)

type subscription struct {
	id int
	fn Listener
}

// Log sequences drafts, persists them through a Store and fans committed
// batches out to listeners.
type Log struct {
	mu        sync.Mutex
	store     Store
	head      uint64
	listeners []subscription
	nextSub   int
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithLogger sets the logger used for commit diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// Open binds a Log to store, starting at the store's current head.
func Open(ctx context.Context, store Store, opts ...Option) (*Log, error) {
	l := &Log{
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	head, err := store.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("eventlog: read head: %w", err)
	}
	l.head = head
	return l, nil
}

// Sequence returns the sequence of the last committed event.
func (l *Log) Sequence() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head
}

// Append commits drafts as one atomic batch. Listeners run synchronously
// after the store accepted the batch and before Append returns, so they must
// not call Append themselves.
func (l *Log) Append(ctx context.Context, drafts []Draft) (Range, error) {
	if len(drafts) == 0 {
		return Range{}, ErrEmptyBatch
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().UTC()
	batch := make([]Event, len(drafts))
	for i, d := range drafts {
		batch[i] = Event{
			Sequence:  l.head + uint64(i) + 1,
			EntityID:  d.EntityID,
			Kind:      d.Kind,
			Payload:   d.Payload,
			Timestamp: ts,
		}
	}
	if err := l.store.Append(ctx, l.head, batch); err != nil {
		return Range{}, fmt.Errorf("eventlog: append: %w", err)
	}
	l.head = batch[len(batch)-1].Sequence
	l.logger.Debug("eventlog: committed",
		slog.Uint64("first", batch[0].Sequence),
		slog.Uint64("last", l.head),
		slog.String("kind", batch[0].Kind))

	l.notify(batch)
	return Range{First: batch[0].Sequence, Last: l.head}, nil
}

// CatchUp loads events another writer appended to the store since the last
// known head and hands them to listeners as one batch. It returns the number
// of events applied.
//
// Processes that also write through a journal.Service catch up through
// Service.CatchUp instead, which serializes with commands.
func (l *Log) CatchUp(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var batch []Event
	next := l.head + 1
	err := l.store.Load(ctx, l.head, func(ev Event) error {
		if ev.Sequence != next {
			return fmt.Errorf("%w: got %d, want %d", ErrGap, ev.Sequence, next)
		}
		next++
		batch = append(batch, ev)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("eventlog: catch up: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	l.head = batch[len(batch)-1].Sequence
	l.logger.Info("eventlog: caught up", slog.Int("events", len(batch)), slog.Uint64("head", l.head))
	l.notify(batch)
	return len(batch), nil
}

// Subscribe registers fn for future batches and returns a function that
// removes it again.
func (l *Log) Subscribe(fn Listener) (unsubscribe func()) {
	l.mu.Lock()
	id := l.addListener(fn)
	l.mu.Unlock()
	return l.unsubscriber(id)
}

func (l *Log) addListener(fn Listener) int {
	id := l.nextSub
	l.nextSub++
	l.listeners = append(l.listeners, subscription{id: id, fn: fn})
	return id
}

func (l *Log) unsubscriber(id int) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, s := range l.listeners {
				if s.id == id {
					l.listeners = append(l.listeners[:i:i], l.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Follow feeds the stored history up to the current head into fn, in batches
// of at most chunk events, and then subscribes fn. No commit can land between
// the replay and the subscription.
func (l *Log) Follow(ctx context.Context, chunk int, fn Listener) (unsubscribe func(), err error) {
	if chunk <= 0 {
		chunk = 512
	}

	l.mu.Lock()
	head := l.head
	batch := make([]Event, 0, chunk)
	next := uint64(1)
	err = l.store.Load(ctx, 0, func(ev Event) error {
		if ev.Sequence > head {
			return errStop
		}
		if ev.Sequence != next {
			return fmt.Errorf("%w: got %d, want %d", ErrGap, ev.Sequence, next)
		}
		next++
		batch = append(batch, ev)
		if len(batch) == chunk {
			fn(batch)
			batch = make([]Event, 0, chunk)
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		l.mu.Unlock()
		return nil, fmt.Errorf("eventlog: follow: %w", err)
	}
	if len(batch) > 0 {
		fn(batch)
	}
	id := l.addListener(fn)
	l.mu.Unlock()

	return l.unsubscriber(id), nil
}

// Replay yields every stored event in sequence order, stopping with ErrGap
// if the store skips a sequence.
func (l *Log) Replay(ctx context.Context) iter.Seq2[Event, error] {
	return l.ReplayFrom(ctx, 0)
}

// ReplayFrom is Replay restricted to sequences greater than after.
func (l *Log) ReplayFrom(ctx context.Context, after uint64) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		next := after + 1
		err := l.store.Load(ctx, after, func(ev Event) error {
			if ev.Sequence != next {
				return fmt.Errorf("%w: got %d, want %d", ErrGap, ev.Sequence, next)
			}
			next++
			if !yield(ev, nil) {
				return errStop
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStop) {
			yield(Event{}, err)
		}
	}
}

// notify must be called with l.mu held.
func (l *Log) notify(batch []Event) {
	for _, s := range l.listeners {
		s.fn(batch)
	}
}

package eventlog

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/folio/internal/apperr"
)

// MemoryStore keeps events in a slice. It is used by tests and by the
// verify command to replay into scratch projections.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore returns a store preloaded with events, which must already
// be sequenced from 1 without gaps.
func NewMemoryStore(events ...Event) *MemoryStore {
	return &MemoryStore{events: append([]Event(nil), events...)}
}

func (m *MemoryStore) Append(ctx context.Context, expectedHead uint64, events []Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if head := uint64(len(m.events)); head != expectedHead {
		return fmt.Errorf("%w: head is %d, expected %d", apperr.ErrConflict, head, expectedHead)
	}
	m.events = append(m.events, events...)
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, after uint64, fn func(Event) error) error {
	m.mu.RLock()
	var snapshot []Event
	if after < uint64(len(m.events)) {
		snapshot = append(snapshot, m.events[after:]...)
	}
	m.mu.RUnlock()

	for _, ev := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Head(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.events)), nil
}

var _ Store = (*MemoryStore)(nil)

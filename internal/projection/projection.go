// Package projection folds committed journal batches into in-memory read
// models. Projections never emit events.
package projection

import (
	"cmp"
	"sync"

	"github.com/starford/folio/internal/eventlog"
)

// Projection consumes committed batches in commit order. Events naming
// unknown entities are ignored.
type Projection interface {
	Apply(batch []eventlog.Event)
}

// hub is the listener list embedded by every projection.
type hub struct {
	mu   sync.Mutex
	next int
	subs []hubSub
}

type hubSub struct {
	id int
	fn func(batch []eventlog.Event)
}

// Subscribe registers fn to run after the projection applied a batch.
func (h *hub) Subscribe(fn func(batch []eventlog.Event)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs = append(h.subs, hubSub{id: id, fn: fn})
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subs {
			if s.id == id {
				h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
				return
			}
		}
	}
}

func (h *hub) publish(batch []eventlog.Event) {
	h.mu.Lock()
	subs := append([]hubSub(nil), h.subs...)
	h.mu.Unlock()
	for _, s := range subs {
		s.fn(batch)
	}
}

// byKey orders by order key and breaks ties by id.
func byKey(keyA, idA, keyB, idB string) int {
	if c := cmp.Compare(keyA, keyB); c != 0 {
		return c
	}
	return cmp.Compare(idA, idB)
}

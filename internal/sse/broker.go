// Package sse implements a Server-Sent Events broker for real-time updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/folio/internal/eventlog"
)

// Event types sent to clients.
const (
	TypeEntriesChanged     = "entries.changed"
	TypeCollectionsChanged = "collections.changed"
	TypeSynced             = "journal.synced"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Change is the payload of entries.changed and collections.changed.
type Change struct {
	Sequence uint64   `json:"sequence"`
	IDs      []string `json:"ids"`
}

// Synced is the payload of journal.synced.
type Synced struct {
	Sequence uint64 `json:"sequence"`
}

type batchReq struct {
	last        uint64
	entries     []string
	collections []string
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + sync throttle timestamp). Public methods communicate with this loop
// through channels, so no mutexes are required.
type Broker struct {
	syncMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	batchCh       chan batchReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given journal.synced throttle
// interval.
func NewBroker(syncThrottle time.Duration) *Broker {
	if syncThrottle <= 0 {
		syncThrottle = 2 * time.Second
	}

	b := &Broker{
		syncMin:       syncThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		batchCh:       make(chan batchReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastSync time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		msg := fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)
		raw := []byte(msg)

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.batchCh:
			if len(req.collections) > 0 {
				broadcast(Event{Type: TypeCollectionsChanged, Data: Change{Sequence: req.last, IDs: req.collections}})
			}
			if len(req.entries) > 0 {
				broadcast(Event{Type: TypeEntriesChanged, Data: Change{Sequence: req.last, IDs: req.entries}})
			}

			now := time.Now()
			if now.Sub(lastSync) >= b.syncMin {
				lastSync = now
				broadcast(Event{Type: TypeSynced, Data: Synced{Sequence: req.last}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishBatch announces a committed batch: which entries and collections it
// touched, plus a throttled journal.synced. It is shaped as an
// eventlog.Listener.
func (b *Broker) PublishBatch(batch []eventlog.Event) {
	if b.closed.Load() || len(batch) == 0 {
		return
	}
	req := batchReq{last: batch[len(batch)-1].Sequence}
	seenE := make(map[string]bool)
	seenC := make(map[string]bool)
	for _, ev := range batch {
		if strings.HasPrefix(ev.Kind, "collection.") {
			if !seenC[ev.EntityID] {
				seenC[ev.EntityID] = true
				req.collections = append(req.collections, ev.EntityID)
			}
			continue
		}
		if !seenE[ev.EntityID] {
			seenE[ev.EntityID] = true
			req.entries = append(req.entries, ev.EntityID)
		}
	}
	select {
	case b.batchCh <- req:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}

// Package eventlog is the append-only journal every projection is folded from.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event is one immutable record of the journal.
type Event struct {
	Sequence  uint64          `json:"sequence"`
	EntityID  string          `json:"entity_id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("eventlog: decode %s #%d: %w", e.Kind, e.Sequence, err)
	}
	return nil
}

// Draft is an event that has not been sequenced yet.
type Draft struct {
	EntityID string
	Kind     string
	Payload  json.RawMessage
}

// NewDraft encodes payload as JSON. A nil payload is stored as an empty
// object.
func NewDraft(entityID, kind string, payload any) (Draft, error) {
	d := Draft{EntityID: entityID, Kind: kind, Payload: json.RawMessage(`{}`)}
	if payload == nil {
		return d, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Draft{}, fmt.Errorf("eventlog: encode %s: %w", kind, err)
	}
	d.Payload = raw
	return d, nil
}

// Range is the inclusive span of sequences assigned to one batch.
type Range struct {
	First uint64
	Last  uint64
}

// Len returns the number of events in the range.
func (r Range) Len() int {
	if r.Last < r.First || r.Last == 0 {
		return 0
	}
	return int(r.Last - r.First + 1)
}

// Store is the durable medium behind a Log.
//
// Append must persist all events or none. It must fail with apperr.ErrConflict
// when the stored head differs from expectedHead. Load calls fn for every
// event with a sequence greater than after, in ascending order, and stops at
// the first error fn returns.
type Store interface {
	Append(ctx context.Context, expectedHead uint64, events []Event) error
	Load(ctx context.Context, after uint64, fn func(Event) error) error
	Head(ctx context.Context) (uint64, error)
}

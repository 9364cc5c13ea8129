// Package models defines the domain types for Folio.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntryType names the variant held by an Entry.
type EntryType string

// Entry variants.
const (
	TypeTask  EntryType = "task"
	TypeNote  EntryType = "note"
	TypeEvent EntryType = "event"
)

// TaskStatus is the completion state of a Task.
type TaskStatus string

// Task states.
const (
	StatusOpen      TaskStatus = "open"
	StatusCompleted TaskStatus = "completed"
)

// Body is the variant part of an Entry. The set of implementations is closed:
// Task, Note and Event.
type Body interface {
	Type() EntryType
	clone() Body
}

// Task is an actionable entry. A task with a ParentTaskID is a sub-task.
type Task struct {
	Title        string     `json:"title"`
	Status       TaskStatus `json:"status"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ParentTaskID string     `json:"parent_task_id,omitempty"`
}

// Note is a free-form text entry.
type Note struct {
	Content string `json:"content"`
}

// Event is an entry anchored to an optional date.
type Event struct {
	Content   string     `json:"content"`
	EventDate *time.Time `json:"event_date,omitempty"`
}

func (*Task) Type() EntryType  { return TypeTask }
func (*Note) Type() EntryType  { return TypeNote }
func (*Event) Type() EntryType { return TypeEvent }

func (t *Task) clone() Body {
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

func (n *Note) clone() Body {
	c := *n
	return &c
}

func (e *Event) clone() Body {
	c := *e
	if e.EventDate != nil {
		d := *e.EventDate
		c.EventDate = &d
	}
	return &c
}

// Ghost marks an entry left behind in its origin collection after the live
// entry was moved elsewhere.
type Ghost struct {
	EntryID        string `json:"entry_id"`
	ToCollectionID string `json:"to_collection_id,omitempty"`
}

// Membership is a secondary collection an entry is also shown in, together
// with its position there.
type Membership struct {
	CollectionID string `json:"collection_id"`
	OrderKey     string `json:"order_key"`
}

// Entry is a task, note or event. An empty CollectionID means uncategorized.
type Entry struct {
	ID           string
	CreatedAt    time.Time
	CollectionID string
	OrderKey     string
	Ghost        *Ghost
	Also         []Membership
	Body         Body
}

// Type returns the variant of the entry body.
func (e Entry) Type() EntryType {
	if e.Body == nil {
		return ""
	}
	return e.Body.Type()
}

// Task returns the task body when the entry is a task.
func (e Entry) Task() (*Task, bool) {
	t, ok := e.Body.(*Task)
	return t, ok
}

// IsGhost reports whether the entry is a ghost marker.
func (e Entry) IsGhost() bool { return e.Ghost != nil }

// IsSubTask reports whether the entry is a task with a parent.
func (e Entry) IsSubTask() bool {
	t, ok := e.Task()
	return ok && t.ParentTaskID != ""
}

// ParentTaskID returns the parent of a sub-task, or "".
func (e Entry) ParentTaskID() string {
	if t, ok := e.Task(); ok {
		return t.ParentTaskID
	}
	return ""
}

// Text returns the title of a task or the content of a note or event.
func (e Entry) Text() string {
	switch b := e.Body.(type) {
	case *Task:
		return b.Title
	case *Note:
		return b.Content
	case *Event:
		return b.Content
	case nil:
		return ""
	default:
		panic(fmt.Sprintf("models: unhandled entry body %T", b))
	}
}

// MemberOf reports whether the entry is shown in collectionID, either as its
// home or as a secondary membership.
func (e Entry) MemberOf(collectionID string) bool {
	if e.CollectionID == collectionID {
		return true
	}
	for _, m := range e.Also {
		if m.CollectionID == collectionID {
			return true
		}
	}
	return false
}

// KeyIn returns the order key of the entry inside collectionID.
func (e Entry) KeyIn(collectionID string) string {
	if e.CollectionID == collectionID {
		return e.OrderKey
	}
	for _, m := range e.Also {
		if m.CollectionID == collectionID {
			return m.OrderKey
		}
	}
	return ""
}

// Clone returns a deep copy that shares no mutable state with e.
func (e Entry) Clone() Entry {
	c := e
	if e.Ghost != nil {
		g := *e.Ghost
		c.Ghost = &g
	}
	if e.Also != nil {
		c.Also = append([]Membership(nil), e.Also...)
	}
	if e.Body != nil {
		c.Body = e.Body.clone()
	}
	return c
}

type entryJSON struct {
	ID           string       `json:"id"`
	Type         EntryType    `json:"type"`
	CreatedAt    time.Time    `json:"created_at"`
	CollectionID *string      `json:"collection_id"`
	OrderKey     string       `json:"order_key,omitempty"`
	Ghost        *Ghost       `json:"ghost,omitempty"`
	Also         []Membership `json:"also_in,omitempty"`
	Title        string       `json:"title,omitempty"`
	Status       TaskStatus   `json:"status,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	ParentTaskID string       `json:"parent_task_id,omitempty"`
	Content      string       `json:"content,omitempty"`
	EventDate    *time.Time   `json:"event_date,omitempty"`
}

// MarshalJSON flattens the body next to the common fields and tags it with
// its type.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := entryJSON{
		ID:        e.ID,
		Type:      e.Type(),
		CreatedAt: e.CreatedAt,
		OrderKey:  e.OrderKey,
		Ghost:     e.Ghost,
		Also:      e.Also,
	}
	if e.CollectionID != "" {
		id := e.CollectionID
		out.CollectionID = &id
	}
	switch b := e.Body.(type) {
	case *Task:
		out.Title = b.Title
		out.Status = b.Status
		out.CompletedAt = b.CompletedAt
		out.ParentTaskID = b.ParentTaskID
	case *Note:
		out.Content = b.Content
	case *Event:
		out.Content = b.Content
		out.EventDate = b.EventDate
	case nil:
	default:
		return nil, fmt.Errorf("models: unhandled entry body %T", b)
	}
	return json.Marshal(out)
}

package models

import "time"

// CollectionType classifies a collection.
type CollectionType string

// Collection types.
const (
	CollectionCustom  CollectionType = "custom"
	CollectionDaily   CollectionType = "daily"
	CollectionMonthly CollectionType = "monthly"
	CollectionFuture  CollectionType = "future"
	CollectionLog     CollectionType = "log"
)

// CollectionTypes lists every known collection type.
var CollectionTypes = []CollectionType{
	CollectionCustom, CollectionDaily, CollectionMonthly, CollectionFuture, CollectionLog,
}

// Completed-task placement values for CollectionSettings.
const (
	CompletedInline = "inline"
	CompletedBottom = "bottom"
	CompletedHidden = "hidden"
)

// CollectionSettings holds per-collection display preferences. It is always
// replaced as a whole.
type CollectionSettings struct {
	CompletedTasks string `json:"completed_tasks,omitempty"`
	CollapseNotes  bool   `json:"collapse_notes,omitempty"`
}

// Collection is a named, orderable grouping of entries.
type Collection struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Type       CollectionType      `json:"type"`
	OrderKey   string              `json:"order_key"`
	CreatedAt  time.Time           `json:"created_at"`
	IsFavorite bool                `json:"is_favorite"`
	Settings   *CollectionSettings `json:"settings,omitempty"`
	DeletedAt  *time.Time          `json:"deleted_at,omitempty"`
}

// Deleted reports whether the collection is tombstoned.
func (c Collection) Deleted() bool { return c.DeletedAt != nil }

// Clone returns a deep copy of c.
func (c Collection) Clone() Collection {
	out := c
	if c.Settings != nil {
		s := *c.Settings
		out.Settings = &s
	}
	if c.DeletedAt != nil {
		d := *c.DeletedAt
		out.DeletedAt = &d
	}
	return out
}

package models

import "time"

// Event kinds recorded in the journal. The entity id of an event is the
// collection or entry it concerns.
const (
	KindCollectionCreated         = "collection.created"
	KindCollectionRenamed         = "collection.renamed"
	KindCollectionDeleted         = "collection.deleted"
	KindCollectionRestored        = "collection.restored"
	KindCollectionSettingsUpdated = "collection.settings_updated"
	KindCollectionFavorited       = "collection.favorited"
	KindCollectionUnfavorited     = "collection.unfavorited"
	KindCollectionReordered       = "collection.reordered"

	KindEntryCreated        = "entry.created"
	KindEntryDeleted        = "entry.deleted"
	KindEntryOrderChanged   = "entry.order_changed"
	KindEntryMigrated       = "entry.migrated"
	KindEntryLinked         = "entry.linked"
	KindGhostCreated        = "ghost.created"
	KindTaskCompleted       = "task.completed"
	KindTaskReopened        = "task.reopened"
	KindTaskTitleUpdated    = "task.title_updated"
	KindNoteContentUpdated  = "note.content_updated"
	KindEventContentUpdated = "event.content_updated"
	KindEventDateUpdated    = "event.date_updated"
)

// CollectionCreated is the payload of KindCollectionCreated.
type CollectionCreated struct {
	Name     string         `json:"name"`
	Type     CollectionType `json:"type"`
	OrderKey string         `json:"order_key"`
}

type CollectionRenamed struct {
	Name string `json:"name"`
}

type CollectionSettingsUpdated struct {
	Settings *CollectionSettings `json:"settings"`
}

type CollectionReordered struct {
	OrderKey string `json:"order_key"`
}

// EntryCreated carries the full initial state of an entry. Title is used by
// tasks, Content by notes and events.
type EntryCreated struct {
	Type         EntryType  `json:"type"`
	CollectionID string     `json:"collection_id,omitempty"`
	OrderKey     string     `json:"order_key"`
	Title        string     `json:"title,omitempty"`
	Content      string     `json:"content,omitempty"`
	EventDate    *time.Time `json:"event_date,omitempty"`
	ParentTaskID string     `json:"parent_task_id,omitempty"`
}

// EntryOrderChanged moves an entry within one of its collections.
type EntryOrderChanged struct {
	CollectionID string `json:"collection_id,omitempty"`
	OrderKey     string `json:"order_key"`
}

// EntryMigrated relocates an entry. OrderKey is its key in To.
type EntryMigrated struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	OrderKey string `json:"order_key"`
}

// EntryLinked adds a secondary membership.
type EntryLinked struct {
	CollectionID string `json:"collection_id"`
	OrderKey     string `json:"order_key"`
}

// GhostCreated records a ghost left behind in From. The event entity id is
// the ghost's own id; EntryID points at the live entry.
type GhostCreated struct {
	EntryID  string `json:"entry_id"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	OrderKey string `json:"order_key"`
}

type TaskTitleUpdated struct {
	Title string `json:"title"`
}

// ContentUpdated is shared by note and event content changes.
type ContentUpdated struct {
	Content string `json:"content"`
}

type EventDateUpdated struct {
	EventDate *time.Time `json:"event_date"`
}

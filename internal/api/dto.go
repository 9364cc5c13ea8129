package api

import (
	"time"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/projection"
	"github.com/starford/folio/internal/store"
)

// IDResponse is returned after creating an entity.
type IDResponse struct {
	ID string `json:"id" example:"3f6c0b8e-5a43-4d0f-9a55-5d8f1c0c2a11" validate:"required"`
}

// CollectionListResponse wraps collection listings.
type CollectionListResponse struct {
	Collections []models.Collection `json:"collections" validate:"required"`
}

// EntryListResponse wraps the entries of one collection.
type EntryListResponse struct {
	CollectionID string         `json:"collection_id"`
	Entries      []models.Entry `json:"entries" validate:"required"`
}

// CreateEntryRequest creates a task, note, event or sub-task. Text is the
// title of a task and the content of a note or event.
type CreateEntryRequest struct {
	Type         models.EntryType `json:"type" example:"task" validate:"required"`
	CollectionID string           `json:"collection_id"`
	ParentTaskID string           `json:"parent_task_id"`
	Text         string           `json:"text" example:"Buy milk" validate:"required"`
	EventDate    *time.Time       `json:"event_date"`
}

// TextRequest replaces the text of an entry.
type TextRequest struct {
	Text string `json:"text" validate:"required"`
}

// EventDateRequest replaces or clears the date of an event.
type EventDateRequest struct {
	EventDate *time.Time `json:"event_date"`
}

// NameRequest renames a collection.
type NameRequest struct {
	Name string `json:"name" validate:"required"`
}

// SettingsRequest replaces collection settings.
type SettingsRequest struct {
	Settings *models.CollectionSettings `json:"settings"`
}

// ReorderRequest names the new neighbours of an entry or collection.
type ReorderRequest struct {
	PreviousID   string `json:"previous_id"`
	NextID       string `json:"next_id"`
	CollectionID string `json:"collection_id,omitempty"`
}

// MigrateRequest migrates one entry or, with EntryIDs, several.
type MigrateRequest struct {
	EntryID            string   `json:"entry_id"`
	EntryIDs           []string `json:"entry_ids"`
	TargetCollectionID string   `json:"target_collection_id"`
	Mode               string   `json:"mode" example:"move"`
}

// BulkMigrateResponse lists the migrated entries.
type BulkMigrateResponse struct {
	Migrated []string `json:"migrated" validate:"required"`
}

// BulkMigrateFailure reports how far a bulk migration got.
type BulkMigrateFailure struct {
	Error        string   `json:"error" validate:"required"`
	Failed       string   `json:"failed"`
	Migrated     []string `json:"migrated"`
	NotAttempted []string `json:"not_attempted"`
}

// SubTasksResponse lists the sub-tasks of a task with their completion.
type SubTasksResponse struct {
	SubTasks []models.Entry              `json:"subtasks" validate:"required"`
	Status   projection.CompletionStatus `json:"status"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = store.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

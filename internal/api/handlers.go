package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/journal"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/projection"
	"github.com/starford/folio/internal/store"
)

// Searcher runs full-text queries over entry text.
type Searcher interface {
	Query(ctx context.Context, q string, limit int) ([]store.SearchResult, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *journal.Service
	views  *projection.Set
	search Searcher
}

// NewHandler creates a new Handler. search may be nil, in which case
// GET /search answers 503.
func NewHandler(svc *journal.Service, search Searcher) *Handler {
	return &Handler{svc: svc, views: svc.Views(), search: search}
}

// ListCollections handles GET /api/collections.
//
//	@Summary		List collections
//	@Tags			collections
//	@Produce		json
//	@Param			view	query		string	false	"Which collections"	Enums(active, favorites, deleted)
//	@Success		200		{object}	CollectionListResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections [get]
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	var list []models.Collection
	switch view := r.URL.Query().Get("view"); view {
	case "", "active":
		list = h.views.Collections.Active()
	case "favorites":
		list = h.views.Collections.Favorites()
	case "deleted":
		list = h.views.Collections.Deleted()
	default:
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("unknown view "+strconv.Quote(view)))
		return
	}
	writeJSON(w, http.StatusOK, CollectionListResponse{Collections: nonNil(list)})
}

// CreateCollection handles POST /api/collections.
//
//	@Summary		Create a collection
//	@Tags			collections
//	@Accept			json
//	@Produce		json
//	@Param			body	body		journal.CreateCollectionInput	true	"Collection to create"
//	@Success		201		{object}	IDResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections [post]
func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var in journal.CreateCollectionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	id, err := h.svc.CreateCollection(r.Context(), in)
	if err != nil {
		writeError(w, "create collection", err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// GetCollection handles GET /api/collections/{id}. Deleted collections are
// returned too.
func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	c, ok := h.views.Collections.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// RenameCollection handles PUT /api/collections/{id}/name.
func (h *Handler) RenameCollection(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := journal.RenameCollectionInput{CollectionID: chi.URLParam(r, "id"), Name: req.Name}
	if err := h.svc.RenameCollection(r.Context(), in); err != nil {
		writeError(w, "rename collection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCollection handles DELETE /api/collections/{id}.
//
//	@Summary		Soft-delete a collection
//	@Tags			collections
//	@Param			id	path	string	true	"Collection id"
//	@Success		204	"Collection deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{id} [delete]
func (h *Handler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCollection(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete collection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreCollection handles POST /api/collections/{id}/restore.
func (h *Handler) RestoreCollection(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RestoreCollection(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "restore collection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateCollectionSettings handles PUT /api/collections/{id}/settings.
func (h *Handler) UpdateCollectionSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := journal.SettingsInput{CollectionID: chi.URLParam(r, "id"), Settings: req.Settings}
	if err := h.svc.UpdateCollectionSettings(r.Context(), in); err != nil {
		writeError(w, "update collection settings", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FavoriteCollection handles PUT and DELETE /api/collections/{id}/favorite.
func (h *Handler) FavoriteCollection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var err error
	if r.Method == http.MethodDelete {
		err = h.svc.UnfavoriteCollection(r.Context(), id)
	} else {
		err = h.svc.FavoriteCollection(r.Context(), id)
	}
	if err != nil {
		writeError(w, "favorite collection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderCollection handles POST /api/collections/{id}/reorder.
func (h *Handler) ReorderCollection(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := journal.ReorderCollectionInput{
		CollectionID: chi.URLParam(r, "id"),
		PreviousID:   req.PreviousID,
		NextID:       req.NextID,
	}
	if err := h.svc.ReorderCollection(r.Context(), in); err != nil {
		writeError(w, "reorder collection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEntries handles GET /api/entries.
//
//	@Summary		List the entries of a collection
//	@Tags			entries
//	@Produce		json
//	@Param			collection_id	query		string	false	"Collection id; empty for uncategorized"
//	@Param			ghosts			query		bool	false	"Interleave ghosts left by migrations"
//	@Success		200				{object}	EntryListResponse
//	@Security		BearerAuth
//	@Router			/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	collectionID := q.Get("collection_id")
	ghosts, _ := strconv.ParseBool(q.Get("ghosts"))

	var list []models.Entry
	if ghosts {
		list = h.views.Entries.Timeline(collectionID)
	} else {
		list = h.views.Entries.ByCollection(collectionID)
	}
	writeJSON(w, http.StatusOK, EntryListResponse{CollectionID: collectionID, Entries: nonNil(list)})
}

// CreateEntry handles POST /api/entries.
//
//	@Summary		Create a task, note, event or sub-task
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateEntryRequest	true	"Entry to create"
//	@Success		201		{object}	IDResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries [post]
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	var (
		id  string
		err error
	)
	switch {
	case req.ParentTaskID != "":
		if req.Type != "" && req.Type != models.TypeTask {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody("only tasks can have a parent task"))
			return
		}
		id, err = h.svc.CreateSubTask(ctx, journal.CreateSubTaskInput{ParentTaskID: req.ParentTaskID, Title: req.Text})
	case req.Type == models.TypeTask:
		id, err = h.svc.CreateTask(ctx, journal.CreateTaskInput{CollectionID: req.CollectionID, Title: req.Text})
	case req.Type == models.TypeNote:
		id, err = h.svc.CreateNote(ctx, journal.CreateNoteInput{CollectionID: req.CollectionID, Content: req.Text})
	case req.Type == models.TypeEvent:
		id, err = h.svc.CreateEvent(ctx, journal.CreateEventInput{
			CollectionID: req.CollectionID,
			Content:      req.Text,
			EventDate:    req.EventDate,
		})
	default:
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("type must be task, note or event"))
		return
	}
	if err != nil {
		writeError(w, "create entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// GetEntry handles GET /api/entries/{id}.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := h.views.Entries.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// UpdateEntryText handles PUT /api/entries/{id}/text. The command is picked
// from the entry's type.
func (h *Handler) UpdateEntryText(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	e, ok := h.views.Entries.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}

	in := journal.EditTextInput{EntryID: id, Text: req.Text}
	var err error
	switch e.Type() {
	case models.TypeTask:
		err = h.svc.UpdateTaskTitle(r.Context(), in)
	case models.TypeNote:
		err = h.svc.UpdateNoteContent(r.Context(), in)
	case models.TypeEvent:
		err = h.svc.UpdateEventContent(r.Context(), in)
	}
	if err != nil {
		writeError(w, "update entry text", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateEventDate handles PUT /api/entries/{id}/event-date.
func (h *Handler) UpdateEventDate(w http.ResponseWriter, r *http.Request) {
	var req EventDateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := journal.EventDateInput{EntryID: chi.URLParam(r, "id"), EventDate: req.EventDate}
	if err := h.svc.UpdateEventDate(r.Context(), in); err != nil {
		writeError(w, "update event date", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteEntry handles DELETE /api/entries/{id}. A task that has sub-tasks is
// refused with 409 unless ?cascade=true is given, which deletes it together
// with its sub-tasks. Ghosts of the entry are removed with it.
//
//	@Summary		Delete an entry or a ghost
//	@Tags			entries
//	@Param			id		path	string	true	"Entry id"
//	@Param			cascade	query	bool	false	"Delete sub-tasks too"
//	@Success		204		"Entry deleted"
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id} [delete]
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var err error
	if cascade, _ := strconv.ParseBool(r.URL.Query().Get("cascade")); cascade {
		err = h.svc.DeleteParentTask(r.Context(), id)
	} else {
		err = h.svc.DeleteEntry(r.Context(), id)
	}
	if err != nil {
		writeError(w, "delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderEntry handles POST /api/entries/{id}/reorder.
func (h *Handler) ReorderEntry(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := journal.ReorderInput{
		EntryID:      chi.URLParam(r, "id"),
		PreviousID:   req.PreviousID,
		NextID:       req.NextID,
		CollectionID: req.CollectionID,
	}
	if err := h.svc.Reorder(r.Context(), in); err != nil {
		writeError(w, "reorder entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask handles POST /api/tasks/{id}/complete. A task with open
// sub-tasks is refused with 409 unless ?cascade=true is given, which completes
// the open sub-tasks in the same batch.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var err error
	if cascade, _ := strconv.ParseBool(r.URL.Query().Get("cascade")); cascade {
		err = h.svc.CompleteParentTask(r.Context(), id)
	} else {
		err = h.svc.CompleteTask(r.Context(), id)
	}
	if err != nil {
		writeError(w, "complete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReopenTask handles POST /api/tasks/{id}/reopen.
func (h *Handler) ReopenTask(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ReopenTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "reopen task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubTasks handles GET /api/tasks/{id}/subtasks.
func (h *Handler) SubTasks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.views.Tasks.Get(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, SubTasksResponse{
		SubTasks: nonNil(h.views.Tasks.SubTasks(id)),
		Status:   h.views.Tasks.CompletionStatus(id),
	})
}

// Migrate handles POST /api/migrate.
//
//	@Summary		Migrate one or more entries to another collection
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MigrateRequest	true	"Entries and target"
//	@Success		200		{object}	journal.MigrateResult
//	@Success		200		{object}	BulkMigrateResponse
//	@Failure		404		{object}	BulkMigrateFailure
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/migrate [post]
func (h *Handler) Migrate(w http.ResponseWriter, r *http.Request) {
	var req MigrateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode := journal.MigrateMode(req.Mode)

	if len(req.EntryIDs) > 0 {
		migrated, err := h.svc.BulkMigrate(r.Context(), journal.BulkMigrateInput{
			EntryIDs:           req.EntryIDs,
			TargetCollectionID: req.TargetCollectionID,
			Mode:               mode,
		})
		if err != nil {
			writeError(w, "bulk migrate", err)
			return
		}
		writeJSON(w, http.StatusOK, BulkMigrateResponse{Migrated: migrated})
		return
	}

	res, err := h.svc.Migrate(r.Context(), journal.MigrateInput{
		EntryID:            req.EntryID,
		TargetCollectionID: req.TargetCollectionID,
		Mode:               mode,
	})
	if err != nil {
		writeError(w, "migrate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Capture handles POST /api/capture.
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	var in journal.CaptureInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.svc.Capture(r.Context(), in)
	if err != nil {
		writeError(w, "capture", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across entries
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("search is not available"))
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.search.Query(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: nonNil(results)})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

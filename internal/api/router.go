package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/journal"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// search may be nil when no search projection is running.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *journal.Service, search Searcher, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, search)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/collections", func(r chi.Router) {
		r.Get("/", h.ListCollections)
		r.Post("/", h.CreateCollection)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetCollection)
			r.Delete("/", h.DeleteCollection)
			r.Put("/name", h.RenameCollection)
			r.Put("/settings", h.UpdateCollectionSettings)
			r.Put("/favorite", h.FavoriteCollection)
			r.Delete("/favorite", h.FavoriteCollection)
			r.Post("/restore", h.RestoreCollection)
			r.Post("/reorder", h.ReorderCollection)
		})
	})

	r.Route("/entries", func(r chi.Router) {
		r.Get("/", h.ListEntries)
		r.Post("/", h.CreateEntry)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetEntry)
			r.Delete("/", h.DeleteEntry)
			r.Put("/text", h.UpdateEntryText)
			r.Put("/event-date", h.UpdateEventDate)
			r.Post("/reorder", h.ReorderEntry)
		})
	})

	r.Route("/tasks/{id}", func(r chi.Router) {
		r.Post("/complete", h.CompleteTask)
		r.Post("/reopen", h.ReopenTask)
		r.Get("/subtasks", h.SubTasks)
	})

	r.Post("/migrate", h.Migrate)
	r.Post("/capture", h.Capture)
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

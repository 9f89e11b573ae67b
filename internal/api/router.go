package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/laguz/internal/loreservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *loreservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Records.
	r.Post("/records", h.UpsertRecord)
	r.Get("/records", h.ListRecords)
	r.Get("/records/{id}", h.GetRecord)
	r.Post("/records/{id}/archive", h.ArchiveRecord)
	r.Post("/records/{id}/restore", h.RestoreRecord)
	r.Delete("/records/{id}", h.DeleteRecord)

	// Per-file views and location tracking.
	r.Get("/files/*", h.FileRecords)
	r.Post("/documents/changed", h.DocumentChanged)

	// Search.
	r.Get("/search", h.Search)

	// Store maintenance.
	r.Post("/store/reinit", h.ReinitStore)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

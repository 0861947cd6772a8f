package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/cmsloader/internal/contentservice"
)

// NewRouter creates a chi router with all API routes mounted.
// Reads are public; authEnabled guards only cache invalidation.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *contentservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	r.Get("/collections", h.ListCollections)
	r.Get("/collections/{name}", h.GetCollection)
	r.Get("/collections/{name}/records/{filename}", h.GetRecord)
	r.With(AuthMiddleware(authEnabled, token)).Delete("/collections/{name}/cache", h.InvalidateCache)

	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/cmsloader/internal/checksum"
	"github.com/starford/cmsloader/internal/contentservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *contentservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *contentservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListCollections handles GET /api/collections.
func (h *Handler) ListCollections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CollectionsResponse{Collections: h.svc.Collections()})
}

// GetCollection handles GET /api/collections/{name}.
//
// An empty collection is a normal 200 response: it means the content is
// unavailable right now, and the caller picks what to show instead.
func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	page, err := h.svc.Collection(r.Context(), name, limit, offset)
	if err != nil {
		h.fail(w, err, "get collection failed", slog.String("collection", name))
		return
	}

	sums := make([]string, 0, len(page.Records))
	for _, rec := range page.Records {
		sums = append(sums, rec.Checksum())
	}
	etag := checksum.ETag(checksum.Sum([]byte(strings.Join(sums, ","))))
	if notModified(w, r, etag) {
		return
	}
	writeJSON(w, http.StatusOK, CollectionResponse{
		Collection: page.Collection,
		Records:    page.Records,
		Total:      page.Total,
	})
}

// GetRecord handles GET /api/collections/{name}/records/{filename}.
// ?format=html adds the rendered body.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	filename := chi.URLParam(r, "filename")

	rec, err := h.svc.Record(r.Context(), name, filename)
	if err != nil {
		h.fail(w, err, "get record failed", slog.String("collection", name), slog.String("file", filename))
		return
	}
	if notModified(w, r, checksum.ETag(rec.Checksum())) {
		return
	}

	resp := RecordResponse{
		Collection: name,
		Record:     rec,
		Slug:       rec.Slug(),
		Date:       rec.Date(),
		Image:      rec.ImagePath("image"),
		Checksum:   rec.Checksum(),
	}
	if r.URL.Query().Get("format") == "html" {
		html, err := h.svc.RenderBody(rec)
		if err != nil {
			h.fail(w, err, "render failed", slog.String("file", filename))
			return
		}
		resp.BodyHTML = html
	}
	writeJSON(w, http.StatusOK, resp)
}

// InvalidateCache handles DELETE /api/collections/{name}/cache.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.svc.Known(name) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, InvalidateResponse{Collection: name, Dropped: h.svc.Invalidate(name)})
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		h.fail(w, err, "search failed", slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string, attrs ...any) {
	status, text := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("api: "+msg, append(attrs, slog.String("error", err.Error()))...)
	}
	writeError(w, status, text)
}

// notModified sets ETag and answers 304 when the client already has it.
func notModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	w.Header().Set("ETag", etag)
	if inm := r.Header.Get("If-None-Match"); inm != "" && checksum.Matches(inm, strings.Trim(etag, `"`)) {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

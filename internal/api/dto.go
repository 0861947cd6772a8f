package api

import (
	"github.com/starford/cmsloader/internal/index"
	"github.com/starford/cmsloader/internal/models"
)

// CollectionsResponse lists the exposed collections.
type CollectionsResponse struct {
	Collections []string `json:"collections"`
}

// CollectionResponse is one page of a collection.
type CollectionResponse struct {
	Collection string            `json:"collection"`
	Records    models.Collection `json:"records"`
	Total      int               `json:"total"`
}

// RecordResponse is a single record with derived fields.
type RecordResponse struct {
	Collection string        `json:"collection"`
	Record     models.Record `json:"record"`
	Slug       string        `json:"slug"`
	Date       string        `json:"date,omitempty"`
	Image      string        `json:"image"`
	Checksum   string        `json:"checksum"`
	BodyHTML   string        `json:"body_html,omitempty"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}

// InvalidateResponse reports a cache invalidation.
type InvalidateResponse struct {
	Collection string `json:"collection"`
	Dropped    bool   `json:"dropped"`
}

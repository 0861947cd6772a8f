// Package contentservice is the read-side facade used by the HTTP API and the
// MCP server. It shares concurrent loads of the same collection, keeps the
// search index in step with fresh loads and renders record bodies to HTML.
package contentservice

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"golang.org/x/sync/singleflight"

	"github.com/starford/cmsloader/internal/apperr"
	"github.com/starford/cmsloader/internal/index"
	"github.com/starford/cmsloader/internal/models"
)

// Loader loads one collection.
type Loader interface {
	LoadCollection(name string) models.Collection
}

// Invalidator drops a cached collection.
type Invalidator interface {
	Invalidate(name string) bool
}

// Notifier is told about collection lifecycle events.
type Notifier interface {
	CollectionLoaded(collection string, records int)
	CollectionInvalidated(collection string)
}

// Page is one slice of a collection.
type Page struct {
	Collection string            `json:"collection"`
	Records    models.Collection `json:"records"`
	Total      int               `json:"total"`
}

// Service coordinates loading, indexing and rendering.
type Service struct {
	loader    Loader
	cache     Invalidator
	idx       index.RecordIndex
	names     []string
	md        goldmark.Markdown
	notifiers []Notifier
	logger    *slog.Logger
	group     singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier registers a lifecycle listener.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifiers = append(s.notifiers, n) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service. names lists the collections exposed to clients; idx
// may be nil to disable search.
func New(ld Loader, cache Invalidator, idx index.RecordIndex, names []string, opts ...Option) *Service {
	s := &Service{
		loader: ld,
		cache:  cache,
		idx:    idx,
		names:  slices.Clone(names),
		md:     newMarkdown(),
		logger: slog.Default(),
	}
	slices.Sort(s.names)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
}

// Collections returns the exposed collection names, sorted.
func (s *Service) Collections() []string {
	return slices.Clone(s.names)
}

// Known reports whether name is an exposed collection.
func (s *Service) Known(name string) bool {
	_, found := slices.BinarySearch(s.names, name)
	return found
}

// Collection loads name and returns the records in [offset, offset+limit).
// A non-positive limit returns everything from offset.
func (s *Service) Collection(_ context.Context, name string, limit, offset int) (*Page, error) {
	if !s.Known(name) {
		return nil, apperr.ErrNotFound
	}
	all := s.load(name)

	offset = max(offset, 0)
	end := len(all)
	if limit > 0 && offset < len(all) && limit < len(all)-offset {
		end = offset + limit
	}
	page := models.Collection{}
	if offset < end {
		page = all[offset:end]
	}
	return &Page{Collection: name, Records: page, Total: len(all)}, nil
}

// Record returns one record of a collection.
func (s *Service) Record(_ context.Context, name, filename string) (models.Record, error) {
	if !s.Known(name) {
		return models.Record{}, apperr.ErrNotFound
	}
	rec, ok := s.load(name).Find(filename)
	if !ok {
		return models.Record{}, apperr.ErrNotFound
	}
	return rec, nil
}

// RenderBody converts a record body from Markdown to HTML.
func (s *Service) RenderBody(rec models.Record) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(rec.Body()), &buf); err != nil {
		return "", fmt.Errorf("contentservice: render %s: %w", rec.Filename(), err)
	}
	return buf.String(), nil
}

// Search queries the index of loaded records.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.idx == nil {
		return []index.SearchResult{}, nil
	}
	results, err := s.idx.Search(query, limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	return results, nil
}

// Indexed returns the number of indexed records per collection.
func (s *Service) Indexed() (map[string]int, error) {
	if s.idx == nil {
		return map[string]int{}, nil
	}
	return s.idx.Counts()
}

// Invalidate drops the cached copy of name so the next read resolves again.
func (s *Service) Invalidate(name string) bool {
	dropped := s.cache.Invalidate(name)
	s.logger.Info("contentservice: cache invalidated",
		slog.String("collection", name), slog.Bool("dropped", dropped))
	for _, n := range s.notifiers {
		n.CollectionInvalidated(name)
	}
	return dropped
}

// HandleLoaded refreshes the index after a fresh load and notifies
// listeners. It is registered as the loader's loaded hook.
func (s *Service) HandleLoaded(name string, records models.Collection) {
	if s.idx != nil {
		if err := s.idx.ReplaceCollection(name, records); err != nil {
			s.logger.Warn("contentservice: index update failed",
				slog.String("collection", name), slog.String("error", err.Error()))
		}
	}
	for _, n := range s.notifiers {
		n.CollectionLoaded(name, len(records))
	}
}

func (s *Service) load(name string) models.Collection {
	v, _, _ := s.group.Do(name, func() (any, error) {
		return s.loader.LoadCollection(name), nil
	})
	return v.(models.Collection).Clone()
}

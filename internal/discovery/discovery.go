// Package discovery decides which filenames belong to a collection.
//
// Sources are tried in order: the remote directory listing, an optional scan
// of the local content roots, and finally a static manifest. The manifest may
// drift from the real file set; that is accepted.
package discovery

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/starford/cmsloader/internal/remote"
	"github.com/starford/cmsloader/internal/storage"
)

// DirLister is the part of remote.Client used for listings.
type DirLister interface {
	ListDir(ctx context.Context, path string) ([]remote.Entry, error)
}

var _ DirLister = (*remote.Client)(nil)

// DefaultManifest returns the built-in collection manifest.
func DefaultManifest() map[string][]string {
	return map[string][]string{
		"properties": {"property-1.md", "property-2.md", "property-3.md", "property-4.md", "property-5.md", "test-article.md"},
		"youtube":    {"video-1.md", "video-2.md", "video-3.md", "video-4.md"},
		"shorts":     {"shorts-1.md", "shorts-2.md", "shorts-3.md", "shorts-4.md", "shorts-5.md", "shorts-6.md"},
		"articles": {
			"2024-07-15-chiangmai-real-estate-investment-trends.md",
			"2024-07-10-thailand-property-purchase-guide.md",
			"2024-07-05-chiangmai-area-selection-guide.md",
		},
	}
}

// Discovery lists collection files.
type Discovery struct {
	remote   DirLister
	stores   []storage.Provider
	prefix   string
	ext      string
	manifest map[string][]string
	logger   *slog.Logger
}

// Option configures a Discovery.
type Option func(*Discovery)

// WithRemote enables the remote directory listing.
func WithRemote(l DirLister) Option {
	return func(d *Discovery) { d.remote = l }
}

// WithLocalScan scans the given content roots when the remote listing is
// unusable.
func WithLocalScan(stores ...storage.Provider) Option {
	return func(d *Discovery) { d.stores = stores }
}

// WithPrefix sets the directory that holds the collections. Default "_data".
func WithPrefix(prefix string) Option {
	return func(d *Discovery) { d.prefix = prefix }
}

// WithExtension sets the content file extension. Default ".md".
func WithExtension(ext string) Option {
	return func(d *Discovery) {
		if ext != "" {
			d.ext = ext
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Discovery) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Discovery backed by manifest.
func New(manifest map[string][]string, opts ...Option) *Discovery {
	d := &Discovery{
		prefix:   "_data",
		ext:      ".md",
		manifest: manifest,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Collections returns the manifest's collection names, sorted.
func (d *Discovery) Collections() []string {
	names := make([]string, 0, len(d.manifest))
	for name := range d.manifest {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// List returns the filenames of collection. An empty result means no source
// knew the collection.
func (d *Discovery) List(collection string) []string {
	if names := d.listRemote(collection); len(names) > 0 {
		d.logger.Debug("discovery: remote listing",
			slog.String("collection", collection), slog.Int("files", len(names)))
		return names
	}
	if names := d.listLocal(collection); len(names) > 0 {
		d.logger.Debug("discovery: local scan",
			slog.String("collection", collection), slog.Int("files", len(names)))
		return names
	}
	names := slices.Clone(d.manifest[collection])
	if len(names) == 0 {
		d.logger.Warn("discovery: no files", slog.String("collection", collection))
		return nil
	}
	d.logger.Info("discovery: using manifest",
		slog.String("collection", collection), slog.Int("files", len(names)))
	return names
}

func (d *Discovery) listRemote(collection string) []string {
	if d.remote == nil {
		return nil
	}
	entries, err := d.remote.ListDir(context.Background(), path.Join(d.prefix, collection))
	switch {
	case err == nil:
	case errors.Is(err, remote.ErrPartialListing):
		d.logger.Warn("discovery: partial remote listing",
			slog.String("collection", collection),
			slog.Int("entries", len(entries)),
			slog.String("error", err.Error()))
	default:
		d.logger.Warn("discovery: remote listing failed",
			slog.String("collection", collection),
			slog.String("error", err.Error()))
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.IsFile() && strings.HasSuffix(e.Name, d.ext) {
			names = append(names, e.Name)
		}
	}
	return names
}

func (d *Discovery) listLocal(collection string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, s := range d.stores {
		found, err := s.List(path.Join(d.prefix, collection), d.ext)
		if err != nil {
			d.logger.Debug("discovery: local scan failed",
				slog.String("root", s.Root()),
				slog.String("collection", collection),
				slog.String("error", err.Error()))
			continue
		}
		for _, name := range found {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/starford/cmsloader/internal/cache"
	"github.com/starford/cmsloader/internal/contentservice"
	"github.com/starford/cmsloader/internal/discovery"
	"github.com/starford/cmsloader/internal/index"
	"github.com/starford/cmsloader/internal/loader"
	"github.com/starford/cmsloader/internal/models"
	"github.com/starford/cmsloader/internal/remote"
	"github.com/starford/cmsloader/internal/source"
	"github.com/starford/cmsloader/internal/storage"
	"github.com/starford/cmsloader/internal/watcher"
)

// components is the content pipeline shared by every entry point.
type components struct {
	cache   *cache.Cache
	loader  *loader.Loader
	index   *index.DB
	service *contentservice.Service
	roots   []string
}

// build wires stores, resolver, discovery, cache, loader, index and service
// from cfg. extra options are applied to the service.
func build(cfg *Config, logger *slog.Logger, extra ...contentservice.Option) (*components, error) {
	stores := openStores(cfg.Content.Roots, logger)

	local := make([]source.Strategy, 0, len(stores)+len(cfg.Content.StaticBaseURLs))
	roots := make([]string, 0, len(stores))
	for _, store := range stores {
		local = append(local, source.NewFSStrategy(store, cfg.Content.Prefix))
		roots = append(roots, store.Root())
	}
	for _, base := range cfg.Content.StaticBaseURLs {
		local = append(local, source.NewHTTPStrategy(base, cfg.Content.Prefix, cfg.Remote.Timeout, nil))
	}

	discOpts := []discovery.Option{
		discovery.WithPrefix(cfg.Content.Prefix),
		discovery.WithExtension(cfg.Content.Extension),
		discovery.WithLogger(logger),
	}
	if cfg.Discovery.ScanLocal {
		discOpts = append(discOpts, discovery.WithLocalScan(stores...))
	}

	var remoteStrategy source.Strategy
	if cfg.Remote.Enabled {
		client := remote.NewClient(cfg.Remote.ClientConfig())
		remoteStrategy = source.NewRemoteStrategy(client, cfg.Content.Prefix)
		discOpts = append(discOpts, discovery.WithRemote(client))
	}

	disc := discovery.New(cfg.Discovery.Manifest, discOpts...)
	resolver := source.NewResolver(local, remoteStrategy, source.WithLogger(logger))
	c := cache.New(cfg.Cache.TTL)

	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	var svc *contentservice.Service
	ld := loader.New(c, disc, resolver,
		loader.WithLogger(logger),
		loader.WithDelays(cfg.Remote.SuccessDelay, cfg.Remote.FailureDelay),
		loader.WithBreakerThreshold(cfg.Remote.BreakerThreshold),
		loader.WithOnLoaded(func(name string, records models.Collection) {
			svc.HandleLoaded(name, records)
		}),
	)
	svc = contentservice.New(ld, c, db, disc.Collections(),
		append([]contentservice.Option{contentservice.WithLogger(logger)}, extra...)...)

	logger.Info("content pipeline ready",
		slog.Int("local_sources", len(local)),
		slog.Bool("remote", resolver.HasRemote()),
		slog.Any("collections", disc.Collections()))

	return &components{cache: c, loader: ld, index: db, service: svc, roots: roots}, nil
}

// newWatcher returns a watcher that invalidates served collections whose
// local files change.
func (c *components) newWatcher(cfg *Config, logger *slog.Logger) *watcher.Watcher {
	return watcher.New(c.roots, cfg.Content.Prefix, cfg.Content.Extension,
		func(collection string) {
			if c.service.Known(collection) {
				c.service.Invalidate(collection)
			}
		},
		watcher.WithDebounce(cfg.Watch.Debounce),
		watcher.WithLogger(logger))
}

func (c *components) Close() error {
	return c.index.Close()
}

// openStores opens every existing content root. Missing roots are skipped;
// content directories are never created.
func openStores(roots []string, logger *slog.Logger) []storage.Provider {
	stores := make([]storage.Provider, 0, len(roots))
	for _, root := range roots {
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			logger.Warn("content root missing, skipped", slog.String("path", root))
			continue
		}
		store, err := storage.NewFS(root)
		if err != nil {
			logger.Warn("content root unusable, skipped",
				slog.String("path", root), slog.String("error", err.Error()))
			continue
		}
		stores = append(stores, store)
	}
	return stores
}

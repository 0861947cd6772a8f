// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/cmsloader/internal/api"
	"github.com/starford/cmsloader/internal/contentservice"
	"github.com/starford/cmsloader/internal/mcpserver"
	"github.com/starford/cmsloader/internal/sse"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{
		output:  os.Stdout,
		logs:    os.Stdout,
		version: "dev",
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logs, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.newLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.Any("content_roots", cfg.Content.Roots),
		slog.Bool("remote_enabled", cfg.Remote.Enabled),
		slog.String("index_path", cfg.Index.Path),
		slog.Duration("cache_ttl", cfg.Cache.TTL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	comp, err := build(cfg, logger, contentservice.WithNotifier(broker))
	if err != nil {
		return err
	}
	defer comp.Close()

	apiRouter := api.NewRouter(comp.service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", readyHandler(comp))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		w := comp.newWatcher(cfg, logger)
		g.Go(func() error {
			if err := w.Run(gCtx); err != nil {
				logger.Warn("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

type cacheStatus struct {
	Records    int       `json:"records"`
	ResolvedAt time.Time `json:"resolved_at"`
	ExpiresIn  string    `json:"expires_in"`
}

func readyHandler(comp *components) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		indexed, err := comp.service.Indexed()
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"index unavailable"}`))
			return
		}
		fresh := map[string]cacheStatus{}
		for _, e := range comp.cache.Entries() {
			fresh[e.Collection] = cacheStatus{
				Records:    len(e.Records),
				ResolvedAt: e.ResolvedAt.UTC(),
				ExpiresIn:  (comp.cache.TTL() - time.Since(e.ResolvedAt)).Round(time.Second).String(),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":             "ok",
			"cache_ttl":          comp.cache.TTL().String(),
			"cached_collections": comp.cache.Len(),
			"fresh":              fresh,
			"indexed_records":    indexed,
		})
	}
}

// Load resolves one collection and writes it as JSON to the configured
// output. Logs go to the log output so the result stays machine-readable.
func Load(ctx context.Context, name string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	comp, err := build(app.config, logger)
	if err != nil {
		return err
	}
	defer comp.Close()

	page, err := comp.service.Collection(ctx, name, 0, 0)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}

	enc := json.NewEncoder(app.output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(page); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ServeMCP serves the MCP tools on stdin/stdout until the client disconnects.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()
	slog.SetDefault(logger)

	comp, err := build(app.config, logger)
	if err != nil {
		return err
	}
	defer comp.Close()

	logger.Info("Starting MCP server on stdio")
	return mcpserver.New(comp.service, app.version).ServeStdio()
}

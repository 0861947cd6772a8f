// Package source resolves the raw text of one content file by trying an
// ordered list of retrieval strategies.
//
// Local strategies are tried first and the first success wins. The remote
// strategy runs only after every local strategy missed and only when the
// caller's Gate allows it. Throttling is reported as the RateLimited outcome,
// never as an error.
package source

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/cmsloader/internal/apperr"
)

// Outcome is the result variant of one resolution.
type Outcome int

const (
	// Unavailable means no strategy produced the file.
	Unavailable Outcome = iota
	// Found means a strategy returned the file text.
	Found
	// RateLimited means the remote strategy reported throttling.
	RateLimited
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case RateLimited:
		return "rate_limited"
	default:
		return "unavailable"
	}
}

// Result is what Resolve reports for one file.
type Result struct {
	Outcome Outcome
	Text    string
	// Source names the strategy that produced Text.
	Source string
	// RemoteAttempted is true when the remote strategy was called.
	RemoteAttempted bool
}

// Strategy fetches the text of collection/filename from one place.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, collection, filename string) (string, error)
}

// Gate decides, right before a remote attempt, whether it may happen.
type Gate interface {
	Allow() bool
}

// GateFunc adapts a function to Gate.
type GateFunc func() bool

// Allow calls f.
func (f GateFunc) Allow() bool { return f() }

// Resolver tries strategies in order.
type Resolver struct {
	local  []Strategy
	remote Strategy
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver. remote may be nil.
func NewResolver(local []Strategy, remote Strategy, opts ...Option) *Resolver {
	r := &Resolver{
		local:  local,
		remote: remote,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HasRemote reports whether a remote strategy is configured.
func (r *Resolver) HasRemote() bool { return r.remote != nil }

// Resolve returns the text of collection/filename. gate is consulted once,
// after all local strategies missed; a nil gate means local only.
func (r *Resolver) Resolve(collection, filename string, gate Gate) Result {
	ctx := context.Background()

	for _, s := range r.local {
		text, err := s.Fetch(ctx, collection, filename)
		if err == nil {
			return Result{Outcome: Found, Text: text, Source: s.Name()}
		}
		r.logger.Debug("source: local miss",
			slog.String("strategy", s.Name()),
			slog.String("collection", collection),
			slog.String("file", filename),
			slog.String("error", err.Error()))
	}

	if r.remote == nil || gate == nil || !gate.Allow() {
		return Result{Outcome: Unavailable}
	}

	text, err := r.remote.Fetch(ctx, collection, filename)
	switch {
	case err == nil:
		return Result{Outcome: Found, Text: text, Source: r.remote.Name(), RemoteAttempted: true}
	case errors.Is(err, apperr.ErrRateLimited):
		r.logger.Warn("source: remote rate limited",
			slog.String("collection", collection),
			slog.String("file", filename),
			slog.String("error", err.Error()))
		return Result{Outcome: RateLimited, RemoteAttempted: true}
	default:
		r.logger.Warn("source: remote fetch failed",
			slog.String("collection", collection),
			slog.String("file", filename),
			slog.String("error", err.Error()))
		return Result{Outcome: Unavailable, RemoteAttempted: true}
	}
}

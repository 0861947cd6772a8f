// Package loader turns a collection name into its ordered, published records.
//
// A load checks the cache, discovers the file list, resolves every file one
// after another, parses, filters, sorts and caches. It never fails: the worst
// outcome is an empty collection, which means "content unavailable right now".
package loader

import (
	"cmp"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/starford/cmsloader/internal/apperr"
	"github.com/starford/cmsloader/internal/frontmatter"
	"github.com/starford/cmsloader/internal/models"
	"github.com/starford/cmsloader/internal/source"
)

// Defaults for remote pacing and the per-call breaker.
const (
	DefaultSuccessDelay     = 200 * time.Millisecond
	DefaultFailureDelay     = 500 * time.Millisecond
	DefaultBreakerThreshold = 3
)

// Cache stores resolved collections.
type Cache interface {
	Get(name string) (models.Collection, bool)
	Put(name string, records models.Collection)
}

// Lister returns the filenames of a collection.
type Lister interface {
	List(collection string) []string
}

// Resolver fetches the text of one file.
type Resolver interface {
	Resolve(collection, filename string, gate source.Gate) source.Result
}

// LoadedFunc is called after a collection was freshly resolved and cached.
type LoadedFunc func(name string, records models.Collection)

// Loader is the content-loading facade.
type Loader struct {
	cache    Cache
	lister   Lister
	resolver Resolver
	parser   *frontmatter.Parser
	logger   *slog.Logger

	sleep        func(time.Duration)
	successDelay time.Duration
	failureDelay time.Duration
	threshold    int
	onLoaded     []LoadedFunc
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithSleep replaces time.Sleep for remote pacing.
func WithSleep(sleep func(time.Duration)) Option {
	return func(ld *Loader) { ld.sleep = sleep }
}

// WithDelays sets the pause before a remote attempt that follows a
// successful and a failed remote attempt respectively.
func WithDelays(success, failure time.Duration) Option {
	return func(ld *Loader) {
		ld.successDelay = success
		ld.failureDelay = failure
	}
}

// WithBreakerThreshold sets how many consecutive remote failures, with no
// remote success yet, switch a load to local-only mode.
func WithBreakerThreshold(n int) Option {
	return func(ld *Loader) {
		if n > 0 {
			ld.threshold = n
		}
	}
}

// WithOnLoaded registers a callback fired after every fresh resolution.
func WithOnLoaded(fn LoadedFunc) Option {
	return func(ld *Loader) { ld.onLoaded = append(ld.onLoaded, fn) }
}

// New creates a Loader.
func New(cache Cache, lister Lister, resolver Resolver, opts ...Option) *Loader {
	ld := &Loader{
		cache:        cache,
		lister:       lister,
		resolver:     resolver,
		logger:       slog.Default(),
		sleep:        time.Sleep,
		successDelay: DefaultSuccessDelay,
		failureDelay: DefaultFailureDelay,
		threshold:    DefaultBreakerThreshold,
	}
	for _, opt := range opts {
		opt(ld)
	}
	ld.parser = frontmatter.New(ld.logger)
	return ld
}

// LoadCollection returns the published records of name sorted by order.
// Records without an order come last in file-list order.
func (ld *Loader) LoadCollection(name string) models.Collection {
	if records, ok := ld.cache.Get(name); ok {
		ld.logger.Debug("loader: cache hit",
			slog.String("collection", name), slog.Int("records", len(records)))
		return records
	}

	log := ld.logger.With(
		slog.String("run_id", uuid.NewString()),
		slog.String("collection", name))
	start := time.Now()

	files := ld.lister.List(name)
	if len(files) == 0 {
		log.Warn("loader: empty file list, not caching",
			slog.String("error", apperr.ErrEmptyCollection.Error()))
		return models.Collection{}
	}

	r := &run{
		sleep:        ld.sleep,
		successDelay: ld.successDelay,
		failureDelay: ld.failureDelay,
		threshold:    ld.threshold,
		logger:       log,
	}

	records := make(models.Collection, 0, len(files))
	skipped := 0
	for _, file := range files {
		res := ld.resolver.Resolve(name, file, r)
		if res.RemoteAttempted {
			r.record(res.Outcome)
		}
		if res.Outcome != source.Found {
			skipped++
			log.Warn("loader: file skipped",
				slog.String("file", file),
				slog.String("outcome", res.Outcome.String()),
				slog.String("error", apperr.ErrTotalResolutionFailure.Error()))
			continue
		}

		doc := ld.parser.Parse(res.Text)
		rec := models.NewRecord(file, res.Text, doc)
		if !rec.Published() {
			log.Debug("loader: unpublished", slog.String("file", file))
			continue
		}
		records = append(records, rec)
	}

	sortByOrder(records)
	ld.cache.Put(name, records)

	attrs := []any{
		slog.Int("files", len(files)),
		slog.Int("records", len(records)),
		slog.Int("skipped", skipped),
		slog.Int("remote_attempts", r.attempts),
		slog.Bool("local_only", r.tripped),
		slog.Duration("elapsed", time.Since(start)),
	}
	if len(records) == 0 {
		log.Warn("loader: no records", append(attrs, slog.String("error", apperr.ErrEmptyCollection.Error()))...)
	} else {
		log.Info("loader: collection loaded", attrs...)
	}

	for _, fn := range ld.onLoaded {
		fn(name, records.Clone())
	}
	return records.Clone()
}

// sortByOrder stable-sorts records ascending by order, undeclared last.
func sortByOrder(records models.Collection) {
	slices.SortStableFunc(records, func(a, b models.Record) int {
		ao, aok := a.Order()
		bo, bok := b.Order()
		switch {
		case aok && bok:
			return cmp.Compare(ao, bo)
		case aok:
			return -1
		case bok:
			return 1
		default:
			return 0
		}
	})
}

// Package watcher reports which collections changed on disk.
//
// It watches <root>/<prefix> of every content root with fsnotify. A change to
// <root>/<prefix>/<collection>/<file><ext>, or the removal of a collection
// directory, schedules a callback for that collection. Bursts of events for
// the same collection are coalesced.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a changed collection is reported.
const DefaultDebounce = 150 * time.Millisecond

// ChangeFunc is called once per changed collection.
type ChangeFunc func(collection string)

// Watcher watches content roots.
type Watcher struct {
	bases    []string
	ext      string
	debounce time.Duration
	logger   *slog.Logger
	onChange ChangeFunc
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a Watcher over roots.
func New(roots []string, prefix, ext string, onChange ChangeFunc, opts ...Option) *Watcher {
	w := &Watcher{
		ext:      ext,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		onChange: onChange,
	}
	for _, root := range roots {
		base, err := filepath.Abs(filepath.Join(root, filepath.FromSlash(prefix)))
		if err != nil {
			continue
		}
		w.bases = append(w.bases, base)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	for _, base := range w.bases {
		if err := addDirsRecursive(fw, base); err != nil {
			w.logger.Warn("watcher: root not watched", slog.String("path", base), slog.String("error", err.Error()))
			continue
		}
		w.logger.Info("watcher: started", slog.String("root", base))
	}

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func(collection string) {
		pending[collection] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerCh = timer.C
		} else {
			timer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			for collection := range pending {
				w.logger.Debug("watcher: collection changed", slog.String("collection", collection))
				if w.onChange != nil {
					w.onChange(collection)
				}
			}
			clear(pending)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					if collection, ok := w.collectionOf(ev.Name, true); ok {
						schedule(collection)
					}
					continue
				}
			}

			dirGone := ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0
			if collection, ok := w.collectionOf(ev.Name, dirGone); ok {
				schedule(collection)
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// collectionOf maps an absolute path to its collection. Content files map to
// their parent directory; a bare collection directory maps to itself when
// allowDir is set.
func (w *Watcher) collectionOf(abs string, allowDir bool) (string, bool) {
	for _, base := range w.bases {
		rel, err := filepath.Rel(base, abs)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		switch {
		case len(parts) == 2 && strings.HasSuffix(parts[1], w.ext):
			return parts[0], true
		case len(parts) == 1 && allowDir && !strings.HasSuffix(parts[0], w.ext):
			return parts[0], true
		}
	}
	return "", false
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) record(collection string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, collection)
}

func (r *recorder) has(collection string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.seen, collection)
}

func (r *recorder) count(collection string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.seen {
		if c == collection {
			n++
		}
	}
	return n
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T) (string, *recorder) {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "_data", "articles"), 0o755); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	w := New([]string{root}, "_data", ".md", rec.record, WithLogger(logger), WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)
	return root, rec
}

func TestWatcher_FileWriteReportsCollection(t *testing.T) {
	root, rec := startWatcher(t)

	_ = os.WriteFile(filepath.Join(root, "_data", "articles", "new.md"), []byte("---\ntitle: x\n---\n"), 0o644)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.has("articles")
	}, "write in articles was not reported")
}

func TestWatcher_BurstCoalesced(t *testing.T) {
	root, rec := startWatcher(t)
	dir := filepath.Join(root, "_data", "articles")
	for _, name := range []string{"a.md", "b.md", "c.md"} {
		_ = os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.has("articles")
	}, "burst was not reported")
	time.Sleep(100 * time.Millisecond)
	if n := rec.count("articles"); n > 2 {
		t.Errorf("burst reported %d times", n)
	}
}

func TestWatcher_NewCollectionDir(t *testing.T) {
	root, rec := startWatcher(t)
	dir := filepath.Join(root, "_data", "shorts")
	_ = os.MkdirAll(dir, 0o755)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.has("shorts")
	}, "new collection dir was not reported")

	time.Sleep(50 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(dir, "shorts-1.md"), []byte("x"), 0o644)
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.count("shorts") >= 2
	}, "file in new collection dir was not reported")
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	root, rec := startWatcher(t)
	_ = os.WriteFile(filepath.Join(root, "_data", "articles", "cover.jpg"), []byte("x"), 0o644)

	time.Sleep(200 * time.Millisecond)
	if rec.has("articles") {
		t.Error("non-content file should not report a change")
	}
}

func TestCollectionOf(t *testing.T) {
	w := New([]string{"/srv/site"}, "_data", ".md", nil)
	base := w.bases[0]

	cases := []struct {
		path     string
		allowDir bool
		want     string
		ok       bool
	}{
		{filepath.Join(base, "articles", "a.md"), false, "articles", true},
		{filepath.Join(base, "articles", "a.txt"), false, "", false},
		{filepath.Join(base, "articles"), true, "articles", true},
		{filepath.Join(base, "articles"), false, "", false},
		{filepath.Join(base, "articles", "deep", "a.md"), false, "", false},
		{filepath.Join(base, "top.md"), true, "", false},
		{"/elsewhere/articles/a.md", false, "", false},
	}
	for _, tc := range cases {
		got, ok := w.collectionOf(tc.path, tc.allowDir)
		if got != tc.want || ok != tc.ok {
			t.Errorf("collectionOf(%q, %v) = %q, %v; want %q, %v", tc.path, tc.allowDir, got, ok, tc.want, tc.ok)
		}
	}
}

// Package testutil provides shared test helpers for content roots and indexes.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/cmsloader/internal/index"
	"github.com/starford/cmsloader/internal/storage"
)

// Prefix is the content directory used by ContentRoot.
const Prefix = "_data"

// TestDB creates a temporary SQLite index that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ContentRoot creates a temporary content root holding files, keyed by
// "<collection>/<filename>", below Prefix.
func ContentRoot(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	for rel, text := range files {
		WriteFile(t, root, rel, text)
	}
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// WriteFile writes <root>/<Prefix>/<rel>, creating directories.
func WriteFile(t *testing.T, root, rel, text string) {
	t.Helper()
	p := filepath.Join(root, Prefix, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Eventually polls fn every 20ms until it returns true, failing the test
// after five seconds.
func Eventually(t *testing.T, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error(msg)
}

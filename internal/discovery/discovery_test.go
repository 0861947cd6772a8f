package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/cmsloader/internal/apperr"
	"github.com/starford/cmsloader/internal/remote"
	"github.com/starford/cmsloader/internal/storage"
)

type fakeLister struct {
	entries []remote.Entry
	err     error
	gotPath string
}

func (f *fakeLister) ListDir(_ context.Context, path string) ([]remote.Entry, error) {
	f.gotPath = path
	return f.entries, f.err
}

func manifest() map[string][]string {
	return map[string][]string{"articles": {"m1.md", "m2.md"}}
}

func TestList_RemoteFilteredToFiles(t *testing.T) {
	l := &fakeLister{entries: []remote.Entry{
		{Name: "a.md", Type: "file"},
		{Name: "drafts", Type: "dir"},
		{Name: "notes.txt", Type: "file"},
		{Name: "b.md", Type: "file"},
	}}
	d := New(manifest(), WithRemote(l))

	got := d.List("articles")
	if diff := cmp.Diff([]string{"a.md", "b.md"}, got); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	if l.gotPath != "_data/articles" {
		t.Errorf("path = %q", l.gotPath)
	}
}

func TestList_PartialListingIsUsable(t *testing.T) {
	l := &fakeLister{
		entries: []remote.Entry{{Name: "a.md", Type: "file"}},
		err:     fmt.Errorf("list: %w", remote.ErrPartialListing),
	}
	got := New(manifest(), WithRemote(l)).List("articles")
	if diff := cmp.Diff([]string{"a.md"}, got); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestList_RemoteFailureFallsBackToManifest(t *testing.T) {
	for _, err := range []error{apperr.ErrRateLimited, apperr.ErrSourceUnavailable} {
		l := &fakeLister{err: err}
		got := New(manifest(), WithRemote(l)).List("articles")
		if diff := cmp.Diff([]string{"m1.md", "m2.md"}, got); diff != "" {
			t.Errorf("%v: list mismatch (-want +got):\n%s", err, diff)
		}
	}
}

func TestList_EmptyRemoteFallsBackToManifest(t *testing.T) {
	l := &fakeLister{entries: []remote.Entry{{Name: "img", Type: "dir"}}}
	got := New(manifest(), WithRemote(l)).List("articles")
	if len(got) != 2 {
		t.Errorf("list = %v", got)
	}
}

func TestList_LocalScanBeforeManifest(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	write := func(root, name string) {
		dir := filepath.Join(root, "content", "articles")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(rootA, "b.md")
	write(rootA, "a.md")
	write(rootB, "a.md")
	write(rootB, "c.md")
	write(rootB, "skip.txt")

	storeA, _ := storage.NewFS(rootA)
	storeB, _ := storage.NewFS(rootB)
	d := New(manifest(),
		WithRemote(&fakeLister{err: apperr.ErrSourceUnavailable}),
		WithLocalScan(storeA, storeB),
		WithPrefix("content"),
	)

	got := d.List("articles")
	if diff := cmp.Diff([]string{"a.md", "b.md", "c.md"}, got); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestList_UnknownCollection(t *testing.T) {
	if got := New(manifest()).List("nope"); got != nil {
		t.Errorf("list = %v, want nil", got)
	}
}

func TestList_ReturnsCopyOfManifest(t *testing.T) {
	d := New(manifest())
	got := d.List("articles")
	got[0] = "changed.md"
	if d.List("articles")[0] != "m1.md" {
		t.Error("manifest must not be mutated through List")
	}
}

func TestDefaultManifest(t *testing.T) {
	m := DefaultManifest()
	want := map[string]int{"properties": 6, "youtube": 4, "shorts": 6, "articles": 3}
	for name, n := range want {
		if len(m[name]) != n {
			t.Errorf("%s: %d files, want %d", name, len(m[name]), n)
		}
	}
	if diff := cmp.Diff([]string{"articles", "properties", "shorts", "youtube"}, New(m).Collections()); diff != "" {
		t.Errorf("collections mismatch (-want +got):\n%s", diff)
	}
}

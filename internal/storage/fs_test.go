package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T, files map[string]string) *FS {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestRead(t *testing.T) {
	s := tempRoot(t, map[string]string{"_data/articles/a.md": "# Hello\n"})
	got, err := s.Read("_data/articles/a.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "# Hello\n" {
		t.Errorf("content = %q", got)
	}
}

func TestRead_MissingWrapsNotExist(t *testing.T) {
	s := tempRoot(t, nil)
	_, err := s.Read("_data/articles/missing.md")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t, map[string]string{
		"_data/youtube/video-2.md":     "b",
		"_data/youtube/video-1.md":     "a",
		"_data/youtube/readme.txt":     "not md",
		"_data/youtube/nested/deep.md": "skip",
	})
	items, err := s.List("_data/youtube", ".md")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || items[0] != "video-1.md" || items[1] != "video-2.md" {
		t.Errorf("items = %v", items)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t, nil)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if _, err := s.List(p, ".md"); err == nil {
			t.Errorf("expected error listing %q", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(f); err == nil {
		t.Error("expected error when root is a file")
	}
}

package contentservice

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/cmsloader/internal/apperr"
	"github.com/starford/cmsloader/internal/frontmatter"
	"github.com/starford/cmsloader/internal/index"
	"github.com/starford/cmsloader/internal/models"
)

type fakeLoader struct {
	data  map[string]models.Collection
	calls atomic.Int32
	delay time.Duration
}

func (f *fakeLoader) LoadCollection(name string) models.Collection {
	f.calls.Add(1)
	time.Sleep(f.delay)
	return f.data[name].Clone()
}

type fakeCache struct{ invalidated []string }

func (f *fakeCache) Invalidate(name string) bool {
	f.invalidated = append(f.invalidated, name)
	return true
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) CollectionLoaded(c string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "loaded:"+c)
}

func (f *fakeNotifier) CollectionInvalidated(c string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "invalidated:"+c)
}

func rec(name, raw string) models.Record {
	return models.NewRecord(name, raw, frontmatter.Parse(raw))
}

func testService(t *testing.T) (*Service, *fakeLoader, *fakeCache, *fakeNotifier) {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	ld := &fakeLoader{data: map[string]models.Collection{
		"articles": {
			rec("a.md", "---\ntitle: Alpha\n---\n# Heading\n\nSome *text*."),
			rec("b.md", "---\ntitle: Beta\n---\nbeta body"),
			rec("c.md", "---\ntitle: Gamma\n---\ngamma body"),
		},
	}}
	c := &fakeCache{}
	n := &fakeNotifier{}
	svc := New(ld, c, db, []string{"shorts", "articles"}, WithNotifier(n))
	return svc, ld, c, n
}

func TestCollections_Sorted(t *testing.T) {
	svc, _, _, _ := testService(t)
	if diff := cmp.Diff([]string{"articles", "shorts"}, svc.Collections()); diff != "" {
		t.Errorf("collections mismatch (-want +got):\n%s", diff)
	}
}

func TestCollection_Paging(t *testing.T) {
	svc, _, _, _ := testService(t)
	ctx := context.Background()

	cases := []struct {
		limit, offset int
		want          []string
	}{
		{0, 0, []string{"a.md", "b.md", "c.md"}},
		{2, 0, []string{"a.md", "b.md"}},
		{2, 2, []string{"c.md"}},
		{5, 10, []string{}},
		{0, -3, []string{"a.md", "b.md", "c.md"}},
		{math.MaxInt, 1, []string{"b.md", "c.md"}},
		{math.MaxInt, math.MaxInt, []string{}},
	}
	for _, tc := range cases {
		page, err := svc.Collection(ctx, "articles", tc.limit, tc.offset)
		if err != nil {
			t.Fatalf("Collection: %v", err)
		}
		got := make([]string, 0, len(page.Records))
		for _, r := range page.Records {
			got = append(got, r.Filename())
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("limit=%d offset=%d (-want +got):\n%s", tc.limit, tc.offset, diff)
		}
		if page.Total != 3 {
			t.Errorf("total = %d", page.Total)
		}
	}
}

func TestCollection_Unknown(t *testing.T) {
	svc, ld, _, _ := testService(t)
	_, err := svc.Collection(context.Background(), "secrets", 0, 0)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if ld.calls.Load() != 0 {
		t.Error("unknown collections must not reach the loader")
	}
}

func TestCollection_EmptyIsNotAnError(t *testing.T) {
	svc, _, _, _ := testService(t)
	page, err := svc.Collection(context.Background(), "shorts", 0, 0)
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	if page.Total != 0 || page.Records == nil {
		t.Errorf("page = %+v", page)
	}
}

func TestRecord(t *testing.T) {
	svc, _, _, _ := testService(t)
	ctx := context.Background()

	r, err := svc.Record(ctx, "articles", "b.md")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if r.Title() != "Beta" {
		t.Errorf("title = %q", r.Title())
	}
	if _, err := svc.Record(ctx, "articles", "zzz.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRenderBody(t *testing.T) {
	svc, _, _, _ := testService(t)
	r, _ := svc.Record(context.Background(), "articles", "a.md")
	html, err := svc.RenderBody(r)
	if err != nil {
		t.Fatalf("RenderBody: %v", err)
	}
	if !strings.Contains(html, `<h1 id="heading">Heading</h1>`) {
		t.Errorf("missing heading in %q", html)
	}
	if !strings.Contains(html, "<em>text</em>") {
		t.Errorf("missing emphasis in %q", html)
	}
}

func TestLoad_ConcurrentCallsShared(t *testing.T) {
	svc, ld, _, _ := testService(t)
	ld.delay = 100 * time.Millisecond

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Collection(context.Background(), "articles", 0, 0); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if n := ld.calls.Load(); n >= 8 {
		t.Errorf("loader calls = %d, concurrent loads were not shared", n)
	}
}

func TestHandleLoaded_IndexesAndNotifies(t *testing.T) {
	svc, ld, _, n := testService(t)
	svc.HandleLoaded("articles", ld.data["articles"])

	results, err := svc.Search(context.Background(), "gamma", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Filename != "c.md" {
		t.Errorf("results = %+v", results)
	}
	counts, _ := svc.Indexed()
	if counts["articles"] != 3 {
		t.Errorf("indexed = %v", counts)
	}
	if diff := cmp.Diff([]string{"loaded:articles"}, n.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestSearch_NoResultsIsEmptySlice(t *testing.T) {
	svc, _, _, _ := testService(t)
	results, err := svc.Search(context.Background(), "nothing-matches", 10)
	if err != nil || results == nil || len(results) != 0 {
		t.Errorf("results = %v, err = %v", results, err)
	}
}

func TestInvalidate(t *testing.T) {
	svc, _, c, n := testService(t)
	if !svc.Invalidate("articles") {
		t.Error("Invalidate should report the cache result")
	}
	if diff := cmp.Diff([]string{"articles"}, c.invalidated); diff != "" {
		t.Errorf("cache calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"invalidated:articles"}, n.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestNilIndex(t *testing.T) {
	svc := New(&fakeLoader{}, &fakeCache{}, nil, nil)
	if r, err := svc.Search(context.Background(), "x", 1); err != nil || len(r) != 0 {
		t.Errorf("search = %v, %v", r, err)
	}
	svc.HandleLoaded("x", nil)
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/starford/cmsloader/internal/frontmatter"
)

func record(t *testing.T, filename, doc string) Record {
	t.Helper()
	return NewRecord(filename, doc, frontmatter.Parse(doc))
}

func TestRecord_Published(t *testing.T) {
	cases := []struct {
		doc  string
		want bool
	}{
		{"---\npublished: false\n---\n", false},
		{"---\npublished: true\n---\n", true},
		{"---\ntitle: x\n---\n", true},
		{"---\npublished: \"false\"\n---\n", true},
	}
	for _, tc := range cases {
		if got := record(t, "a.md", tc.doc).Published(); got != tc.want {
			t.Errorf("Published(%q) = %v, want %v", tc.doc, got, tc.want)
		}
	}
}

func TestRecord_Order(t *testing.T) {
	n, ok := record(t, "a.md", "---\norder: 3\n---\n").Order()
	if !ok || n != 3 {
		t.Errorf("order = %v, %v", n, ok)
	}
	n, ok = record(t, "a.md", "---\norder: \"7\"\n---\n").Order()
	if !ok || n != 7 {
		t.Errorf("quoted order = %v, %v", n, ok)
	}
	for _, v := range []string{"nan", "NaN", "inf", "-Inf", "Infinity"} {
		if n, ok := record(t, "a.md", "---\norder: "+v+"\n---\n").Order(); ok {
			t.Errorf("order %q = %v, want undeclared", v, n)
		}
	}
	if _, ok := record(t, "a.md", "---\norder: soon\n---\n").Order(); ok {
		t.Error("non-numeric order should count as undeclared")
	}
	if _, ok := record(t, "a.md", "---\ntitle: x\n---\n").Order(); ok {
		t.Error("missing order should count as undeclared")
	}
}

func TestRecord_SlugAndDate(t *testing.T) {
	r := record(t, "2024-07-15-chiangmai-real-estate-investment-trends.md", "")
	if r.Slug() != "chiangmai-real-estate-investment-trends" {
		t.Errorf("slug = %q", r.Slug())
	}
	if r.Date() != "2024-07-15" {
		t.Errorf("date = %q", r.Date())
	}

	plain := record(t, "property-1.md", "")
	if plain.Slug() != "property-1" || plain.Date() != "" {
		t.Errorf("slug = %q, date = %q", plain.Slug(), plain.Date())
	}
}

func TestNormalizeImagePath(t *testing.T) {
	cases := map[string]string{
		"":                           DefaultImage,
		"/images/uploads/a.png":      "images/uploads/a.png",
		"images/portfolio/23.jpeg":   "images/portfolio/23.jpeg",
		"https://img.youtube.com/x":  "https://img.youtube.com/x",
		"螢幕擷取畫面.png":                 "images/uploads/螢幕擷取畫面.png",
	}
	for in, want := range cases {
		if got := NormalizeImagePath(in); got != want {
			t.Errorf("NormalizeImagePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecord_TitleFallsBackToFilename(t *testing.T) {
	if got := record(t, "shorts-1.md", "---\norder: 1\n---\n").Title(); got != "shorts-1.md" {
		t.Errorf("title = %q", got)
	}
}

func TestRecord_MarshalJSON(t *testing.T) {
	r := record(t, "p.md", "---\ntitle: 清邁\norder: 2\nfilename: spoofed\n---\nBody")
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"title":"清邁","order":2,"filename":"p.md","body":"Body"}`
	if string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
}

func TestCollection_FindAndClone(t *testing.T) {
	c := Collection{record(t, "a.md", ""), record(t, "b.md", "")}
	if _, ok := c.Find("b.md"); !ok {
		t.Error("b.md should be found")
	}
	if _, ok := c.Find("z.md"); ok {
		t.Error("z.md should not be found")
	}
	cl := c.Clone()
	cl[0] = cl[1]
	if c[0].Filename() != "a.md" {
		t.Error("clone must not alias the original")
	}
	if Collection(nil).Clone() == nil {
		t.Error("clone of nil should be empty, not nil")
	}
}

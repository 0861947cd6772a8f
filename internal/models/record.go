// Package models defines the domain types served by cmsloader.
package models

import (
	"bytes"
	"encoding/json"
	"math"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/starford/cmsloader/internal/checksum"
	"github.com/starford/cmsloader/internal/frontmatter"
)

// DefaultImage is returned by ImagePath when a record has no image.
const DefaultImage = "images/portfolio/default.jpg"

var datedName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)

// Record is one parsed content file. It is immutable; its identity within a
// collection is its filename.
type Record struct {
	filename string
	body     string
	header   frontmatter.Header
	checksum string
}

// NewRecord builds a Record from a parsed document. raw is the source text
// the document was parsed from.
func NewRecord(filename, raw string, doc frontmatter.Document) Record {
	return Record{
		filename: filename,
		body:     doc.Body,
		header:   doc.Header,
		checksum: checksum.Sum([]byte(raw)),
	}
}

// Filename returns the file the record was resolved from.
func (r Record) Filename() string { return r.filename }

// Body returns the document text after the header.
func (r Record) Body() string { return r.body }

// Header returns the parsed header.
func (r Record) Header() frontmatter.Header { return r.header }

// Checksum returns the hex SHA-256 of the source document.
func (r Record) Checksum() string { return r.checksum }

// Get returns the header value stored under key.
func (r Record) Get(key string) (frontmatter.Value, bool) {
	return r.header.Get(key)
}

// Text returns the header value under key rendered as text, or "".
func (r Record) Text(key string) string {
	v, ok := r.header.Get(key)
	if !ok {
		return ""
	}
	return v.String()
}

// Order returns the declared sort position. Numeric strings count as
// declared; NaN and infinities do not.
func (r Record) Order() (float64, bool) {
	v, ok := r.header.Get("order")
	if !ok {
		return 0, false
	}
	switch v.Kind {
	case frontmatter.KindNumber:
		return v.Num, true
	case frontmatter.KindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Published is false only when the header sets published to boolean false.
func (r Record) Published() bool {
	v, ok := r.header.Get("published")
	return !ok || v.Kind != frontmatter.KindBool || v.Bool
}

// Title returns the title field, falling back to the filename.
func (r Record) Title() string {
	if t := r.Text("title"); t != "" {
		return t
	}
	return r.filename
}

// Slug derives a URL slug from the filename: "2024-07-15-trends.md" gives
// "trends", "property-1.md" gives "property-1".
func (r Record) Slug() string {
	stem := strings.TrimSuffix(r.filename, path.Ext(r.filename))
	if m := datedName.FindStringSubmatch(stem); m != nil {
		return m[2]
	}
	return stem
}

// Date returns the YYYY-MM-DD prefix of a dated filename, or "".
func (r Record) Date() string {
	stem := strings.TrimSuffix(r.filename, path.Ext(r.filename))
	if m := datedName.FindStringSubmatch(stem); m != nil {
		return m[1]
	}
	return ""
}

// ImagePath normalises the image reference stored under key into a path
// relative to the site root.
func (r Record) ImagePath(key string) string {
	return NormalizeImagePath(r.Text(key))
}

// NormalizeImagePath maps an editor-supplied image reference to a
// site-relative path. Bare filenames are assumed to live in images/uploads.
func NormalizeImagePath(p string) string {
	switch {
	case p == "":
		return DefaultImage
	case strings.HasPrefix(p, "/"):
		return p[1:]
	case strings.HasPrefix(p, "images/"), strings.HasPrefix(p, "http"):
		return p
	default:
		return "images/uploads/" + p
	}
}

// MarshalJSON flattens the header into the object and adds filename and
// body. Header keys named filename or body are shadowed.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for k, v := range r.header.All() {
		if k == "filename" || k == "body" {
			continue
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		buf.WriteByte(',')
	}
	fb, _ := json.Marshal(r.filename)
	bb, _ := json.Marshal(r.body)
	buf.WriteString(`"filename":`)
	buf.Write(fb)
	buf.WriteString(`,"body":`)
	buf.Write(bb)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Collection is an ordered sequence of records belonging to one name.
type Collection []Record

// Find returns the record resolved from filename.
func (c Collection) Find(filename string) (Record, bool) {
	i := slices.IndexFunc(c, func(r Record) bool { return r.filename == filename })
	if i < 0 {
		return Record{}, false
	}
	return c[i], true
}

// Clone returns a shallow copy so callers cannot reorder a shared slice.
func (c Collection) Clone() Collection {
	if c == nil {
		return Collection{}
	}
	return slices.Clone(c)
}

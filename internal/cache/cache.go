// Package cache keeps the most recently resolved collection per name.
//
// Entries expire a fixed TTL after they were stored. Expiry is checked when
// an entry is read; there is no background sweeper. Lookups for distinct
// names never contend on a shared lock. Concurrent Puts for the same name
// race and the last one wins, which is fine because every Put carries a
// complete, freshly resolved collection.
package cache

import (
	"sync"
	"time"

	"github.com/starford/cmsloader/internal/models"
)

// DefaultTTL is how long a resolved collection stays fresh.
const DefaultTTL = 5 * time.Minute

// Entry is one cached collection.
type Entry struct {
	Collection string
	Records    models.Collection
	ResolvedAt time.Time
}

// Cache maps collection names to entries.
type Cache struct {
	ttl     time.Duration
	now     func() time.Time
	entries sync.Map // string -> *Entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache whose entries live for ttl. A non-positive ttl uses
// DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the fresh records for name. An expired entry is evicted and
// reported absent.
func (c *Cache) Get(name string) (models.Collection, bool) {
	v, ok := c.entries.Load(name)
	if !ok {
		return nil, false
	}
	e := v.(*Entry)
	if c.now().Sub(e.ResolvedAt) >= c.ttl {
		c.entries.CompareAndDelete(name, e)
		return nil, false
	}
	return e.Records.Clone(), true
}

// Put stores records for name, replacing any existing entry.
func (c *Cache) Put(name string, records models.Collection) {
	c.entries.Store(name, &Entry{
		Collection: name,
		Records:    records.Clone(),
		ResolvedAt: c.now(),
	})
}

// Invalidate drops the entry for name. It reports whether one existed.
func (c *Cache) Invalidate(name string) bool {
	_, loaded := c.entries.LoadAndDelete(name)
	return loaded
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Entries returns a snapshot of the fresh entries.
func (c *Cache) Entries() []Entry {
	var out []Entry
	now := c.now()
	c.entries.Range(func(_, v any) bool {
		e := v.(*Entry)
		if now.Sub(e.ResolvedAt) < c.ttl {
			out = append(out, Entry{Collection: e.Collection, Records: e.Records.Clone(), ResolvedAt: e.ResolvedAt})
		}
		return true
	})
	return out
}

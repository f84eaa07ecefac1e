// Package sectioncache memoizes section text that does not depend on the
// entity being analyzed. One Cache is shared by every run in the process.
package sectioncache

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/TobiSchelling/StockBrief/internal/metrics"
	"github.com/TobiSchelling/StockBrief/internal/section"
)

// KeyFunc maps a section and reference date (YYYYMMDD) to a cache slot.
type KeyFunc func(id section.ID, date string) string

// DefaultKey ignores the date: the first text generated for a section is
// reused for the lifetime of the process.
func DefaultKey(id section.ID, _ string) string { return string(id) }

// DateKey keeps one slot per section and reference date.
func DateKey(id section.ID, date string) string { return string(id) + "@" + date }

// Cache is safe for concurrent use. Entries are never evicted.
type Cache struct {
	key KeyFunc

	mu      sync.RWMutex
	entries map[string]string
	group   singleflight.Group
}

// New creates an empty cache. A nil key selects DefaultKey.
func New(key KeyFunc) *Cache {
	if key == nil {
		key = DefaultKey
	}
	return &Cache{key: key, entries: make(map[string]string)}
}

// Get returns the cached text, if any.
func (c *Cache) Get(id section.ID, date string) (string, bool) {
	return c.lookup(c.key(id, date))
}

func (c *Cache) lookup(k string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.entries[k]
	return text, ok
}

// GetOrCreate returns the cached text for (id, date) or calls create to
// produce it. Concurrent callers for the same key share a single create call.
// Only successful results are stored. hit is true when the caller did not run
// create itself.
func (c *Cache) GetOrCreate(id section.ID, date string, create func() (string, error)) (text string, hit bool, err error) {
	k := c.key(id, date)
	if text, ok := c.lookup(k); ok {
		metrics.SectionCache.WithLabelValues("hit").Inc()
		return text, true, nil
	}

	created := false
	v, err, _ := c.group.Do(k, func() (any, error) {
		// A flight that finished between lookup and Do already stored it.
		if text, ok := c.lookup(k); ok {
			return text, nil
		}
		created = true
		text, err := create()
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.entries[k] = text
		c.mu.Unlock()
		return text, nil
	})
	if err != nil {
		return "", false, err
	}

	if created {
		metrics.SectionCache.WithLabelValues("miss").Inc()
	} else {
		metrics.SectionCache.WithLabelValues("hit").Inc()
	}
	return v.(string), !created, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

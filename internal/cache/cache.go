// Package cache keeps recently loaded tables so that a preview and the
// split that follows it parse an upload only once.
package cache

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/yangming0322/splittable/internal/table"
)

// Key identifies an upload by its content and extension.
func Key(data []byte, name string) string {
	h1, h2 := murmur3.Sum128(data)
	return fmt.Sprintf("%016x%016x%s", h1, h2, strings.ToLower(filepath.Ext(name)))
}

type entry struct {
	name     string
	table    *table.Table
	storedAt time.Time
}

// TableCache is a bounded, expiring map from upload key to loaded table.
// Callers own invalidation: a split that succeeded should Invalidate its key.
type TableCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	max     int
	ttl     time.Duration
	now     func() time.Time
}

// New returns a cache holding at most max tables for up to ttl each.
func New(max int, ttl time.Duration) *TableCache {
	if max <= 0 {
		max = 16
	}
	return &TableCache{
		entries: make(map[string]*entry),
		max:     max,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores t for the upload and returns its key. The cache keeps its own
// copy, so later coercion of t does not leak into the cache.
func (c *TableCache) Put(data []byte, name string, t *table.Table) string {
	key := Key(data, name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = &entry{name: name, table: t.Clone(), storedAt: c.now()}

	for len(c.order) > c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	return key
}

// Get returns a private copy of the cached table and the upload's file name.
func (c *TableCache) Get(key string) (*table.Table, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, "", false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl {
		c.removeLocked(key)
		return nil, "", false
	}
	return e.table.Clone(), e.name, true
}

// Invalidate drops key from the cache.
func (c *TableCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Len returns the number of cached tables.
func (c *TableCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TableCache) removeLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

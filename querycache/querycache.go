// Package querycache memoizes compiled query plans. The core compiler never
// caches (each compile is pure and independent); this package is the
// decorator a caller can layer on top without changing any engine behavior.
package querycache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jacentio/quarry/query"
)

// Cache is an LRU of compiled plans keyed by query fingerprint. Compiled
// plans are immutable, so sharing one across callers is safe.
type Cache struct {
	lru  *lru.Cache[string, *query.Compiled]
	opts query.Options
}

// New creates a cache holding up to size plans, compiling with the given
// options on a miss.
func New(size int, opts query.Options) (*Cache, error) {
	l, err := lru.New[string, *query.Compiled](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, opts: opts}, nil
}

// Compile returns the cached plan for the query, compiling and caching on a
// miss. Compile failures are never cached.
func (c *Cache) Compile(q *query.Query) (*query.Compiled, error) {
	key := q.Fingerprint()
	if plan, ok := c.lru.Get(key); ok {
		return plan, nil
	}
	plan, err := query.CompileWith(q, c.opts)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, plan)
	return plan, nil
}

// Len returns the number of cached plans.
func (c *Cache) Len() int { return c.lru.Len() }

// Purge drops every cached plan.
func (c *Cache) Purge() { c.lru.Purge() }

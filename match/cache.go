package match

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds how many ranked results one item batch keeps.
// Interactive sessions rarely exceed a few hundred distinct queries per
// batch.
const DefaultCacheSize = 1024

// Cache memoizes ranked index slices keyed by the joined query string. It is
// scoped to a single item batch; the owner must drop it when items are
// reset. Values are copied on the way in and out so callers can never alias
// cached state.
type Cache struct {
	inner *lru.Cache[string, []int]
}

// NewCache creates a cache bounded to size entries. Sizes below one fall
// back to DefaultCacheSize.
func NewCache(size int) *Cache {
	if size < 1 {
		size = DefaultCacheSize
	}
	inner, _ := lru.New[string, []int](size)
	return &Cache{inner: inner}
}

// Get returns a copy of the ranked result cached for key.
func (c *Cache) Get(key string) ([]int, bool) {
	cached, ok := c.inner.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]int, len(cached))
	copy(out, cached)
	return out, true
}

// Add stores a copy of the ranked result for key.
func (c *Cache) Add(key string, inds []int) {
	stored := make([]int, len(inds))
	copy(stored, inds)
	c.inner.Add(key, stored)
}

// Purge drops every entry. Called on item batch reset.
func (c *Cache) Purge() {
	c.inner.Purge()
}

// Len returns the number of cached queries.
func (c *Cache) Len() int {
	return c.inner.Len()
}

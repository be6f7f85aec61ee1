package visibility

import (
	"sync"

	"github.com/kilianp07/nightplan/core/model"
)

// Cache memoizes visibility series by target and night fingerprint. A nil
// Cache never hits.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*model.Visibility
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*model.Visibility)}
}

func (c *Cache) Get(key string) (*model.Visibility, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *Cache) Put(key string, v *model.Visibility) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()
}

// Len returns the number of cached series.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every entry.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]*model.Visibility)
	c.mu.Unlock()
}

package packed

import (
	"path/filepath"
	"sync"
)

// Provider resolves a path to a packed image.
type Provider interface {
	Resolve(path string) (Source, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(path string) (Source, error)

func (f ProviderFunc) Resolve(path string) (Source, error) {
	return f(path)
}

// Cache is a concurrency-safe packed image cache keyed by cleaned path.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
	load  func(string) (*Image, error)
}

type cacheEntry struct {
	img *Image
	err error
}

// NewCache creates an empty cache that loads files with Load.
func NewCache() *Cache {
	return &Cache{
		items: make(map[string]*cacheEntry),
		load:  Load,
	}
}

// Resolve returns the cached image for path, loading it on first use.
// Load failures are cached too until the path is invalidated.
func (c *Cache) Resolve(path string) (Source, error) {
	path = filepath.Clean(path)

	// Fast path: read lock
	c.mu.RLock()
	entry, exists := c.items[path]
	c.mu.RUnlock()

	if !exists {
		// Slow path: load from disk
		img, err := c.load(path)

		// Write lock with double-check
		c.mu.Lock()
		if entry, exists = c.items[path]; !exists {
			entry = &cacheEntry{img: img, err: err}
			c.items[path] = entry
		}
		c.mu.Unlock()
	}

	if entry.err != nil {
		return nil, entry.err
	}
	return entry.img, nil
}

// Invalidate forgets path so the next Resolve reloads it.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.items, filepath.Clean(path))
	c.mu.Unlock()
}

// Release drops every cached image.
func (c *Cache) Release() {
	c.mu.Lock()
	c.items = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

package feature

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Cache holds the whole vector in memory. Reload is the single writer;
// At calls are concurrent readers.
type Cache struct {
	path string

	mu       sync.RWMutex
	values   []float32
	loadErr  error
	loadedAt time.Time
}

// NewCache creates a cache for path and performs the first load.
// A missing file is not an error: At reports ErrUnavailable until a
// later Reload finds it.
func NewCache(path string) (*Cache, error) {
	c := &Cache{path: path}
	if err := c.Reload(); err != nil && !errors.Is(err, ErrUnavailable) {
		return nil, err
	}
	return c, nil
}

// Path returns the backing file path.
func (c *Cache) Path() string {
	return c.path
}

// Reload re-reads the file. On failure the cache keeps no stale vector:
// a removed or corrupt file makes every lookup degrade.
func (c *Cache) Reload() error {
	values, err := Read(c.path)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = values
	c.loadErr = err
	c.loadedAt = time.Now()
	return err
}

// At returns the cached element at index.
func (c *Cache) At(index int) (float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.loadErr != nil {
		if errors.Is(c.loadErr, ErrUnavailable) {
			return 0, c.loadErr
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, c.loadErr)
	}
	return Vector(c.values).At(index)
}

// Len returns the number of cached elements.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// LoadedAt returns when the vector was last (re)loaded.
func (c *Cache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is the in-process cache layer in front of the disk layer.
type Memory struct {
	cache *gocache.Cache
}

// NewMemory creates a memory cache with the given default TTL.
func NewMemory(defaultTTL, cleanupInterval time.Duration) *Memory {
	return &Memory{cache: gocache.New(defaultTTL, cleanupInterval)}
}

// Get retrieves an entry.
func (c *Memory) Get(key string) ([]byte, bool) {
	if value, found := c.cache.Get(key); found {
		return value.([]byte), true
	}
	return nil, false
}

// Set stores an entry.
func (c *Memory) Set(key string, value []byte, ttl time.Duration) error {
	c.cache.Set(key, value, ttl)
	return nil
}

// Delete removes one entry.
func (c *Memory) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear drops every entry.
func (c *Memory) Clear() error {
	c.cache.Flush()
	return nil
}

// Count returns the number of live entries.
func (c *Memory) Count() int {
	return c.cache.ItemCount()
}

package cache

import "time"

// Layered combines the memory and disk layers: reads check memory first and
// promote disk hits, writes go to both.
type Layered struct {
	memory *Memory
	disk   *Disk
}

// NewLayered creates the standard two-layer page cache.
func NewLayered(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *Layered {
	return &Layered{
		memory: NewMemory(memoryTTL, 10*time.Minute),
		disk:   NewDisk(diskDir, diskTTL),
	}
}

// Get checks memory, then disk, promoting disk hits into memory.
func (c *Layered) Get(key string) ([]byte, bool) {
	if value, found := c.memory.Get(key); found {
		return value, true
	}
	if value, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, value, 0)
		return value, true
	}
	return nil, false
}

// Set stores an entry in both layers.
func (c *Layered) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

// Delete removes an entry from both layers.
func (c *Layered) Delete(key string) error {
	_ = c.memory.Delete(key)
	_ = c.disk.Delete(key)
	return nil
}

// Clear drops both layers.
func (c *Layered) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}

// Counts returns the live entry counts per layer.
func (c *Layered) Counts() (memory, disk int) {
	return c.memory.Count(), c.disk.Count()
}

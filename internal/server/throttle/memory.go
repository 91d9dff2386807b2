package throttle

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count int64
	last  time.Time
}

// MemoryCounter is a process-local Counter. Entries untouched for longer than
// the window are forgotten; a zero window keeps them until Reset.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	window  time.Duration
	now     func() time.Time
}

func NewMemoryCounter(window time.Duration) *MemoryCounter {
	return &MemoryCounter{
		entries: make(map[string]*memoryEntry),
		window:  window,
		now:     time.Now,
	}
}

// live returns the entry for key, dropping it if it went stale.
// Caller holds mu.
func (c *MemoryCounter) live(key string, now time.Time) *memoryEntry {
	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.window > 0 && now.Sub(e.last) > c.window {
		delete(c.entries, key)
		return nil
	}
	return e
}

func (c *MemoryCounter) Get(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.live(key, c.now()); e != nil {
		return e.count, nil
	}
	return 0, nil
}

func (c *MemoryCounter) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	e := c.live(key, now)
	if e == nil {
		e = &memoryEntry{}
		c.entries[key] = e
	}
	e.count++
	e.last = now
	return e.count, nil
}

func (c *MemoryCounter) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Prune drops every stale entry and returns how many were removed.
func (c *MemoryCounter) Prune() int {
	if c.window <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.entries {
		if now.Sub(e.last) > c.window {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

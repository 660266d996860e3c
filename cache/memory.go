package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value []byte
	exp   time.Time
}

// InMemory is a process local ResultCache used when no redis is configured.
type InMemory struct {
	entries map[string]entry
	mu      sync.RWMutex
	nowTime func() time.Time
}

var _ ResultCache = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		entries: make(map[string]entry),
		nowTime: time.Now,
	}
}

// WithClock replaces the clock (primarily for testing).
func (c *InMemory) WithClock(nowFunc func() time.Time) *InMemory {
	c.nowTime = nowFunc
	return c
}

func (c *InMemory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !c.nowTime().Before(e.exp) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *InMemory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: append([]byte(nil), value...), exp: c.nowTime().Add(ttl)}
	return nil
}

// Cleanup removes expired entries.
func (c *InMemory) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowTime()
	for key, e := range c.entries {
		if !now.Before(e.exp) {
			delete(c.entries, key)
		}
	}
}

// Len is the number of entries, expired ones included until Cleanup.
func (c *InMemory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

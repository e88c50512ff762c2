package summary

import (
	"sync"
	"time"
)

const DefaultCacheTTL = 30 * time.Minute

type cacheEntry struct {
	value     string
	timestamp time.Time
}

// Cache is a process-local TTL cache for LLM results keyed by article URL
// (or any derived key). Entries older than the TTL are treated as misses and
// removed in bulk by Sweep before each pipeline run.
type Cache struct {
	ttl     time.Duration
	entries map[string]cacheEntry
	mu      sync.Mutex
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(entry.timestamp) >= c.ttl {
		delete(c.entries, key)
		return "", false
	}
	return entry.value, true
}

func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{value: value, timestamp: c.now()}
}

// Sweep drops all expired entries.
func (c *Cache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.timestamp) >= c.ttl {
			delete(c.entries, key)
		}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

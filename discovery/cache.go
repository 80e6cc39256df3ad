package discovery

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long a classified channel stays out of
// re-evaluation.
const DefaultCacheTTL = 24 * time.Hour

// ProcessedCache remembers channel IDs that went through classification
// recently, so repeated discovery cycles do not burn quota re-fetching and
// re-classifying the same channels.
type ProcessedCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
	now     func() time.Time
}

// NewProcessedCache builds a cache with the given entry lifetime.
func NewProcessedCache(ttl time.Duration) *ProcessedCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ProcessedCache{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Seen reports whether the channel was marked within the TTL. Expired
// entries are dropped on access.
func (c *ProcessedCache) Seen(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.entries[channelID]
	if !ok {
		return false
	}
	if c.now().Sub(at) > c.ttl {
		delete(c.entries, channelID)
		return false
	}
	return true
}

// Mark records the channel as processed now.
func (c *ProcessedCache) Mark(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[channelID] = c.now()
}

// Len returns the number of entries, expired ones included.
func (c *ProcessedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

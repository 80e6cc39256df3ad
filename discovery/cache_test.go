package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProcessedCacheExpiry(t *testing.T) {
	cache := NewProcessedCache(time.Hour)
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	assert.False(t, cache.Seen("UC1"))
	cache.Mark("UC1")
	assert.True(t, cache.Seen("UC1"))

	now = now.Add(59 * time.Minute)
	assert.True(t, cache.Seen("UC1"))

	now = now.Add(2 * time.Minute)
	assert.False(t, cache.Seen("UC1"))
	// The expired entry is dropped on access.
	assert.Zero(t, cache.Len())
}

func TestProcessedCacheDefaultTTL(t *testing.T) {
	cache := NewProcessedCache(0)
	assert.Equal(t, DefaultCacheTTL, cache.ttl)
}

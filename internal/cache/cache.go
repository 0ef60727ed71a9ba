package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/release-health-service/internal/models"
)

// Cache stores built dashboard snapshots keyed by their request parameters,
// so bursts of dashboard reloads do not burn upstream API quota.
// Get returns a snapshot if present and not expired, Set stores one with TTL.
type Cache interface {
	Get(ctx context.Context, key string) (models.DashboardSnapshot, bool, error)
	Set(ctx context.Context, key string, value models.DashboardSnapshot, ttl time.Duration) error
}

// InMemoryCache implements Cache using an in-memory map with TTL-based
// expiration. Expired entries are removed on access. Safe for concurrent use.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
}

// cacheEntry stores a cached snapshot with its expiration timestamp.
type cacheEntry struct {
	value     models.DashboardSnapshot
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get retrieves a cached snapshot for the key if present and not expired.
// Returns (snapshot, true, nil) on cache hit, (zero, false, nil) on miss or
// expiration. Expired entries are removed on access.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.DashboardSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return models.DashboardSnapshot{}, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(c.data, key)
		return models.DashboardSnapshot{}, false, nil
	}

	return entry.value, true, nil
}

// Set stores a snapshot in cache with the specified TTL duration.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.DashboardSnapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

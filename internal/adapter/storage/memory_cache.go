package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/inventory-pos/internal/core/domain"
	"github.com/rl1809/inventory-pos/internal/port"
)

// MemoryCache is the in-process CacheRepository used when no Redis is configured.
type MemoryCache struct {
	mu         sync.Mutex
	keys       map[string]time.Time
	stats      map[int]cachedStats
	generation int64
	statsTTL   time.Duration
	now        func() time.Time
}

type cachedStats struct {
	stats   domain.Stats
	expires time.Time
}

var _ port.CacheRepository = (*MemoryCache)(nil)

func NewMemoryCache(statsTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		keys:     make(map[string]time.Time),
		stats:    make(map[int]cachedStats),
		statsTTL: statsTTL,
		now:      time.Now,
	}
}

func (c *MemoryCache) SetIdempotency(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if expires, ok := c.keys[key]; ok && c.now().Before(expires) {
		return false, nil
	}
	c.keys[key] = c.now().Add(idempotencyKeyTTL)
	return true, nil
}

func (c *MemoryCache) ReleaseIdempotency(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	return nil
}

func (c *MemoryCache) GetStats(_ context.Context, threshold int) (*domain.Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.stats[threshold]
	if !ok || !c.now().Before(cached.expires) {
		return nil, nil
	}
	stats := cached.stats
	return &stats, nil
}

func (c *MemoryCache) StatsGeneration(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, nil
}

func (c *MemoryCache) SetStats(_ context.Context, threshold int, generation int64, stats domain.Stats) (bool, error) {
	if c.statsTTL <= 0 {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return false, nil
	}
	c.stats[threshold] = cachedStats{stats: stats, expires: c.now().Add(c.statsTTL)}
	return true, nil
}

func (c *MemoryCache) InvalidateStats(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.stats)
	c.generation++
	return nil
}

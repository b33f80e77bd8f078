package port

import (
	"context"

	"github.com/rl1809/inventory-pos/internal/core/domain"
)

type CacheRepository interface {
	// SetIdempotency claims key, returns false if it was already claimed
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a key whose request failed so it can be retried
	ReleaseIdempotency(ctx context.Context, key string) error

	// GetStats returns (nil, nil) on a miss
	GetStats(ctx context.Context, threshold int) (*domain.Stats, error)

	// StatsGeneration returns a counter that every InvalidateStats advances. Read it
	// before computing stats and pass it to SetStats.
	StatsGeneration(ctx context.Context) (int64, error)

	// SetStats caches stats only if generation is still current, so figures computed
	// before an invalidation are never stored after it. Reports whether it stored.
	SetStats(ctx context.Context, threshold int, generation int64, stats domain.Stats) (bool, error)

	InvalidateStats(ctx context.Context) error
}

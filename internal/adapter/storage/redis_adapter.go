package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/inventory-pos/internal/core/domain"
	"github.com/rl1809/inventory-pos/internal/port"
)

const (
	idempotencyKeyPrefix = "sale:request:"
	statsKeyPrefix       = "stats:threshold:"
	statsKeySet          = "stats:keys"
	statsGenerationKey   = "stats:generation"
	idempotencyKeyTTL    = 24 * time.Hour
)

// invalidateStatsScript drops every cached stats key and advances the generation in
// one round trip.
var invalidateStatsScript = redis.NewScript(`
local keys = redis.call('SMEMBERS', KEYS[1])
for _, key in ipairs(keys) do
	redis.call('DEL', key)
end
redis.call('DEL', KEYS[1])
redis.call('INCR', KEYS[2])
return #keys
`)

// setStatsScript stores a stats payload only while the generation it was computed
// under is still current.
var setStatsScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
redis.call('SADD', KEYS[3], KEYS[2])
return 1
`)

type RedisAdapter struct {
	client   *redis.Client
	statsTTL time.Duration
}

var _ port.CacheRepository = (*RedisAdapter)(nil)

func NewRedisAdapter(client *redis.Client, statsTTL time.Duration) *RedisAdapter {
	return &RedisAdapter{client: client, statsTTL: statsTTL}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func statsKey(threshold int) string {
	return fmt.Sprintf("%s%d", statsKeyPrefix, threshold)
}

func (r *RedisAdapter) GetStats(ctx context.Context, threshold int) (*domain.Stats, error) {
	raw, err := r.client.Get(ctx, statsKey(threshold)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var stats domain.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, fmt.Errorf("decode cached stats: %w", err)
	}
	return &stats, nil
}

func (r *RedisAdapter) StatsGeneration(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, statsGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *RedisAdapter) SetStats(ctx context.Context, threshold int, generation int64, stats domain.Stats) (bool, error) {
	if r.statsTTL <= 0 {
		return false, nil
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return false, fmt.Errorf("encode stats: %w", err)
	}

	stored, err := setStatsScript.Run(ctx, r.client,
		[]string{statsGenerationKey, statsKey(threshold), statsKeySet},
		generation, string(raw), r.statsTTL.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

func (r *RedisAdapter) InvalidateStats(ctx context.Context) error {
	return invalidateStatsScript.Run(ctx, r.client, []string{statsKeySet, statsGenerationKey}).Err()
}

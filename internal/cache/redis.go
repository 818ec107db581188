package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-docsearch-backend/internal/domain"
)

const (
	// redisKeyPrefix namespaces result entries in a shared Redis database.
	redisKeyPrefix = "docsearch:result:"
	// redisIndexKey is the sorted set tracking insertion order for eviction.
	redisIndexKey = "docsearch:result-index"
)

// Redis is a ResultCache backed by a Redis server, for deployments where
// several replicas should share one cache. TTL expiry is delegated to the
// server; insertion order is tracked in a sorted set scored by insertion
// time so capacity eviction can drop the oldest entry, mirroring the memory
// backend. Hit/miss counters are process-local.
//
// A sorted-set member may outlive its value key when the server expires the
// value first; such orphans are dropped lazily during eviction.
type Redis struct {
	client  *redis.Client
	maxSize int
	ttl     time.Duration
	log     zerolog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Compile-time contract check.
var _ ResultCache = (*Redis)(nil)

// NewRedis constructs a Redis-backed cache on an existing client.
func NewRedis(client *redis.Client, maxSize int, ttl time.Duration, log zerolog.Logger) *Redis {
	return &Redis{
		client:  client,
		maxSize: maxSize,
		ttl:     ttl,
		log:     log.With().Str("component", "redis-cache").Logger(),
	}
}

// Get fetches and decodes a cached result set. Any transport or decode
// failure is a miss, never an error: the caller just recomputes.
func (r *Redis) Get(ctx context.Context, query string, limit int, filters domain.SearchFilters) ([]domain.SearchResult, bool) {
	key := Key(query, limit, filters)
	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Warn().Err(err).Msg("cache get failed")
		}
		r.misses.Add(1)
		return nil, false
	}
	var results []domain.SearchResult
	if err := json.Unmarshal(raw, &results); err != nil {
		r.log.Warn().Err(err).Msg("cache entry undecodable, treating as miss")
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return results, true
}

// Set stores a result set with the configured TTL, evicting the oldest entry
// from the insertion-order index when at capacity.
func (r *Redis) Set(ctx context.Context, query string, limit int, filters domain.SearchFilters, results []domain.SearchResult) {
	key := Key(query, limit, filters)
	raw, err := json.Marshal(results)
	if err != nil {
		r.log.Warn().Err(err).Msg("cache marshal failed")
		return
	}

	if size, err := r.client.ZCard(ctx, redisIndexKey).Result(); err == nil && int(size) >= r.maxSize {
		if oldest, err := r.client.ZPopMin(ctx, redisIndexKey, 1).Result(); err == nil && len(oldest) == 1 {
			if member, ok := oldest[0].Member.(string); ok {
				r.client.Del(ctx, redisKeyPrefix+member)
			}
		}
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, redisKeyPrefix+key, raw, r.ttl)
	pipe.ZAdd(ctx, redisIndexKey, redis.Z{Score: float64(time.Now().UnixNano()), Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Warn().Err(err).Msg("cache set failed")
	}
}

// Clear removes all cached entries and the insertion-order index, and resets
// the process-local counters.
func (r *Redis) Clear(ctx context.Context) {
	members, err := r.client.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err == nil {
		keys := make([]string, 0, len(members)+1)
		for _, m := range members {
			keys = append(keys, redisKeyPrefix+m)
		}
		keys = append(keys, redisIndexKey)
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			r.log.Warn().Err(err).Msg("cache clear failed")
		}
	} else {
		r.log.Warn().Err(err).Msg("cache clear failed to enumerate entries")
	}
	r.hits.Store(0)
	r.misses.Store(0)
}

// Stats reports process-local counters plus the current server-side entry
// count from the insertion-order index.
func (r *Redis) Stats(ctx context.Context) Stats {
	size := 0
	if n, err := r.client.ZCard(ctx, redisIndexKey).Result(); err == nil {
		size = int(n)
	}
	hits, misses := r.hits.Load(), r.misses.Load()
	return Stats{
		Hits:     hits,
		Misses:   misses,
		HitRatio: hitRatio(hits, misses),
		Size:     size,
		MaxSize:  r.maxSize,
	}
}

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores catalog lookups keyed by query.
type Cache interface {
	Get(ctx context.Context, key string) (map[string][]string, bool)
	Set(ctx context.Context, key string, value map[string][]string)
}

type nopCache struct{}

// NopCache disables caching.
func NopCache() Cache { return nopCache{} }

func (nopCache) Get(context.Context, string) (map[string][]string, bool) { return nil, false }
func (nopCache) Set(context.Context, string, map[string][]string)        {}

// RedisCache keeps lookups in Redis for a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedisCache builds a Redis backed Cache.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl, prefix: "catalog:", logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) (map[string][]string, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	var out map[string][]string
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("catalog cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return out, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value map[string][]string) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

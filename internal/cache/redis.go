package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on a redis client. Errors are logged and
// degrade to cache misses; the pipeline treats the cache as best-effort.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps an existing redis client.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("redis get failed", "key", key, "err", err)
		}
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		slog.Warn("redis set failed", "key", key, "err", err)
	}
}

// Add is SETNX with expiry: true when the key was absent and is now set.
func (c *RedisCache) Add(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	ok, err := c.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		slog.Warn("redis setnx failed", "key", key, "err", err)
		return false
	}
	return ok
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		slog.Warn("redis del failed", "key", key, "err", err)
	}
}

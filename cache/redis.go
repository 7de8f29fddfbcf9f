// Package cache provides the Redis-backed key/value client the engine
// stores revocation facts, rate counters, and used-token markers in.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pegov/authkit"
)

// RedisClient implements auth.CacheClient on top of go-redis. All
// operations map one-to-one onto single Redis commands, so atomicity is
// the backend's.
type RedisClient struct {
	client redis.UniversalClient
}

var _ auth.CacheClient = (*RedisClient)(nil)

// NewRedisClient wraps an existing go-redis client.
func NewRedisClient(client redis.UniversalClient) *RedisClient {
	return &RedisClient{client: client}
}

// Get returns the value at key; a missing key is ("", nil).
func (c *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return val, nil
}

// Set stores value at key with a TTL. Zero ttl persists the key.
func (c *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// SetNX claims key atomically, reporting whether this call set it.
func (c *RedisClient) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, ttl).Result()
}

// IncrWithTTL increments the counter at key, planting the TTL in the
// same pipeline. EXPIRE NX leaves an already-running window untouched.
func (c *RedisClient) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Delete removes the given keys.
func (c *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

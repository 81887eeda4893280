package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache provides a Redis-backed implementation of the Cache interface.
// This implementation is suitable for distributed systems where duplicate
// suppression and rate limiting must be shared across instances.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithPrefix sets the key prefix for Redis keys.
// Default is "dialogkit".
func WithPrefix(prefix string) RedisOption {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// NewRedisCache creates a new Redis-backed cache.
//
// Example:
//
//	cache := NewRedisCache(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithPrefix("myapp"),
//	)
func NewRedisCache(client *redis.Client, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client: client,
		prefix: "dialogkit",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value by key.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}

	val, err := c.client.Get(ctx, c.cacheKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	return val, true, nil
}

// Set stores a value under key with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}

	if err := c.client.Set(ctx, c.cacheKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// SetNX stores a value only if the key does not already exist.
func (c *RedisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrInvalidKey
	}

	ok, err := c.client.SetNX(ctx, c.cacheKey(key), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

// Incr atomically increments the counter at key.
// Uses a pipeline to batch INCR and the conditional EXPIRE into a single
// round-trip. ExpireNX ensures the window is set only on counter creation.
func (c *RedisCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if key == "" {
		return 0, ErrInvalidKey
	}

	rkey := c.cacheKey(key)
	pipe := c.client.Pipeline()
	incrCmd := pipe.Incr(ctx, rkey)
	if ttl > 0 {
		pipe.ExpireNX(ctx, rkey, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis pipeline failed: %w", err)
	}
	return incrCmd.Val(), nil
}

// Delete removes a key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	if err := c.client.Del(ctx, c.cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// cacheKey generates the Redis key for a cache entry.
func (c *RedisCache) cacheKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// entry holds a cached value and its expiration deadline.
// A zero deadline means the entry never expires.
type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache provides an in-memory implementation of the Cache interface.
// It is thread-safe and suitable for development, testing, and single-instance
// deployments. For distributed systems, use RedisCache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry

	// timeFunc allows tests to control time
	timeFunc func() time.Time
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithTimeFunc sets a custom time source. Used in tests for
// deterministic expiration behavior.
func WithTimeFunc(fn func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		c.timeFunc = fn
	}
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		entries:  make(map[string]entry),
		timeFunc: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value by key. Expired entries are removed lazily.
func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if e.expired(c.timeFunc()) {
		delete(c.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores a value under key with the given TTL.
func (c *MemoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = c.newEntry(value, ttl)
	return nil
}

// SetNX stores a value only if the key does not already exist.
func (c *MemoryCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrInvalidKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && !e.expired(c.timeFunc()) {
		return false, nil
	}
	c.entries[key] = c.newEntry(value, ttl)
	return true, nil
}

// Incr atomically increments the counter at key. The TTL is applied only
// when the counter is created, matching Redis INCR+EXPIRE NX semantics.
func (c *MemoryCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if key == "" {
		return 0, ErrInvalidKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired(c.timeFunc()) {
		c.entries[key] = c.newEntry("1", ttl)
		return 1, nil
	}

	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	c.entries[key] = e
	return n, nil
}

// Delete removes a key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) newEntry(value string, ttl time.Duration) entry {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = c.timeFunc().Add(ttl)
	}
	return e
}

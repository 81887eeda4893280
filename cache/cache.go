// Package cache provides short-lived key/value storage used for duplicate
// suppression, rate limiting counters and read-through state caching.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache defines the interface for TTL-bounded key/value storage.
type Cache interface {
	// Get retrieves a value by key. The second return value reports
	// whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a value under key with the given TTL.
	// A zero TTL stores the value without expiration.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX stores a value only if the key does not already exist.
	// Returns true if the value was stored.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Incr atomically increments the counter at key and returns the new
	// value. The TTL is applied only when the counter is created.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ErrInvalidKey is returned when an empty key is provided.
var ErrInvalidKey = errors.New("invalid cache key")

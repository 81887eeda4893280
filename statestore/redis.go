package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds WATCH retry attempts when a key changes mid-transaction.
const maxTxRetries = 3

// RedisStore provides a Redis-backed implementation of the Store interface.
// It uses JSON serialization for state storage and supports automatic
// TTL-based cleanup. Version checks run inside WATCH/MULTI transactions so
// concurrent writers against the same session are serialized correctly.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets the time-to-live for dialog states.
// After this duration, idle sessions will be automatically deleted.
// Default is 24 hours. Set to 0 for no expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for Redis keys.
// Default is "dialogkit".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a new Redis-backed state store.
//
// Example:
//
//	store := NewRedisStore(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithTTL(24 * time.Hour),
//	    WithPrefix("myapp"),
//	)
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		ttl:    defaultTTLHours * time.Hour,
		prefix: "dialogkit",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Get retrieves dialog state by session key from Redis.
func (s *RedisStore) Get(ctx context.Context, key SessionKey) (*DialogState, error) {
	if !key.Valid() {
		return nil, ErrInvalidKey
	}

	data, err := s.client.Get(ctx, s.sessionKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var state DialogState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// Create persists a new dialog state at version 1 using SET NX.
func (s *RedisStore) Create(ctx context.Context, state *DialogState) error {
	if state == nil {
		return ErrInvalidState
	}
	if !state.Key.Valid() {
		return ErrInvalidKey
	}

	stored := state.Clone()
	stored.Version = 1
	stored.LastInteractionAt = time.Now()

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.sessionKey(state.Key), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx failed: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}

	state.Version = stored.Version
	return nil
}

// Update applies mutate inside a WATCH transaction. The write commits only
// if the stored version still equals expectedVersion and the key was not
// touched by another client between read and EXEC.
func (s *RedisStore) Update(ctx context.Context, key SessionKey, expectedVersion int64, mutate func(*DialogState)) (*DialogState, error) {
	if !key.Valid() {
		return nil, ErrInvalidKey
	}

	rkey := s.sessionKey(key)
	var committed *DialogState

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, rkey).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return fmt.Errorf("redis get failed: %w", err)
		}

		var current DialogState
		if err := json.Unmarshal(data, &current); err != nil {
			return fmt.Errorf("failed to unmarshal state: %w", err)
		}
		if current.Version != expectedVersion {
			return ErrVersionConflict
		}

		next := current.Clone()
		mutate(next)
		next.Key = key
		next.Version = expectedVersion + 1
		next.LastInteractionAt = time.Now()

		out, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rkey, out, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		committed = next
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txn, rkey)
		if err == nil {
			return committed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			// Another client touched the key mid-transaction. The version
			// check on retry decides whether the write is still valid.
			continue
		}
		return nil, err
	}
	return nil, ErrVersionConflict
}

// Delete removes dialog state and its transition history.
// Uses a pipeline to batch both DELs into a single round-trip.
func (s *RedisStore) Delete(ctx context.Context, key SessionKey) error {
	if !key.Valid() {
		return ErrInvalidKey
	}

	pipe := s.client.Pipeline()
	delCmd := pipe.Del(ctx, s.sessionKey(key))
	pipe.Del(ctx, s.historyKey(key))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	if delCmd.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordHistory appends a transition record using RPUSH.
// Uses a pipeline to batch RPUSH and EXPIRE into a single round-trip.
func (s *RedisStore) RecordHistory(ctx context.Context, key SessionKey, entry HistoryEntry) error {
	if !key.Valid() {
		return ErrInvalidKey
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	hkey := s.historyKey(key)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, hkey, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, hkey, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// History returns the last n transition records using LRANGE.
func (s *RedisStore) History(ctx context.Context, key SessionKey, n int) ([]HistoryEntry, error) {
	if !key.Valid() {
		return nil, ErrInvalidKey
	}

	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}

	vals, err := s.client.LRange(ctx, s.historyKey(key), start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(vals))
	for _, v := range vals {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// sessionKey generates the Redis key for a session's dialog state.
func (s *RedisStore) sessionKey(key SessionKey) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, key.String())
}

// historyKey generates the Redis key for a session's transition history.
func (s *RedisStore) historyKey(key SessionKey) string {
	return fmt.Sprintf("%s:session:%s:history", s.prefix, key.String())
}

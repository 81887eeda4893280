package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AltairaLabs/DialogKit/cache"
)

// CachedStore wraps a Store with a read-through cache. Reads hit the cache
// first and fall back to the backing store; concurrent misses for the same
// session are collapsed into a single backing read via singleflight.
// Writes go to the backing store and refresh or invalidate the cached copy.
type CachedStore struct {
	backend Store
	cache   cache.Cache
	ttl     time.Duration
	group   singleflight.Group
}

// defaultCacheTTL bounds staleness of cached states across instances.
const defaultCacheTTL = 30 * time.Second

// CachedOption configures a CachedStore.
type CachedOption func(*CachedStore)

// WithCacheTTL sets how long cached states are served before the backing
// store is consulted again. Default is 30 seconds.
func WithCacheTTL(ttl time.Duration) CachedOption {
	return func(s *CachedStore) {
		s.ttl = ttl
	}
}

// NewCachedStore creates a read-through caching wrapper around backend.
func NewCachedStore(backend Store, c cache.Cache, opts ...CachedOption) *CachedStore {
	s := &CachedStore{
		backend: backend,
		cache:   c,
		ttl:     defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached state when present, otherwise loads from the
// backing store and populates the cache.
func (s *CachedStore) Get(ctx context.Context, key SessionKey) (*DialogState, error) {
	if !key.Valid() {
		return nil, ErrInvalidKey
	}

	ckey := s.cacheKey(key)
	if data, ok, err := s.cache.Get(ctx, ckey); err == nil && ok {
		var state DialogState
		if err := json.Unmarshal([]byte(data), &state); err == nil {
			return &state, nil
		}
		// Corrupt cache entry: drop it and fall through to the backend.
		_ = s.cache.Delete(ctx, ckey)
	}

	v, err, _ := s.group.Do(ckey, func() (any, error) {
		state, err := s.backend.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		s.fill(ctx, key, state)
		return state, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*DialogState).Clone(), nil
}

// Create delegates to the backing store and caches the new state.
func (s *CachedStore) Create(ctx context.Context, state *DialogState) error {
	if err := s.backend.Create(ctx, state); err != nil {
		return err
	}
	s.fill(ctx, state.Key, state)
	return nil
}

// Update delegates to the backing store. On success the committed state
// replaces the cached copy; on conflict the cached copy is invalidated so
// the next read sees the winning write.
func (s *CachedStore) Update(ctx context.Context, key SessionKey, expectedVersion int64, mutate func(*DialogState)) (*DialogState, error) {
	committed, err := s.backend.Update(ctx, key, expectedVersion, mutate)
	if err != nil {
		_ = s.cache.Delete(ctx, s.cacheKey(key))
		return nil, err
	}
	s.fill(ctx, key, committed)
	return committed, nil
}

// Delete removes the state from the backing store and the cache.
func (s *CachedStore) Delete(ctx context.Context, key SessionKey) error {
	err := s.backend.Delete(ctx, key)
	_ = s.cache.Delete(ctx, s.cacheKey(key))
	return err
}

// RecordHistory delegates to the backing store. History is not cached.
func (s *CachedStore) RecordHistory(ctx context.Context, key SessionKey, entry HistoryEntry) error {
	return s.backend.RecordHistory(ctx, key, entry)
}

// History delegates to the backing store.
func (s *CachedStore) History(ctx context.Context, key SessionKey, n int) ([]HistoryEntry, error) {
	return s.backend.History(ctx, key, n)
}

// fill stores a serialized copy of state in the cache. Cache failures are
// ignored: the backing store remains the source of truth.
func (s *CachedStore) fill(ctx context.Context, key SessionKey, state *DialogState) {
	data, err := json.Marshal(state)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, s.cacheKey(key), string(data), s.ttl)
}

// cacheKey generates the cache key for a session's dialog state.
func (s *CachedStore) cacheKey(key SessionKey) string {
	return fmt.Sprintf("state:%s", key.String())
}

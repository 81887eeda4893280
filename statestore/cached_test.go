package statestore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/DialogKit/cache"
)

// countingStore wraps a Store and counts Get calls on the backend.
type countingStore struct {
	Store
	mu   sync.Mutex
	gets int
}

func (c *countingStore) Get(ctx context.Context, key SessionKey) (*DialogState, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.Store.Get(ctx, key)
}

func (c *countingStore) getCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

func setupCachedStore(t *testing.T) (*CachedStore, *countingStore) {
	backend := &countingStore{Store: NewMemoryStore()}
	return NewCachedStore(backend, cache.NewMemoryCache()), backend
}

func TestCachedStore_ReadThrough(t *testing.T) {
	store, backend := setupCachedStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))

	// Create filled the cache, so reads never hit the backend.
	for i := 0; i < 3; i++ {
		loaded, err := store.Get(ctx, testKey())
		require.NoError(t, err)
		assert.Equal(t, "welcome", loaded.CurrentStep)
	}
	assert.Equal(t, 0, backend.getCount())
}

func TestCachedStore_MissPopulatesCache(t *testing.T) {
	backend := &countingStore{Store: NewMemoryStore()}
	require.NoError(t, backend.Store.Create(context.Background(), testState()))

	store := NewCachedStore(backend, cache.NewMemoryCache())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Get(ctx, testKey())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backend.getCount())
}

func TestCachedStore_NotFound(t *testing.T) {
	store, _ := setupCachedStore(t)

	_, err := store.Get(context.Background(), testKey())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedStore_UpdateRefreshesCache(t *testing.T) {
	store, backend := setupCachedStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))

	updated, err := store.Update(ctx, testKey(), 1, func(s *DialogState) {
		s.CurrentStep = "ask_age"
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	loaded, err := store.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, "ask_age", loaded.CurrentStep)
	assert.Equal(t, 0, backend.getCount())
}

func TestCachedStore_ConflictInvalidatesCache(t *testing.T) {
	store, backend := setupCachedStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))

	_, err := store.Update(ctx, testKey(), 1, func(s *DialogState) { s.CurrentStep = "a" })
	require.NoError(t, err)

	_, err = store.Update(ctx, testKey(), 1, func(s *DialogState) { s.CurrentStep = "b" })
	assert.ErrorIs(t, err, ErrVersionConflict)

	// The conflict dropped the cached copy, so the next read goes to the
	// backend and observes the winning write.
	loaded, err := store.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, "a", loaded.CurrentStep)
	assert.Equal(t, 1, backend.getCount())
}

func TestCachedStore_Delete(t *testing.T) {
	store, _ := setupCachedStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))
	require.NoError(t, store.Delete(ctx, testKey()))

	_, err := store.Get(ctx, testKey())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedStore_HistoryPassthrough(t *testing.T) {
	store, _ := setupCachedStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordHistory(ctx, testKey(), HistoryEntry{
		FromStep: "a", ToStep: "b", Trigger: TriggerAuto,
	}))

	entries, err := store.History(ctx, testKey(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].FromStep)
}

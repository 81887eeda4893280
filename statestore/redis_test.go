package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisStore creates a test Redis store with miniredis
func setupRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStore(client, opts...)
	return store, mr
}

func TestRedisStore_GetNotFound(t *testing.T) {
	store, _ := setupRedisStore(t)

	_, err := store.Get(context.Background(), testKey())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_GetInvalidKey(t *testing.T) {
	store, _ := setupRedisStore(t)

	_, err := store.Get(context.Background(), SessionKey{})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestRedisStore_CreateAndGet(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))

	loaded, err := store.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, testKey(), loaded.Key)
	assert.Equal(t, "onboarding", loaded.ScenarioName)
	assert.Equal(t, "welcome", loaded.CurrentStep)
	assert.Equal(t, int64(1), loaded.Version)
	assert.Equal(t, "Ada", loaded.Collected["first_name"])
}

func TestRedisStore_CreateDuplicate(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))
	err := store.Create(ctx, testState())
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRedisStore_Update(t *testing.T) {
	store, _ := setupRedisStore(t)
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
	assert.Equal(t, int64(2), loaded.Version)
}

func TestRedisStore_UpdateVersionConflict(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))

	_, err := store.Update(ctx, testKey(), 1, func(s *DialogState) { s.CurrentStep = "a" })
	require.NoError(t, err)

	_, err = store.Update(ctx, testKey(), 1, func(s *DialogState) { s.CurrentStep = "b" })
	assert.ErrorIs(t, err, ErrVersionConflict)

	loaded, err := store.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, "a", loaded.CurrentStep)
}

func TestRedisStore_UpdateNotFound(t *testing.T) {
	store, _ := setupRedisStore(t)

	_, err := store.Update(context.Background(), testKey(), 1, func(s *DialogState) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := setupRedisStore(t, WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, testKey())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	store, mr := setupRedisStore(t, WithPrefix("myapp"))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))
	assert.True(t, mr.Exists("myapp:session:bot-1:telegram:chat-42"))
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))
	require.NoError(t, store.RecordHistory(ctx, testKey(), HistoryEntry{
		FromStep: "a", ToStep: "b", Trigger: TriggerAuto, Timestamp: time.Now(),
	}))

	require.NoError(t, store.Delete(ctx, testKey()))

	_, err := store.Get(ctx, testKey())
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := store.History(ctx, testKey(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRedisStore_DeleteNotFound(t *testing.T) {
	store, _ := setupRedisStore(t)

	err := store.Delete(context.Background(), testKey())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_History(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	ts := time.Now().UTC().Truncate(time.Second)
	for _, step := range []string{"a", "b", "c"} {
		err := store.RecordHistory(ctx, testKey(), HistoryEntry{
			FromStep:  step,
			ToStep:    step + "_next",
			Trigger:   TriggerUserInput,
			Timestamp: ts,
		})
		require.NoError(t, err)
	}

	all, err := store.History(ctx, testKey(), 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].FromStep)
	assert.Equal(t, ts, all[0].Timestamp)

	last, err := store.History(ctx, testKey(), 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "b", last[0].FromStep)
}

package statestore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() SessionKey {
	return SessionKey{BotID: "bot-1", Platform: "telegram", ChatID: "chat-42"}
}

func testState() *DialogState {
	return &DialogState{
		Key:             testKey(),
		ScenarioName:    "onboarding",
		ScenarioVersion: "1.0.0",
		CurrentStep:     "welcome",
		Collected:       map[string]any{"first_name": "Ada"},
	}
}

func TestSessionKey_String(t *testing.T) {
	assert.Equal(t, "bot-1:telegram:chat-42", testKey().String())
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))

	loaded, err := store.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, "welcome", loaded.CurrentStep)
	assert.Equal(t, int64(1), loaded.Version)
	assert.Equal(t, "Ada", loaded.Collected["first_name"])
	assert.False(t, loaded.LastInteractionAt.IsZero())
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), testKey())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetInvalidKey(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), SessionKey{BotID: "only"})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestMemoryStore_CreateDuplicate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))
	err := store.Create(ctx, testState())
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))

	updated, err := store.Update(ctx, testKey(), 1, func(s *DialogState) {
		s.CurrentStep = "ask_age"
		s.Collected["age"] = 30
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, "ask_age", updated.CurrentStep)

	loaded, err := store.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, "ask_age", loaded.CurrentStep)
	assert.Equal(t, 30, loaded.Collected["age"])
}

func TestMemoryStore_UpdateVersionConflict(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))

	_, err := store.Update(ctx, testKey(), 1, func(s *DialogState) { s.CurrentStep = "a" })
	require.NoError(t, err)

	// The second writer still holds version 1 and must lose.
	_, err = store.Update(ctx, testKey(), 1, func(s *DialogState) { s.CurrentStep = "b" })
	assert.ErrorIs(t, err, ErrVersionConflict)

	loaded, err := store.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, "a", loaded.CurrentStep)
	assert.Equal(t, int64(2), loaded.Version)
}

func TestMemoryStore_UpdateNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Update(context.Background(), testKey(), 1, func(s *DialogState) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ConcurrentUpdates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))

	const writers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	conflicts := 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, testKey(), 1, func(s *DialogState) {
				s.CurrentStep = "raced"
			})
			if err != nil {
				mu.Lock()
				conflicts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Exactly one writer commits against version 1.
	assert.Equal(t, writers-1, conflicts)

	loaded, err := store.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Version)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))

	loaded, err := store.Get(ctx, testKey())
	require.NoError(t, err)
	loaded.Collected["first_name"] = "Mallory"

	again, err := store.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, "Ada", again.Collected["first_name"])
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))
	require.NoError(t, store.Delete(ctx, testKey()))

	_, err := store.Get(ctx, testKey())
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Delete(ctx, testKey())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_History(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ts := time.Now()
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

	last, err := store.History(ctx, testKey(), 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "b", last[0].FromStep)
	assert.Equal(t, "c", last[1].FromStep)
}

func TestMemoryStore_WithTimeFunc(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithTimeFunc(func() time.Time { return fixed }))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testState()))

	loaded, err := store.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, fixed, loaded.LastInteractionAt)
}

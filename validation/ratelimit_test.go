package validation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/DialogKit/cache"
)

func TestCounterLimiter(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	mem := cache.NewMemoryCache(cache.WithTimeFunc(clock.Now))
	l := NewCounterLimiter(mem, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "bot:user")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}

	ok, err := l.Allow(ctx, "bot:user")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCounterLimiter_WindowResets(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	mem := cache.NewMemoryCache(cache.WithTimeFunc(clock.Now))
	l := NewCounterLimiter(mem, 1)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "bot:user")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Allow(ctx, "bot:user")
	require.NoError(t, err)
	require.False(t, ok)

	clock.Advance(rateLimitWindow + time.Second)
	ok, err = l.Allow(ctx, "bot:user")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCounterLimiter_PerKey(t *testing.T) {
	mem := cache.NewMemoryCache()
	l := NewCounterLimiter(mem, 1)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "bot:alice")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Allow(ctx, "bot:bob")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCounterLimiter_Unlimited(t *testing.T) {
	l := NewCounterLimiter(cache.NewMemoryCache(), 0)
	for i := 0; i < 100; i++ {
		ok, err := l.Allow(context.Background(), "k")
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestLocalLimiter_Burst(t *testing.T) {
	l := NewLocalLimiter(5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := l.Allow(ctx, "bot:user")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}

	ok, err := l.Allow(ctx, "bot:user")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalLimiter_IndependentKeys(t *testing.T) {
	l := NewLocalLimiter(1)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		ok, err := l.Allow(ctx, fmt.Sprintf("bot:user-%d", i))
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

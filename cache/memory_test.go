package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", val)
}

func TestMemoryCache_GetMissing(t *testing.T) {
	c := NewMemoryCache()

	_, ok, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_InvalidKey(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_, _, err := c.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	err = c.Set(ctx, "", "v", 0)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestMemoryCache_Expiration(t *testing.T) {
	now := time.Now()
	c := NewMemoryCache(WithTimeFunc(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 2*time.Second))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(3 * time.Second)

	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Now()
	c := NewMemoryCache(WithTimeFunc(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	now = now.Add(24 * time.Hour)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCache_SetNX(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "k", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "k", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	val, _, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "first", val)
}

func TestMemoryCache_SetNXAfterExpiry(t *testing.T) {
	now := time.Now()
	c := NewMemoryCache(WithTimeFunc(func() time.Time { return now }))
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "k", "first", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Second)

	ok, err = c.SetNX(ctx, "k", "second", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCache_Incr(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := c.Incr(ctx, "counter", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
}

func TestMemoryCache_IncrWindowReset(t *testing.T) {
	now := time.Now()
	c := NewMemoryCache(WithTimeFunc(func() time.Time { return now }))
	ctx := context.Background()

	n, err := c.Incr(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Incr(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	now = now.Add(2 * time.Minute)

	n, err = c.Incr(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Delete(ctx, "k"))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting a missing key is not an error.
	require.NoError(t, c.Delete(ctx, "k"))
}

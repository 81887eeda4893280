package validation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AltairaLabs/DialogKit/cache"
)

const rateLimitWindow = time.Minute

// CounterLimiter enforces a fixed-window request limit on top of a shared
// cache counter, so the limit holds across processes sharing the cache.
type CounterLimiter struct {
	cache  cache.Cache
	limit  int
	window time.Duration
}

// NewCounterLimiter builds a limiter allowing limit requests per minute.
func NewCounterLimiter(c cache.Cache, limit int) *CounterLimiter {
	return &CounterLimiter{cache: c, limit: limit, window: rateLimitWindow}
}

// Allow increments the caller's window counter and reports whether it is
// still within the limit. The counter keeps ticking on rejected requests,
// so a user hammering past the limit stays limited until the window lapses.
func (l *CounterLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	n, err := l.cache.Incr(ctx, "ratelimit:"+key, l.window)
	if err != nil {
		return false, fmt.Errorf("rate counter: %w", err)
	}
	return n <= int64(l.limit), nil
}

// LocalLimiter enforces per-key limits with in-process token buckets. It is
// the single-process alternative to CounterLimiter; counters are advisory,
// so losing them on restart is acceptable.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    int
}

// NewLocalLimiter builds an in-memory limiter allowing limit requests per
// minute per key, with bursts up to the full limit.
func NewLocalLimiter(limit int) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
	}
}

// Allow reports whether one more request from key fits its token bucket.
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(l.limit)/rateLimitWindow.Seconds()), l.limit)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow(), nil
}

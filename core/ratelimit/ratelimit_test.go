package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemoryStoreWindowExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	count, err := store.Increment(ctx, "user-1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, err = store.Increment(ctx, "user-1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	clock.Advance(59 * time.Second)
	count, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	clock.Advance(time.Second)
	count, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Zero(t, count)

	count, err = store.Increment(ctx, "user-1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestMemoryStoreEvict(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Increment(ctx, "k", time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Evict(ctx, "k"))

	count, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestLimiterAllowsUpToLimitPerKey(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := NewLimiter(NewMemoryStore(WithClock(clock.Now)), 2, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.Allow(ctx, "a"))
	require.NoError(t, limiter.Allow(ctx, "a"))
	require.ErrorIs(t, limiter.Allow(ctx, "a"), ErrLimitExceeded)
	require.NoError(t, limiter.Allow(ctx, "b"))

	clock.Advance(time.Minute)
	require.NoError(t, limiter.Allow(ctx, "a"))

	require.NoError(t, limiter.Reset(ctx, "b"))
	require.NoError(t, limiter.Allow(ctx, "b"))
	require.NoError(t, limiter.Allow(ctx, "b"))
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	var nilLimiter *Limiter
	require.NoError(t, nilLimiter.Allow(context.Background(), "x"))

	limiter := NewLimiter(NewMemoryStore(), 0, time.Minute)
	for range 10 {
		require.NoError(t, limiter.Allow(context.Background(), "x"))
	}
}

func TestRedisStoreFromURLRejectsBadURL(t *testing.T) {
	_, err := NewRedisStoreFromURL("not-a-url://")
	require.Error(t, err)
}

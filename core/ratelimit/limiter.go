package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

// Limiter allows at most Limit events per key in each fixed Window.
type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
}

func NewLimiter(store Store, limit int64, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

// Allow records one event for key and returns ErrLimitExceeded once the key
// has used up its window. A nil Limiter or a non-positive limit allows
// everything.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	if l == nil || l.store == nil || l.limit <= 0 {
		return nil
	}

	count, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		return fmt.Errorf("failed to record rate limit hit: %w", err)
	}
	if count > l.limit {
		return fmt.Errorf("%w: %d requests in %s", ErrLimitExceeded, count, l.window)
	}
	return nil
}

// Reset forgets the usage of key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if l == nil || l.store == nil {
		return nil
	}
	return l.store.Evict(ctx, key)
}

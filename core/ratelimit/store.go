// Package ratelimit provides fixed-window counters behind an injected store so
// limits are scoped to whoever constructs them instead of to the process.
package ratelimit

import (
	"context"
	"time"
)

// Store keeps windowed counters keyed by caller-chosen strings.
type Store interface {
	// Get returns the current count for key, zero if the key is absent or
	// its window has expired.
	Get(ctx context.Context, key string) (int64, error)
	// Increment adds one to key and returns the new count. The window starts
	// with the first increment and the counter resets when it elapses.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	// Evict removes key.
	Evict(ctx context.Context, key string) error
}

// Package ratelimit implements a fixed window request limiter on top of pkg/cache.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"ai-platform-be/pkg/cache"
)

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAfter is how long until the current window closes.
	ResetAfter time.Duration
}

// Limiter allows limit requests per identifier in each window.
type Limiter struct {
	store  cache.Store
	limit  int
	window time.Duration
}

// NewLimiter expects store to already be scoped to the rate limit namespace.
func NewLimiter(store cache.Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

func (l *Limiter) Limit() int {
	return l.limit
}

// Allow counts one request for identifier. The first request of a window
// starts its expiry.
func (l *Limiter) Allow(ctx context.Context, identifier string) (Result, error) {
	count, err := l.store.Increment(ctx, identifier, 1)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit increment: %w", err)
	}
	if count == 1 {
		if _, err := l.store.Expire(ctx, identifier, l.window); err != nil {
			return Result{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	reset := l.window
	if ttl, err := l.store.TTL(ctx, identifier); err == nil && ttl > 0 {
		reset = ttl
	} else if err == nil && ttl == cache.NoExpiration {
		// counter without expiry; re-arm the window
		_, _ = l.store.Expire(ctx, identifier, l.window)
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:    count <= int64(l.limit),
		Limit:      l.limit,
		Remaining:  remaining,
		ResetAfter: reset,
	}, nil
}

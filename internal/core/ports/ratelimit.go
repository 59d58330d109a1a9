package ports

import (
	"context"
	"time"
)

// RateDecision is the outcome of one rate limit check.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter counts hits per key within a window. Implementations return an
// allowing decision alongside a non-nil error when their backend fails.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateDecision, error)
}

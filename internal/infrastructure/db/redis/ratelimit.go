package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/notekeeper/notes-platform/internal/core/ports"
)

const defaultRateLimitPrefix = "ratelimit"

// RateLimiter implements ports.RateLimiter as a fixed-window counter shared
// by every instance pointing at the same Redis. Key format: <prefix>:<key>
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRateLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RateLimiter {
	if prefix == "" {
		prefix = defaultRateLimitPrefix
	}
	return &RateLimiter{client: client, limit: limit, window: window, prefix: prefix}
}

// Allow counts one hit against key. On a Redis error the returned decision
// allows the request and err is non-nil; callers decide whether to fail open.
func (l *RateLimiter) Allow(ctx context.Context, key string) (ports.RateDecision, error) {
	redisKey := l.key(key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return ports.RateDecision{Allowed: true, Limit: l.limit, Remaining: l.limit}, fmt.Errorf("rate limit incr: %w", err)
	}

	count := incr.Val()
	ttl := pttl.Val()
	// A fresh counter, or one left without expiry by an earlier failure.
	if count == 1 || ttl < 0 {
		if err := l.client.PExpire(ctx, redisKey, l.window).Err(); err != nil {
			return ports.RateDecision{Allowed: true, Limit: l.limit, Remaining: l.limit}, fmt.Errorf("rate limit expire: %w", err)
		}
		ttl = l.window
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	d := ports.RateDecision{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}

func (l *RateLimiter) key(key string) string {
	return fmt.Sprintf("%s:%s", l.prefix, key)
}

// Package ratelimit enforces fixed-window request ceilings per caller and
// feature, plus plan-based daily quotas.
//
// A Limiter counts hits for a key inside a window and answers allow/deny with
// the metadata clients need (limit, remaining, reset). MemoryLimiter serves a
// single instance; RedisLimiter shares counters across instances; FallbackLimiter
// prefers Redis and degrades to memory when Redis is unreachable.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Count     int // hits in the window including this one
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time until the window resets, rounded up to a whole second.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	return wait.Truncate(time.Second) + time.Second
}

// Limiter counts a hit for key in a fixed window of the given size.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
	Reset(ctx context.Context, key string) error
}

func decide(count, limit int, resetAt time.Time) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Count:     count,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript increments the window counter and starts its expiry on the first
// hit. A key left without a TTL (for example by a manual SET) gets one too.
var incrScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// RedisLimiter keeps fixed windows in Redis so every instance shares them.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedis returns a limiter storing keys under prefix.
func NewRedis(client redis.UniversalClient, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "thesisai:rl:"
	}
	return &RedisLimiter{client: client, prefix: prefix, now: time.Now}
}

// Allow counts a hit for key.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, d time.Duration) (Decision, error) {
	res, err := incrScript.Run(ctx, l.client, []string{l.prefix + key}, d.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis limiter: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("redis limiter: unexpected reply %v", res)
	}
	resetAt := l.now().Add(time.Duration(res[1]) * time.Millisecond)
	return decide(int(res[0]), limit, resetAt), nil
}

// Reset deletes key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}

// Ping checks connectivity.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

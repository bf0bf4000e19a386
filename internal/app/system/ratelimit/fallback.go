package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BackendStatus describes which backend is answering.
type BackendStatus struct {
	RedisConfigured bool `json:"redis_configured"`
	RedisConnected  bool `json:"redis_connected"`
	UsingFallback   bool `json:"using_fallback"`
}

// FallbackLimiter sends every call to Redis and switches to the in-memory
// limiter when Redis fails. While degraded it retries Redis at most once per
// retryEvery.
type FallbackLimiter struct {
	redis      *RedisLimiter
	memory     *MemoryLimiter
	log        *zap.Logger
	retryEvery time.Duration

	mu         sync.Mutex
	degraded   bool
	lastFailed time.Time
}

// NewFallback wraps redis (which may be nil) with memory as the fallback.
func NewFallback(redis *RedisLimiter, memory *MemoryLimiter, logger *zap.Logger) *FallbackLimiter {
	return &FallbackLimiter{
		redis:      redis,
		memory:     memory,
		log:        logger,
		retryEvery: 30 * time.Second,
		degraded:   redis == nil,
	}
}

// Allow counts a hit on whichever backend is healthy.
func (f *FallbackLimiter) Allow(ctx context.Context, key string, limit int, d time.Duration) (Decision, error) {
	if f.useRedis() {
		dec, err := f.redis.Allow(ctx, key, limit, d)
		if err == nil {
			f.markHealthy()
			return dec, nil
		}
		f.markFailed(err)
	}
	return f.memory.Allow(ctx, key, limit, d)
}

// Reset clears key on both backends.
func (f *FallbackLimiter) Reset(ctx context.Context, key string) error {
	if f.redis != nil {
		if err := f.redis.Reset(ctx, key); err != nil {
			f.markFailed(err)
		}
	}
	return f.memory.Reset(ctx, key)
}

// Status reports the active backend.
func (f *FallbackLimiter) Status() BackendStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return BackendStatus{
		RedisConfigured: f.redis != nil,
		RedisConnected:  f.redis != nil && !f.degraded,
		UsingFallback:   f.degraded,
	}
}

// Stop stops the in-memory sweeper.
func (f *FallbackLimiter) Stop() { f.memory.Stop() }

func (f *FallbackLimiter) useRedis() bool {
	if f.redis == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.degraded || time.Since(f.lastFailed) >= f.retryEvery
}

func (f *FallbackLimiter) markFailed(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.degraded {
		f.log.Warn("redis unavailable, falling back to in-memory rate limits", zap.Error(err))
	}
	f.degraded = true
	f.lastFailed = time.Now()
}

func (f *FallbackLimiter) markHealthy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.degraded {
		f.log.Info("redis rate limiting restored")
	}
	f.degraded = false
}

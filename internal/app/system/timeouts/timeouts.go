// Package timeouts holds the deadlines used for database and upstream calls
// made while serving a request.
//
// Pick the smallest bucket that fits:
//   - Ping: health checks
//   - Short: single-document reads and writes
//   - Medium: list queries and aggregations
//   - Long: multi-collection writes and transactions
//   - Upstream: AI and paper-provider calls
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults used until Configure or ConfigureFromEnv changes them.
const (
	DefaultPing     = 2 * time.Second
	DefaultShort    = 5 * time.Second
	DefaultMedium   = 10 * time.Second
	DefaultLong     = 30 * time.Second
	DefaultUpstream = 45 * time.Second
)

// Config holds timeout values. Zero fields leave the current value alone.
type Config struct {
	Ping     time.Duration
	Short    time.Duration
	Medium   time.Duration
	Long     time.Duration
	Upstream time.Duration
}

var (
	mu      sync.RWMutex
	current = defaults()
)

func defaults() Config {
	return Config{
		Ping:     DefaultPing,
		Short:    DefaultShort,
		Medium:   DefaultMedium,
		Long:     DefaultLong,
		Upstream: DefaultUpstream,
	}
}

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(current)
}

// Ping is the budget for health checks.
func Ping() time.Duration { return get(func(c Config) time.Duration { return c.Ping }) }

// Short is the budget for single-document operations.
func Short() time.Duration { return get(func(c Config) time.Duration { return c.Short }) }

// Medium is the budget for list queries and aggregations.
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }

// Long is the budget for transactions and multi-collection writes.
func Long() time.Duration { return get(func(c Config) time.Duration { return c.Long }) }

// Upstream is the budget for calls to the AI model and paper providers.
func Upstream() time.Duration { return get(func(c Config) time.Duration { return c.Upstream }) }

// Configure overrides the non-zero values in cfg. Call it during startup.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	merge(&current, cfg)
}

func merge(dst *Config, src Config) {
	if src.Ping > 0 {
		dst.Ping = src.Ping
	}
	if src.Short > 0 {
		dst.Short = src.Short
	}
	if src.Medium > 0 {
		dst.Medium = src.Medium
	}
	if src.Long > 0 {
		dst.Long = src.Long
	}
	if src.Upstream > 0 {
		dst.Upstream = src.Upstream
	}
}

// Reset restores the defaults. Tests use it.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = defaults()
}

// ConfigureFromEnv reads THESISAI_TIMEOUT_{PING,SHORT,MEDIUM,LONG,UPSTREAM}.
// Unset or unparsable values are skipped. It returns how many were applied.
func ConfigureFromEnv() int {
	var cfg Config
	n := 0
	for name, dst := range map[string]*time.Duration{
		"THESISAI_TIMEOUT_PING":     &cfg.Ping,
		"THESISAI_TIMEOUT_SHORT":    &cfg.Short,
		"THESISAI_TIMEOUT_MEDIUM":   &cfg.Medium,
		"THESISAI_TIMEOUT_LONG":     &cfg.Long,
		"THESISAI_TIMEOUT_UPSTREAM": &cfg.Upstream,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
			n++
		}
	}
	Configure(cfg)
	return n
}

// Current returns a copy of the active configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// WithTimeout derives a context with the given timeout. The returned cancel
// logs a warning when the deadline was what ended the operation.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "accept advisor request")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if log != nil && ctx.Err() == context.DeadlineExceeded {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}

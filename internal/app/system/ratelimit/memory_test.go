package ratelimit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMemory(t *testing.T) (*MemoryLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	l := NewMemory(time.Hour)
	l.now = clock.now
	t.Cleanup(l.Stop)
	return l, clock
}

func TestMemoryLimiter_DeniesAfterLimit(t *testing.T) {
	l, _ := newTestMemory(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		dec, err := l.Allow(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "hit %d should be allowed", i)
		assert.Equal(t, 3-i, dec.Remaining)
	}

	dec, err := l.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, 0, dec.Remaining)
	assert.Equal(t, 4, dec.Count)
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	l, clock := newTestMemory(t)
	ctx := context.Background()

	first, _ := l.Allow(ctx, "k", 1, time.Minute)
	denied, _ := l.Allow(ctx, "k", 1, time.Minute)
	require.True(t, first.Allowed)
	require.False(t, denied.Allowed)
	assert.Equal(t, clock.t.Add(time.Minute), denied.ResetAt)

	clock.advance(time.Minute)
	again, _ := l.Allow(ctx, "k", 1, time.Minute)
	assert.True(t, again.Allowed, "new window should allow")
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestMemory(t)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "a", 1, time.Minute)
	dec, _ := l.Allow(ctx, "b", 1, time.Minute)
	assert.True(t, dec.Allowed)
}

func TestMemoryLimiter_Reset(t *testing.T) {
	l, _ := newTestMemory(t)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, l.Reset(ctx, "k"))
	dec, _ := l.Allow(ctx, "k", 1, time.Minute)
	assert.True(t, dec.Allowed)
}

func TestMemoryLimiter_SweepDropsExpired(t *testing.T) {
	l, clock := newTestMemory(t)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "old", 5, time.Minute)
	clock.advance(2 * time.Minute)
	_, _ = l.Allow(ctx, "new", 5, time.Minute)

	l.sweep()
	assert.Equal(t, 1, l.Len())
}

func TestMemoryLimiter_StopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewMemory(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	l.Stop()
	l.Stop()
}

func TestDecision_RetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		reset time.Time
		want  time.Duration
	}{
		{now.Add(30 * time.Second), 31 * time.Second},
		{now.Add(1500 * time.Millisecond), 2 * time.Second},
		{now.Add(-time.Second), time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Decision{ResetAt: tt.reset}.RetryAfter(now))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded for first entry", "203.0.113.7, 10.0.0.1", "", "10.0.0.2:1234", "203.0.113.7"},
		{"real ip", "", "198.51.100.4", "10.0.0.2:1234", "198.51.100.4"},
		{"remote addr", "", "", "192.0.2.1:5555", "192.0.2.1"},
		{"remote addr without port", "", "", "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestPlanHelpers(t *testing.T) {
	q, ok := DailyQuota("pro", FeatureAICompletions)
	assert.True(t, ok)
	assert.Equal(t, 100, q)

	q, ok = DailyQuota("unknown-plan", FeaturePaperSearch)
	assert.True(t, ok)
	assert.Equal(t, 20, q, "unknown plans fall back to free")

	q, _ = DailyQuota("institutional", FeatureAICompletions)
	assert.Equal(t, Unlimited, q)

	_, ok = DailyQuota("free", FeatureMessages)
	assert.False(t, ok)

	at := time.Date(2026, 3, 1, 23, 59, 0, 0, time.FixedZone("PHT", 8*3600))
	assert.Equal(t, "2026-03-01", Day(at))
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), NextDay(at))

	assert.Equal(t, 20, scale(10, 2))
	assert.Equal(t, 1, scale(1, 0.1))
	assert.Equal(t, Unlimited, scale(Unlimited, 3))
	assert.Equal(t, 10, scale(10, 0))
}

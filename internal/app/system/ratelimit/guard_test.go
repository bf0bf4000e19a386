package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type recordedViolations struct {
	mu   sync.Mutex
	list []models.RateLimitViolation
}

func (r *recordedViolations) RecordViolation(_ context.Context, v models.RateLimitViolation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, v)
	return nil
}

func (r *recordedViolations) all() []models.RateLimitViolation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.RateLimitViolation(nil), r.list...)
}

type fakeUsage struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *fakeUsage) Increment(_ context.Context, userID primitive.ObjectID, feature, day string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	k := userID.Hex() + feature + day
	f.counts[k]++
	return f.counts[k], nil
}

type fixedWhitelist struct{ rule *models.WhitelistRule }

func (f fixedWhitelist) Match(context.Context, string, string, string, string) (*models.WhitelistRule, error) {
	return f.rule, nil
}

func newTestService(t *testing.T, settings Settings, deps Deps) *Service {
	t.Helper()
	if deps.Limiter == nil {
		mem := NewMemory(time.Hour)
		t.Cleanup(mem.Stop)
		deps.Limiter = mem
	}
	return NewService(settings, deps, zap.NewNop())
}

func serve(t *testing.T, h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func anonRequest() *http.Request {
	r := httptest.NewRequest("GET", "/api/paper-search?q=x", nil)
	r.RemoteAddr = "203.0.113.10:4000"
	return r
}

func userRequest(id primitive.ObjectID, plan string) *http.Request {
	return auth.WithTestUser(anonRequest(), &auth.SessionUser{ID: id.Hex(), Role: "student", Plan: plan})
}

func TestGuard_DisabledPassesEverything(t *testing.T) {
	svc := newTestService(t, Settings{Enabled: false}, Deps{})
	h := svc.Guard(Options{Feature: "test", Limit: 1})(okHandler())

	for i := 0; i < 5; i++ {
		rec := serve(t, h, anonRequest())
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestGuard_BlocksWithEnvelopeAndHeaders(t *testing.T) {
	violations := &recordedViolations{}
	svc := newTestService(t, Settings{Enabled: true}, Deps{Violations: violations})
	h := svc.Guard(Options{Feature: FeaturePaperSearch, Limit: 2})(okHandler())

	for i := 0; i < 2; i++ {
		rec := serve(t, h, anonRequest())
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := serve(t, h, anonRequest())
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Details Denial `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, CodeRateLimited, body.Error.Code)
	assert.Equal(t, FeaturePaperSearch, body.Error.Details.Feature)
	assert.Equal(t, 2, body.Error.Details.Limit)

	got := violations.all()
	require.Len(t, got, 1)
	assert.Equal(t, models.ViolationPerMinute, got[0].ViolationType)
	assert.Equal(t, models.IdentifierIP, got[0].IdentifierType)
	assert.Equal(t, "203.0.113.10", got[0].Identifier)
	assert.Equal(t, models.ActionBlocked, got[0].ActionTaken)
	assert.Equal(t, 3, got[0].ActualCount)
}

func TestGuard_ShadowModeNeverBlocks(t *testing.T) {
	violations := &recordedViolations{}
	svc := newTestService(t, Settings{Enabled: true, ShadowMode: true}, Deps{Violations: violations})
	h := svc.Guard(Options{Feature: "test", Limit: 1})(okHandler())

	for i := 0; i < 4; i++ {
		assert.Equal(t, http.StatusOK, serve(t, h, anonRequest()).Code)
	}
	got := violations.all()
	require.Len(t, got, 3)
	for _, v := range got {
		assert.Equal(t, models.ActionLogged, v.ActionTaken)
	}
}

func TestGuard_SignedInUsersKeyedByID(t *testing.T) {
	svc := newTestService(t, Settings{Enabled: true}, Deps{})
	h := svc.Guard(Options{Feature: "test", Limit: 1})(okHandler())

	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	assert.Equal(t, http.StatusOK, serve(t, h, userRequest(a, "free")).Code)
	assert.Equal(t, http.StatusOK, serve(t, h, userRequest(b, "free")).Code, "same IP, different user")
	assert.Equal(t, http.StatusTooManyRequests, serve(t, h, userRequest(a, "free")).Code)
}

func TestGuard_DailyQuota(t *testing.T) {
	violations := &recordedViolations{}
	svc := newTestService(t, Settings{Enabled: true}, Deps{Usage: &fakeUsage{}, Violations: violations})
	h := svc.Guard(Options{Feature: FeatureAICompletions, Limit: 100, DailyQuota: true})(okHandler())

	user := primitive.NewObjectID()
	for i := 0; i < 10; i++ {
		rec := serve(t, h, userRequest(user, "free"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "10", rec.Header().Get("X-Quota-Limit"))
	}

	rec := serve(t, h, userRequest(user, "free"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeQuotaExceeded)

	got := violations.all()
	require.Len(t, got, 1)
	assert.Equal(t, models.ViolationDailyQuota, got[0].ViolationType)
	require.NotNil(t, got[0].UserID)
	assert.Equal(t, user, *got[0].UserID)
}

func TestGuard_DailyQuotaSkipsAnonymous(t *testing.T) {
	usage := &fakeUsage{}
	svc := newTestService(t, Settings{Enabled: true}, Deps{Usage: usage})
	h := svc.Guard(Options{Feature: FeaturePaperSearch, Limit: 100, DailyQuota: true})(okHandler())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(t, h, anonRequest()).Code)
	}
	assert.Empty(t, usage.counts)
}

func TestGuard_WhitelistUnlimited(t *testing.T) {
	rule := &models.WhitelistRule{Scope: models.WhitelistIP, Value: "203.0.113.10", Unlimited: true}
	svc := newTestService(t, Settings{Enabled: true}, Deps{Whitelist: fixedWhitelist{rule}})
	h := svc.Guard(Options{Feature: "test", Limit: 1})(okHandler())

	for i := 0; i < 3; i++ {
		rec := serve(t, h, anonRequest())
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "unlimited", rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestGuard_WhitelistMultiplier(t *testing.T) {
	rule := &models.WhitelistRule{Scope: models.WhitelistIP, Value: "203.0.113.10", QuotaMultiplier: 2}
	svc := newTestService(t, Settings{Enabled: true}, Deps{Whitelist: fixedWhitelist{rule}})
	h := svc.Guard(Options{Feature: "test", Limit: 1})(okHandler())

	assert.Equal(t, http.StatusOK, serve(t, h, anonRequest()).Code)
	assert.Equal(t, http.StatusOK, serve(t, h, anonRequest()).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(t, h, anonRequest()).Code)
}

func TestGuard_PlanWindowUsesPlanCeiling(t *testing.T) {
	svc := newTestService(t, Settings{Enabled: true}, Deps{})
	h := svc.Guard(Options{Feature: FeatureCore, Window: CoreWindow, PlanWindow: true})(okHandler())

	rec := serve(t, h, userRequest(primitive.NewObjectID(), "premium"))
	assert.Equal(t, "1000", rec.Header().Get("X-RateLimit-Limit"))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (Decision, error) {
	return Decision{}, assert.AnError
}
func (failingLimiter) Reset(context.Context, string) error { return assert.AnError }

func TestGuard_FailsOpen(t *testing.T) {
	svc := NewService(Settings{Enabled: true}, Deps{Limiter: failingLimiter{}}, zap.NewNop())
	h := svc.Guard(Options{Feature: "test", Limit: 1})(okHandler())
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(t, h, anonRequest()).Code)
	}
}

func TestFallback_WithoutRedisUsesMemory(t *testing.T) {
	mem := NewMemory(time.Hour)
	fb := NewFallback(nil, mem, zap.NewNop())
	defer fb.Stop()

	dec, err := fb.Allow(context.Background(), "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	st := fb.Status()
	assert.False(t, st.RedisConfigured)
	assert.True(t, st.UsingFallback)

	svc := NewService(Settings{Enabled: true, ShadowMode: true}, Deps{Limiter: fb}, zap.NewNop())
	status := svc.Status()
	assert.True(t, status.ShadowMode)
	assert.True(t, status.Backend.UsingFallback)
	assert.Equal(t, 100, status.DefaultPerMinute)
	assert.Contains(t, status.Plans, "premium")
}

func TestLoginLimiter(t *testing.T) {
	mem := NewMemory(time.Hour)
	defer mem.Stop()
	violations := &recordedViolations{}
	svc := NewService(Settings{Enabled: true}, Deps{Limiter: mem, Violations: violations}, zap.NewNop())
	ll := NewLoginLimiter(mem, LoginLimits{PerIP: 100, IPWindow: time.Minute, PerEmail: 2, EmailWindow: time.Minute}, svc, zap.NewNop())

	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	ok, _ := ll.Check(r, "Ana@Example.com")
	assert.True(t, ok)
	ok, _ = ll.Check(r, "ana@example.com ")
	assert.True(t, ok)
	ok, msg := ll.Check(r, "ana@example.com")
	assert.False(t, ok)
	assert.NotEmpty(t, msg)

	got := violations.all()
	require.Len(t, got, 1)
	assert.Equal(t, models.ViolationAuthFailures, got[0].ViolationType)
	assert.Equal(t, "ana@example.com", got[0].Identifier)

	ll.ResetEmail(context.Background(), "ANA@example.com")
	ok, _ = ll.Check(r, "ana@example.com")
	assert.True(t, ok)
}

// manualClock drives a MemoryLimiter and a Service from one time source.
type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestGuard_CoreCeilingSpansFifteenMinutes(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"core options", CoreOptions()},
		{"plan window without explicit window", Options{Feature: FeatureCore, PlanWindow: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &manualClock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
			start := clock.now()
			mem := NewMemory(time.Hour)
			t.Cleanup(mem.Stop)
			mem.now = clock.now
			svc := newTestService(t, Settings{Enabled: true}, Deps{Limiter: mem})
			svc.now = clock.now
			h := svc.Guard(tt.opts)(okHandler())
			uid := primitive.NewObjectID()

			rec := serve(t, h, userRequest(uid, models.PlanFree))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
			assert.Equal(t, strconv.FormatInt(start.Add(CoreWindow).Unix(), 10), rec.Header().Get("X-RateLimit-Reset"))

			for i := 1; i < 100; i++ {
				require.Equal(t, http.StatusOK, serve(t, h, userRequest(uid, models.PlanFree)).Code)
			}
			assert.Equal(t, http.StatusTooManyRequests, serve(t, h, userRequest(uid, models.PlanFree)).Code)

			clock.advance(61 * time.Second)
			assert.Equal(t, http.StatusTooManyRequests, serve(t, h, userRequest(uid, models.PlanFree)).Code)

			clock.advance(CoreWindow)
			assert.Equal(t, http.StatusOK, serve(t, h, userRequest(uid, models.PlanFree)).Code)
		})
	}
}

func TestGate_OnlyCountsWhenCalled(t *testing.T) {
	usage := &fakeUsage{}
	svc := newTestService(t, Settings{Enabled: true}, Deps{Usage: usage})
	gate := svc.Gate(Options{Feature: FeatureAICompletions, Limit: 10, DailyQuota: true})
	uid := primitive.NewObjectID()

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		require.True(t, gate(rec, userRequest(uid, models.PlanFree)))
	}
	rec := httptest.NewRecorder()
	assert.False(t, gate(rec, userRequest(uid, models.PlanFree)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	disabled := newTestService(t, Settings{Enabled: false}, Deps{Usage: usage})
	assert.True(t, disabled.Gate(Options{Feature: FeatureAICompletions, DailyQuota: true})(httptest.NewRecorder(), userRequest(uid, models.PlanFree)))
}

func TestLoginLimiter_FollowsServiceSwitches(t *testing.T) {
	limits := LoginLimits{PerIP: 100, IPWindow: time.Minute, PerEmail: 1, EmailWindow: time.Minute}
	r := httptest.NewRequest("POST", "/api/auth/login", nil)

	t.Run("shadow mode records but allows", func(t *testing.T) {
		mem := NewMemory(time.Hour)
		defer mem.Stop()
		violations := &recordedViolations{}
		svc := NewService(Settings{Enabled: true, ShadowMode: true}, Deps{Limiter: mem, Violations: violations}, zap.NewNop())
		ll := NewLoginLimiter(mem, limits, svc, zap.NewNop())

		for i := 0; i < 3; i++ {
			ok, _ := ll.Check(r, "ben@example.com")
			assert.True(t, ok)
		}
		got := violations.all()
		require.Len(t, got, 2)
		assert.Equal(t, models.ActionLogged, got[0].ActionTaken)
	})

	t.Run("disabled passes without counting", func(t *testing.T) {
		mem := NewMemory(time.Hour)
		defer mem.Stop()
		violations := &recordedViolations{}
		svc := NewService(Settings{Enabled: false}, Deps{Limiter: mem, Violations: violations}, zap.NewNop())
		ll := NewLoginLimiter(mem, limits, svc, zap.NewNop())

		for i := 0; i < 3; i++ {
			ok, _ := ll.Check(r, "ben@example.com")
			assert.True(t, ok)
		}
		assert.Empty(t, violations.all())
		assert.Zero(t, mem.Len())
	})

	t.Run("enforcing records blocked", func(t *testing.T) {
		mem := NewMemory(time.Hour)
		defer mem.Stop()
		violations := &recordedViolations{}
		svc := NewService(Settings{Enabled: true}, Deps{Limiter: mem, Violations: violations}, zap.NewNop())
		ll := NewLoginLimiter(mem, limits, svc, zap.NewNop())

		ok, _ := ll.Check(r, "ben@example.com")
		require.True(t, ok)
		ok, _ = ll.Check(r, "ben@example.com")
		assert.False(t, ok)
		got := violations.all()
		require.Len(t, got, 1)
		assert.Equal(t, models.ActionBlocked, got[0].ActionTaken)
	})
}

package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Error codes of the 429 envelope.
const (
	CodeRateLimited   = jsonapi.CodeRateLimited
	CodeQuotaExceeded = "DAILY_QUOTA_EXCEEDED"
)

// UsageCounter increments and returns a user's daily use of a feature.
type UsageCounter interface {
	Increment(ctx context.Context, userID primitive.ObjectID, feature, day string) (int, error)
}

// WhitelistSource finds the rule that relaxes limits for a caller, if any.
type WhitelistSource interface {
	Match(ctx context.Context, userID, ip, plan, feature string) (*models.WhitelistRule, error)
}

// ViolationRecorder persists violation records.
type ViolationRecorder interface {
	RecordViolation(ctx context.Context, v models.RateLimitViolation) error
}

// AuditSink receives denied requests for the audit trail.
type AuditSink interface {
	RateLimited(ctx context.Context, r *http.Request, v models.RateLimitViolation)
}

// Observer receives decision counts for metrics.
type Observer interface {
	RateLimitDecision(feature, outcome string)
	RateLimitViolation(feature, violationType string)
}

// Settings are the operator switches.
type Settings struct {
	Enabled          bool
	ShadowMode       bool // evaluate and record, never block
	DefaultPerMinute int
}

// Deps are the collaborators of a Service. Everything except Limiter may be nil.
type Deps struct {
	Limiter    Limiter
	Usage      UsageCounter
	Whitelist  WhitelistSource
	Violations ViolationRecorder
	Audit      AuditSink
	Observer   Observer
}

// Service evaluates limits for HTTP requests.
type Service struct {
	settings Settings
	deps     Deps
	log      *zap.Logger
	now      func() time.Time

	wlMu    sync.Mutex
	wlCache map[string]cachedRule
}

type cachedRule struct {
	rule    *models.WhitelistRule
	expires time.Time
}

const whitelistCacheTTL = time.Minute

// NewService returns a Service. A zero DefaultPerMinute becomes 100.
func NewService(settings Settings, deps Deps, logger *zap.Logger) *Service {
	if settings.DefaultPerMinute <= 0 {
		settings.DefaultPerMinute = 100
	}
	return &Service{
		settings: settings,
		deps:     deps,
		log:      logger,
		now:      time.Now,
		wlCache:  make(map[string]cachedRule),
	}
}

// Options configure one Guard.
type Options struct {
	Feature    string
	Limit      int           // hits per Window; zero means the service default per minute
	Window     time.Duration // zero means one minute, or CoreWindow with PlanWindow
	PlanWindow bool          // take Limit from the caller's plan (core API ceiling)
	DailyQuota bool          // also enforce the plan's daily quota for Feature
	Identifier string        // models.Identifier*; empty means user, falling back to IP
}

// Status is reported on the admin status endpoint.
type Status struct {
	Enabled          bool                  `json:"enabled"`
	ShadowMode       bool                  `json:"shadow_mode"`
	DefaultPerMinute int                   `json:"default_per_minute"`
	Backend          BackendStatus         `json:"backend"`
	Plans            map[string]PlanLimits `json:"plans"`
}

// Status describes the current configuration and backend health.
func (s *Service) Status() Status {
	st := Status{
		Enabled:          s.settings.Enabled,
		ShadowMode:       s.settings.ShadowMode,
		DefaultPerMinute: s.settings.DefaultPerMinute,
		Plans:            AllPlanLimits(),
	}
	if fb, ok := s.deps.Limiter.(*FallbackLimiter); ok {
		st.Backend = fb.Status()
	}
	return st
}

type caller struct {
	userID primitive.ObjectID
	signed bool
	plan   string
	ip     string
	idType string
	id     string
}

func (s *Service) identify(r *http.Request, idType string) caller {
	c := caller{ip: ClientIP(r), plan: models.PlanFree}
	if u, ok := auth.CurrentUser(r); ok {
		if oid, err := primitive.ObjectIDFromHex(u.ID); err == nil {
			c.userID, c.signed = oid, true
		}
		if models.IsValidPlan(u.Plan) {
			c.plan = u.Plan
		}
	}

	switch {
	case idType == models.IdentifierIP || (idType != models.IdentifierIPUserPair && !c.signed):
		c.idType, c.id = models.IdentifierIP, c.ip
	case idType == models.IdentifierIPUserPair:
		c.idType = models.IdentifierIPUserPair
		c.id = c.ip + "|" + c.userID.Hex()
	default:
		c.idType, c.id = models.IdentifierUser, c.userID.Hex()
	}
	return c
}

// Gate is a limit check run from inside a handler, once the handler knows
// the request will reach the metered work. It reports whether the handler may
// continue; on false the 429 has already been written.
type Gate func(w http.ResponseWriter, r *http.Request) bool

// Gate returns a Gate enforcing opts.
func (s *Service) Gate(opts Options) Gate {
	if opts.Window <= 0 {
		opts.Window = time.Minute
		if opts.PlanWindow {
			opts.Window = CoreWindow
		}
	}
	return func(w http.ResponseWriter, r *http.Request) bool {
		if !s.settings.Enabled {
			return true
		}
		return s.check(w, r, opts)
	}
}

// Guard returns middleware enforcing opts on every request it wraps.
func (s *Service) Guard(opts Options) func(http.Handler) http.Handler {
	gate := s.Gate(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// check applies the window limit and daily quota. It returns false after
// writing a 429.
func (s *Service) check(w http.ResponseWriter, r *http.Request, opts Options) bool {
	ctx := r.Context()
	c := s.identify(r, opts.Identifier)

	multiplier := 1.0
	if rule := s.whitelist(ctx, c, opts.Feature); rule != nil {
		if rule.Unlimited {
			w.Header().Set("X-RateLimit-Limit", "unlimited")
			w.Header().Set("X-RateLimit-Remaining", "unlimited")
			s.observe(opts.Feature, "whitelisted")
			return true
		}
		multiplier = rule.QuotaMultiplier
	}

	limit := opts.Limit
	if opts.PlanWindow {
		limit = LimitsFor(c.plan).CorePer15Min
	}
	if limit == 0 {
		limit = s.settings.DefaultPerMinute
	}
	limit = scale(limit, multiplier)

	if limit != Unlimited {
		key := opts.Feature + ":" + c.idType + ":" + c.id
		dec, err := s.deps.Limiter.Allow(ctx, key, limit, opts.Window)
		if err != nil {
			s.log.Warn("rate limiter unavailable; allowing request",
				zap.String("feature", opts.Feature), zap.Error(err))
			s.observe(opts.Feature, "error")
		} else {
			setHeaders(w, dec.Limit, dec.Remaining, dec.ResetAt)
			if !dec.Allowed {
				v := s.violation(r, c, opts.Feature, models.ViolationPerMinute, dec.Limit, dec.Count,
					dec.ResetAt.Add(-opts.Window), dec.ResetAt)
				if !s.deny(w, r, v, CodeRateLimited, "Too many requests. Please slow down.", dec.ResetAt) {
					return false
				}
			}
		}
	}

	if opts.DailyQuota && c.signed && s.deps.Usage != nil {
		if !s.checkDaily(w, r, c, opts.Feature, multiplier) {
			return false
		}
	}

	s.observe(opts.Feature, "allowed")
	return true
}

func (s *Service) checkDaily(w http.ResponseWriter, r *http.Request, c caller, feature string, multiplier float64) bool {
	quota, ok := DailyQuota(c.plan, feature)
	if !ok || quota == Unlimited {
		return true
	}
	quota = scale(quota, multiplier)

	now := s.now()
	count, err := s.deps.Usage.Increment(r.Context(), c.userID, feature, Day(now))
	if err != nil {
		s.log.Warn("usage counter unavailable; allowing request",
			zap.String("feature", feature), zap.Error(err))
		return true
	}

	reset := NextDay(now)
	remaining := quota - count
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-Quota-Limit", strconv.Itoa(quota))
	w.Header().Set("X-Quota-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-Quota-Reset", strconv.FormatInt(reset.Unix(), 10))

	if count <= quota {
		return true
	}
	v := s.violation(r, c, feature, models.ViolationDailyQuota, quota, count, reset.Add(-24*time.Hour), reset)
	return s.deny(w, r, v, CodeQuotaExceeded, "Daily limit for your plan reached. Upgrade or try again tomorrow.", reset)
}

// deny records v and writes the 429, unless shadow mode is on. It returns
// true when the request may continue.
func (s *Service) deny(w http.ResponseWriter, r *http.Request, v models.RateLimitViolation, code, msg string, reset time.Time) bool {
	if s.settings.ShadowMode {
		v.ActionTaken = models.ActionLogged
	} else {
		v.ActionTaken = models.ActionBlocked
	}
	s.record(r.Context(), r, v)

	if s.settings.ShadowMode {
		s.observe(v.Feature, "shadow_denied")
		return true
	}
	s.observe(v.Feature, "denied")

	retry := decisionRetry(reset, s.now())
	w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
	jsonapi.ErrorDetails(w, http.StatusTooManyRequests, code, msg, Denial{
		Feature:   v.Feature,
		Limit:     v.LimitThreshold,
		Remaining: 0,
		ResetAt:   reset.UTC(),
	})
	return false
}

// Denial is the "details" member of a 429 envelope.
type Denial struct {
	Feature   string    `json:"feature"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

func decisionRetry(reset, now time.Time) time.Duration {
	return Decision{ResetAt: reset}.RetryAfter(now)
}

func (s *Service) violation(r *http.Request, c caller, feature, vtype string, limit, count int, start, end time.Time) models.RateLimitViolation {
	v := models.RateLimitViolation{
		IdentifierType: c.idType,
		Identifier:     c.id,
		Feature:        feature,
		Endpoint:       r.Method + " " + r.URL.Path,
		ViolationType:  vtype,
		LimitThreshold: limit,
		ActualCount:    count,
		WindowStart:    start.UTC(),
		WindowEnd:      end.UTC(),
		IP:             c.ip,
		UserAgent:      r.UserAgent(),
		CreatedAt:      s.now().UTC(),
	}
	if c.signed {
		id := c.userID
		v.UserID = &id
	}
	return v
}

// RecordAuthFailure stores an auth_failures violation for a login that hit
// the login limiter. It reports whether the attempt must be refused, which is
// never the case in shadow mode.
func (s *Service) RecordAuthFailure(r *http.Request, identifierType, identifier string, limit int) bool {
	now := s.now()
	action := models.ActionBlocked
	if s.settings.ShadowMode {
		action = models.ActionLogged
	}
	s.record(r.Context(), r, models.RateLimitViolation{
		IdentifierType: identifierType,
		Identifier:     identifier,
		Feature:        FeatureAuth,
		Endpoint:       r.Method + " " + r.URL.Path,
		ViolationType:  models.ViolationAuthFailures,
		LimitThreshold: limit,
		ActualCount:    limit + 1,
		WindowStart:    now.UTC(),
		WindowEnd:      now.UTC(),
		IP:             ClientIP(r),
		UserAgent:      r.UserAgent(),
		ActionTaken:    action,
		CreatedAt:      now.UTC(),
	})
	return !s.settings.ShadowMode
}

func (s *Service) record(ctx context.Context, r *http.Request, v models.RateLimitViolation) {
	if s.deps.Observer != nil {
		s.deps.Observer.RateLimitViolation(v.Feature, v.ViolationType)
	}
	s.log.Warn("rate limit exceeded",
		zap.String("feature", v.Feature),
		zap.String("violation_type", v.ViolationType),
		zap.String("identifier_type", v.IdentifierType),
		zap.String("identifier", v.Identifier),
		zap.Int("limit", v.LimitThreshold),
		zap.Int("count", v.ActualCount),
		zap.String("action", v.ActionTaken),
	)
	if s.deps.Violations != nil {
		if err := s.deps.Violations.RecordViolation(ctx, v); err != nil {
			s.log.Error("failed to record rate limit violation", zap.Error(err))
		}
	}
	if s.deps.Audit != nil {
		s.deps.Audit.RateLimited(ctx, r, v)
	}
}

func (s *Service) whitelist(ctx context.Context, c caller, feature string) *models.WhitelistRule {
	if s.deps.Whitelist == nil {
		return nil
	}
	uid := ""
	if c.signed {
		uid = c.userID.Hex()
	}
	key := strings.Join([]string{uid, c.ip, c.plan, feature}, "|")
	now := s.now()

	s.wlMu.Lock()
	if hit, ok := s.wlCache[key]; ok && now.Before(hit.expires) {
		s.wlMu.Unlock()
		return hit.rule
	}
	s.wlMu.Unlock()

	rule, err := s.deps.Whitelist.Match(ctx, uid, c.ip, c.plan, feature)
	if err != nil {
		s.log.Warn("whitelist lookup failed", zap.Error(err))
		return nil
	}

	s.wlMu.Lock()
	if len(s.wlCache) > 10000 {
		s.wlCache = make(map[string]cachedRule)
	}
	s.wlCache[key] = cachedRule{rule: rule, expires: now.Add(whitelistCacheTTL)}
	s.wlMu.Unlock()
	return rule
}

func (s *Service) observe(feature, outcome string) {
	if s.deps.Observer != nil {
		s.deps.Observer.RateLimitDecision(feature, outcome)
	}
}

func setHeaders(w http.ResponseWriter, limit, remaining int, reset time.Time) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}

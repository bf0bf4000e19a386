package ratelimit

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/zerlake/thesisai/internal/domain/models"
	"go.uber.org/zap"
)

// LoginLimits are the sign-in ceilings.
type LoginLimits struct {
	PerIP       int
	IPWindow    time.Duration
	PerEmail    int
	EmailWindow time.Duration
}

// DefaultLoginLimits: 10 attempts per IP per minute, 5 per email per 5 minutes.
var DefaultLoginLimits = LoginLimits{PerIP: 10, IPWindow: time.Minute, PerEmail: 5, EmailWindow: 5 * time.Minute}

// LoginLimiter throttles sign-in attempts by IP (distributed guessing) and by
// email (targeted guessing). Denials are recorded as auth_failures violations.
// With a Service attached it follows the service switches: disabled passes
// every attempt and shadow mode records denials without refusing them.
type LoginLimiter struct {
	limiter Limiter
	limits  LoginLimits
	svc     *Service
	log     *zap.Logger
}

// NewLoginLimiter returns a login limiter. svc may be nil, which skips
// violation records.
func NewLoginLimiter(l Limiter, limits LoginLimits, svc *Service, logger *zap.Logger) *LoginLimiter {
	return &LoginLimiter{limiter: l, limits: limits, svc: svc, log: logger}
}

// Check reports whether an attempt may proceed and, if not, a message for the
// caller.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	if ll.svc != nil && !ll.svc.settings.Enabled {
		return true, ""
	}
	ctx := r.Context()
	ip := ClientIP(r)

	if !ll.allow(ctx, "login:ip:"+ip, ll.limits.PerIP, ll.limits.IPWindow) &&
		ll.deny(r, models.IdentifierIP, ip, ll.limits.PerIP) {
		return false, "Too many login attempts. Please wait a minute before trying again."
	}

	if key := normalizeEmail(email); key != "" {
		if !ll.allow(ctx, "login:email:"+key, ll.limits.PerEmail, ll.limits.EmailWindow) &&
			ll.deny(r, models.IdentifierEmail, key, ll.limits.PerEmail) {
			return false, "Too many login attempts for this account. Please wait a few minutes."
		}
	}
	return true, ""
}

// ResetEmail clears the email counter after a successful sign-in.
func (ll *LoginLimiter) ResetEmail(ctx context.Context, email string) {
	if key := normalizeEmail(email); key != "" {
		if err := ll.limiter.Reset(ctx, "login:email:"+key); err != nil {
			ll.log.Warn("reset login limiter failed", zap.Error(err))
		}
	}
}

func (ll *LoginLimiter) allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	dec, err := ll.limiter.Allow(ctx, key, limit, window)
	if err != nil {
		ll.log.Warn("login limiter unavailable; allowing attempt", zap.Error(err))
		return true
	}
	return dec.Allowed
}

// deny records the violation and reports whether the attempt is refused.
func (ll *LoginLimiter) deny(r *http.Request, idType, id string, limit int) bool {
	if ll.svc == nil {
		return true
	}
	return ll.svc.RecordAuthFailure(r, idType, id, limit)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/zerlake/thesisai/internal/app/store/audit"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/app/system/ratelimit"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination modes.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"
	ModeLog = "log"
	ModeOff = "off"
)

// Categories.
const (
	CategoryAuth         = "auth"
	CategoryContent      = "content"
	CategoryRelationship = "relationship"
	CategoryAPI          = "api"
	CategorySecurity     = "security"
	CategoryFinancial    = "financial"
)

// ValidMode reports whether m is a known destination mode.
func ValidMode(m string) bool {
	switch m {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Config picks a destination per category. Content and relationship events
// always use ModeAll.
type Config struct {
	Auth      string
	Financial string
	Security  string
	API       string
}

// Logger writes audit events to the store and mirrors them to zap.
// A nil *Logger is a no-op.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) mode(category string) string {
	var m string
	switch category {
	case CategoryAuth:
		m = l.config.Auth
	case CategoryFinancial:
		m = l.config.Financial
	case CategorySecurity:
		m = l.config.Security
	case CategoryAPI:
		m = l.config.API
	}
	if m == "" {
		return ModeAll
	}
	return m
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("action", event.Action),
		zap.String("category", event.Category),
		zap.String("severity", event.Severity),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.ResourceID != "" {
		fields = append(fields, zap.String("resource", event.ResourceType+":"+event.ResourceID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	switch {
	case event.Severity == audit.SeverityCritical:
		l.zapLog.Error("audit event", fields...)
	case event.Success:
		l.zapLog.Info("audit event", fields...)
	default:
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records event according to its category's mode. Store failures are
// logged and swallowed.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	if audit.IsFinancial(event.Action) {
		event.Category = CategoryFinancial
	}
	if event.Severity == "" {
		event.Severity = audit.SeverityInfo
	}

	setting := l.mode(event.Category)
	if setting == ModeOff {
		return
	}
	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}
	if (setting == ModeAll || setting == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("action", event.Action),
			)
		}
	}
}

// base fills the request fields and the signed-in user, if any.
func base(r *http.Request, category, action string) audit.Event {
	e := audit.Event{
		Action:    action,
		Category:  category,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Endpoint:  r.Method + " " + r.URL.Path,
	}
	if u, ok := auth.CurrentUser(r); ok {
		if oid, err := primitive.ObjectIDFromHex(u.ID); err == nil {
			e.UserID = &oid
		}
	}
	return e
}

// --- Auth ---

// AuthSuccess logs a login, signup or logout.
func (l *Logger) AuthSuccess(ctx context.Context, r *http.Request, action string, userID primitive.ObjectID, email string) {
	if l == nil {
		return
	}
	e := base(r, CategoryAuth, action)
	e.UserID = &userID
	e.Success = true
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// AuthFailure logs a rejected sign-in.
func (l *Logger) AuthFailure(ctx context.Context, r *http.Request, email, reason string) {
	if l == nil {
		return
	}
	e := base(r, CategoryAuth, audit.ActionAuthFailed)
	e.Severity = audit.SeverityWarning
	e.FailureReason = reason
	e.Details = map[string]string{"attempted_email": email}
	l.Log(ctx, e)
}

// --- Security ---

// ValidationFailure logs rejected input. fields maps field name to message.
func (l *Logger) ValidationFailure(ctx context.Context, r *http.Request, fields map[string]string) {
	if l == nil {
		return
	}
	e := base(r, CategorySecurity, audit.ActionSecurityValidation)
	e.Severity = audit.SeverityWarning
	e.StatusCode = http.StatusBadRequest
	e.Details = fields
	l.Log(ctx, e)
}

// InjectionAttempt logs input that looked like script or query injection.
func (l *Logger) InjectionAttempt(ctx context.Context, r *http.Request, field string) {
	if l == nil {
		return
	}
	e := base(r, CategorySecurity, audit.ActionSecurityInjection)
	e.Severity = audit.SeverityCritical
	e.FailureReason = "suspicious input"
	e.Details = map[string]string{"field": field}
	l.Log(ctx, e)
}

// --- API ---

// RateLimited logs a rate limit denial. Shadow-mode decisions are logged as
// violations since the request went through.
func (l *Logger) RateLimited(ctx context.Context, r *http.Request, v models.RateLimitViolation) {
	if l == nil {
		return
	}
	action := audit.ActionAPIRateLimited
	if v.ActionTaken == models.ActionLogged {
		action = audit.ActionRateLimitViolation
	}
	l.rateLimitEvent(ctx, r, action, v)
}

// RateLimitViolation logs a violation recorded outside the request guard,
// such as repeated sign-in failures.
func (l *Logger) RateLimitViolation(ctx context.Context, r *http.Request, v models.RateLimitViolation) {
	if l == nil {
		return
	}
	l.rateLimitEvent(ctx, r, audit.ActionRateLimitViolation, v)
}

func (l *Logger) rateLimitEvent(ctx context.Context, r *http.Request, action string, v models.RateLimitViolation) {
	e := base(r, CategoryAPI, action)
	e.Severity = audit.SeverityWarning
	e.StatusCode = http.StatusTooManyRequests
	if v.UserID != nil {
		e.UserID = v.UserID
	}
	e.Details = map[string]string{
		"feature":        v.Feature,
		"violation_type": v.ViolationType,
		"identifier":     v.IdentifierType + ":" + v.Identifier,
		"limit":          strconv.Itoa(v.LimitThreshold),
		"count":          strconv.Itoa(v.ActualCount),
		"action_taken":   v.ActionTaken,
	}
	l.Log(ctx, e)
}

// APICall logs a completed request. Server errors are logged as api_error.
func (l *Logger) APICall(ctx context.Context, r *http.Request, status int, elapsed time.Duration) {
	if l == nil {
		return
	}
	action := audit.ActionAPICall
	severity := audit.SeverityInfo
	if status >= 500 {
		action = audit.ActionAPIError
		severity = audit.SeverityError
	}
	e := base(r, CategoryAPI, action)
	e.Severity = severity
	e.StatusCode = status
	e.DurationMS = elapsed.Milliseconds()
	e.Success = status < 400
	l.Log(ctx, e)
}

// Middleware logs every request through APICall.
func (l *Logger) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		l.APICall(r.Context(), r, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// --- Domain ---

// Financial logs a payout, referral or role change. userID is the affected
// account; the signed-in caller is recorded as the actor.
func (l *Logger) Financial(ctx context.Context, r *http.Request, action string, userID primitive.ObjectID, resourceType, resourceID string, details map[string]string) {
	if l == nil {
		return
	}
	e := base(r, CategoryFinancial, action)
	e.ActorID = e.UserID
	e.UserID = &userID
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	e.Success = true
	e.Details = details
	if action == audit.ActionFraudConfirmed {
		e.Severity = audit.SeverityCritical
	}
	l.Log(ctx, e)
}

// Document logs a document action by the signed-in user.
func (l *Logger) Document(ctx context.Context, r *http.Request, action, documentID string) {
	if l == nil {
		return
	}
	e := base(r, CategoryContent, action)
	e.ResourceType = "document"
	e.ResourceID = documentID
	e.Success = true
	l.Log(ctx, e)
}

// Message logs a message action by the signed-in user.
func (l *Logger) Message(ctx context.Context, r *http.Request, action, messageID string) {
	if l == nil {
		return
	}
	e := base(r, CategoryContent, action)
	e.ResourceType = "message"
	e.ResourceID = messageID
	e.Success = true
	l.Log(ctx, e)
}

// Relationship logs a relationship request or decision.
func (l *Logger) Relationship(ctx context.Context, r *http.Request, action, kind string, counterpartID primitive.ObjectID, resourceID string) {
	if l == nil {
		return
	}
	e := base(r, CategoryRelationship, action)
	e.ActorID = e.UserID
	e.UserID = &counterpartID
	e.ResourceType = kind + "_relationship"
	e.ResourceID = resourceID
	e.Success = true
	l.Log(ctx, e)
}

// Statistics summarizes the last window of events.
func (l *Logger) Statistics(ctx context.Context, window time.Duration) (audit.Statistics, error) {
	return l.store.Statistics(ctx, time.Now().UTC().Add(-window))
}

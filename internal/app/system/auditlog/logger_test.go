package auditlog_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zerlake/thesisai/internal/app/store/audit"
	"github.com/zerlake/thesisai/internal/app/system/auditlog"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/domain/models"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestValidMode(t *testing.T) {
	for _, m := range []string{"all", "db", "log", "off"} {
		if !auditlog.ValidMode(m) {
			t.Errorf("ValidMode(%q) = false", m)
		}
	}
	for _, m := range []string{"", "ALL", "both"} {
		if auditlog.ValidMode(m) {
			t.Errorf("ValidMode(%q) = true", m)
		}
	}
}

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(ctx, audit.Event{Action: "test"})
	logger.AuthSuccess(ctx, req, audit.ActionAuthLogin, primitive.NewObjectID(), "a@b.co")
	logger.AuthFailure(ctx, req, "a@b.co", "wrong password")
	logger.RateLimited(ctx, req, models.RateLimitViolation{})
	logger.APICall(ctx, req, 200, time.Millisecond)

	h := logger.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), req)
}

func TestLogger_LogModeMirrorsToZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: auditlog.ModeLog})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req := httptest.NewRequest("POST", "/api/auth/login", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	logger.AuthFailure(ctx, req, "x@y.co", "wrong password")

	entries := logs.FilterMessage("audit event").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn for failure", entries[0].Level)
	}
	fields := entries[0].ContextMap()
	if fields["action"] != audit.ActionAuthFailed {
		t.Errorf("action = %v", fields["action"])
	}
	if fields["ip"] != "203.0.113.9" {
		t.Errorf("ip = %v", fields["ip"])
	}
}

func TestLogger_OffModeDropsEvent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{API: auditlog.ModeOff})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.APICall(ctx, httptest.NewRequest("GET", "/api/x", nil), 200, time.Millisecond)
	if logs.Len() != 0 {
		t.Errorf("expected no log entries, got %d", logs.Len())
	}
}

func TestLogger_CriticalLoggedAtError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.InjectionAttempt(ctx, httptest.NewRequest("POST", "/api/documents", nil), "title")
	entries := logs.All()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("entries = %+v, want one error-level entry", entries)
	}
}

func TestLogger_DBModeWritesStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	core, logs := observer.New(zapcore.DebugLevel)
	logger := auditlog.New(store, zap.New(core), auditlog.Config{Auth: auditlog.ModeDB})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	logger.AuthSuccess(ctx, httptest.NewRequest("POST", "/api/auth/login", nil), audit.ActionAuthLogin, userID, "s@uni.edu")

	events, err := store.Query(ctx, audit.QueryFilter{UserID: &userID})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Details["email"] != "s@uni.edu" {
		t.Errorf("details = %v", events[0].Details)
	}
	if logs.Len() != 0 {
		t.Errorf("db mode should not log to zap, got %d entries", logs.Len())
	}
}

func TestLogger_FinancialRecordsActor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := primitive.NewObjectID()
	owner := primitive.NewObjectID()
	req := auth.WithTestUser(httptest.NewRequest("POST", "/api/admin/payouts/x/approve", nil),
		&auth.SessionUser{ID: admin.Hex(), Role: models.RoleAdmin})

	logger.Financial(ctx, req, audit.ActionPayoutApproved, owner, "payout", "p1", map[string]string{"amount": "50000"})

	events, err := store.Query(ctx, audit.QueryFilter{Trail: audit.TrailFinancial, UserID: &owner})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].ActorID == nil || *events[0].ActorID != admin {
		t.Errorf("actor = %v, want %v", events[0].ActorID, admin)
	}
}

func TestLogger_APICallSeverity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{API: auditlog.ModeDB})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	h := logger.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/paper-search", nil))

	events, err := store.Query(ctx, audit.QueryFilter{Action: audit.ActionAPIError})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d api_error events, want 1", len(events))
	}
	if events[0].Severity != audit.SeverityError || events[0].StatusCode != http.StatusBadGateway {
		t.Errorf("event = %+v", events[0])
	}
}

package auditlog_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/features/auditlog"
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	"github.com/zerlake/thesisai/internal/app/store/audit"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newRouter(t *testing.T, db *mongo.Database) chi.Router {
	t.Helper()
	logger := zap.NewNop()
	return auditlog.Routes(auditlog.NewHandler(db, uierrors.NewErrorLogger(logger), logger))
}

func TestRoutes_AdminOnly(t *testing.T) {
	r := newRouter(t, testutil.OfflineDB(t))
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, http.MethodGet, "/", nil, testutil.AdvisorUser()))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestServeList_BadFilters(t *testing.T) {
	r := newRouter(t, testutil.OfflineDB(t))
	tests := []struct {
		query string
		field string
	}{
		{"?trail=secret", "trail"},
		{"?severity=loud", "severity"},
		{"?user_id=nope", "user_id"},
		{"?start_date=yesterday", "start_date"},
		{"?start_date=2026-05-02&end_date=2026-05-01", "end_date"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			rec := testutil.NewRecorder()
			r.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, http.MethodGet, "/"+tt.query, nil, testutil.AdminUser()))
			rec.AssertStatus(t, http.StatusBadRequest)
			env := rec.Envelope(t, nil)
			if _, ok := env.Error.Details[tt.field]; !ok {
				t.Errorf("expected %q in %v", tt.field, env.Error.Details)
			}
		})
	}
}

func TestServeList_Trails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := audit.New(db)
	uid := primitive.NewObjectID()
	seed := []audit.Event{
		{Action: audit.ActionAuthLogin, Category: "auth", UserID: &uid, Success: true},
		{Action: audit.ActionAuthFailed, Category: "auth", Severity: audit.SeverityWarning},
		{Action: audit.ActionPayoutRequested, UserID: &uid, Success: true},
	}
	for _, e := range seed {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	var out struct {
		Events []audit.Event `json:"events"`
		Total  int64         `json:"total"`
	}
	get := func(query string) {
		t.Helper()
		rec := testutil.NewRecorder()
		r.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, http.MethodGet, "/"+query, nil, testutil.AdminUser()))
		rec.AssertStatus(t, http.StatusOK)
		rec.Envelope(t, &out)
	}

	get("")
	if out.Total != 2 {
		t.Errorf("general total = %d, want 2", out.Total)
	}
	get("?severity=warning")
	if out.Total != 1 || out.Events[0].Action != audit.ActionAuthFailed {
		t.Errorf("severity filter = %+v", out.Events)
	}
	get("?trail=financial&user_id=" + uid.Hex())
	if out.Total != 1 || out.Events[0].Category != "financial" {
		t.Errorf("financial trail = %+v", out.Events)
	}
	get("?end_date=" + time.Now().UTC().Add(-48*time.Hour).Format("2006-01-02"))
	if out.Total != 0 {
		t.Errorf("old window total = %d, want 0", out.Total)
	}
}

func TestServeStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := audit.New(db)
	_ = store.Log(ctx, audit.Event{Action: audit.ActionAuthLogin, Success: true})
	_ = store.Log(ctx, audit.Event{Action: audit.ActionAuthFailed, Severity: audit.SeverityWarning})
	_ = store.Log(ctx, audit.Event{Action: audit.ActionFraudConfirmed, Severity: audit.SeverityCritical, Success: true})

	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, http.MethodGet, "/stats?hours=1", nil, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
	var stats audit.Statistics
	rec.Envelope(t, &stats)
	if stats.Total != 3 || stats.Failures != 1 {
		t.Errorf("total=%d failures=%d", stats.Total, stats.Failures)
	}
	if stats.BySeverity[audit.SeverityCritical] != 1 {
		t.Errorf("by severity = %v", stats.BySeverity)
	}
}

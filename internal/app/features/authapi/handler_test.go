package authapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/zerlake/thesisai/internal/app/features/authapi"
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/app/system/authutil"
	"github.com/zerlake/thesisai/internal/app/system/indexes"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/ratelimit"
	"github.com/zerlake/thesisai/internal/domain/models"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newHandler(t *testing.T, db *mongo.Database, limits ratelimit.LoginLimits) *authapi.Handler {
	t.Helper()
	logger := zap.NewNop()
	tokens, err := auth.NewTokenIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	sessions, err := auth.NewSessionManager(testSecret, "thesisai-test", "", time.Hour, false, tokens, logger)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	mem := ratelimit.NewMemory(time.Minute)
	t.Cleanup(mem.Stop)
	login := ratelimit.NewLoginLimiter(mem, limits, nil, logger)
	return authapi.NewHandler(db, sessions, login, nil, uierrors.NewErrorLogger(logger), logger)
}

func TestSignup_Validation(t *testing.T) {
	h := newHandler(t, testutil.OfflineDB(t), ratelimit.DefaultLoginLimits)

	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"bad email", map[string]string{"email": "nope", "password": "long enough pw", "full_name": "Ana"}, "email"},
		{"short password", map[string]string{"email": "ana@test.edu", "password": "short", "full_name": "Ana"}, "password"},
		{"common password", map[string]string{"email": "ana@test.edu", "password": "password123", "full_name": "Ana"}, "password"},
		{"missing name", map[string]string{"email": "ana@test.edu", "password": "long enough pw"}, "full_name"},
		{"bad referral code", map[string]string{"email": "ana@test.edu", "password": "long enough pw", "full_name": "Ana", "referral_code": "ABC"}, "referral_code"},
		{"injection in name", map[string]string{"email": "ana@test.edu", "password": "long enough pw", "full_name": "<script>alert(1)</script>"}, "full_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleSignup(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/signup", tt.body))

			rec.AssertStatus(t, http.StatusBadRequest)
			env := rec.Envelope(t, nil)
			if env.Error == nil || env.Error.Code != jsonapi.CodeValidation {
				t.Fatalf("expected validation error, got %s", rec.Body.String())
			}
			if _, ok := env.Error.Details[tt.field]; !ok {
				t.Errorf("expected a message for %q, got %v", tt.field, env.Error.Details)
			}
		})
	}
}

func TestSignup_MalformedJSON(t *testing.T) {
	h := newHandler(t, testutil.OfflineDB(t), ratelimit.DefaultLoginLimits)
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/signup", nil)

	rec := testutil.NewRecorder()
	h.HandleSignup(rec, req)

	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertErrorCode(t, jsonapi.CodeBadRequest)
}

func TestLogin_MissingFields(t *testing.T) {
	h := newHandler(t, testutil.OfflineDB(t), ratelimit.DefaultLoginLimits)

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@test.edu"}))

	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertErrorCode(t, jsonapi.CodeValidation)
}

func TestLogin_RateLimitedBeforeLookup(t *testing.T) {
	h := newHandler(t, testutil.OfflineDB(t), ratelimit.LoginLimits{PerIP: 0, IPWindow: time.Minute, PerEmail: 5, EmailWindow: time.Minute})

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@test.edu", "password": "whatever1"}))

	rec.AssertStatus(t, http.StatusTooManyRequests)
	rec.AssertErrorCode(t, jsonapi.CodeRateLimited)
}

func TestSignupThenLogin(t *testing.T) {
	db := indexedDB(t)
	h := newHandler(t, db, ratelimit.DefaultLoginLimits)

	rec := testutil.NewRecorder()
	h.HandleSignup(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email": "Ana@Test.edu", "password": "long enough pw", "full_name": "Ana Cruz",
	}))
	rec.AssertStatus(t, http.StatusCreated)

	var created struct {
		Token string         `json:"token"`
		User  models.Profile `json:"user"`
	}
	rec.Envelope(t, &created)
	if created.Token == "" {
		t.Error("expected a token")
	}
	if created.User.Role != models.RoleStudent || created.User.Plan != models.PlanFree {
		t.Errorf("unexpected role/plan: %s/%s", created.User.Role, created.User.Plan)
	}
	if len(created.User.ReferralCode) != 8 {
		t.Errorf("referral code: got %q", created.User.ReferralCode)
	}
	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("expected a session cookie")
	}

	// Same email differing only in case.
	dup := testutil.NewRecorder()
	h.HandleSignup(dup, testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email": "ana@test.edu", "password": "long enough pw", "full_name": "Ana Again",
	}))
	dup.AssertStatus(t, http.StatusConflict)
	dup.AssertErrorCode(t, authapi.CodeEmailTaken)

	bad := testutil.NewRecorder()
	h.HandleLogin(bad, testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ana@test.edu", "password": "wrong password",
	}))
	bad.AssertStatus(t, http.StatusUnauthorized)
	bad.AssertErrorCode(t, authapi.CodeInvalidCredentials)

	ok := testutil.NewRecorder()
	h.HandleLogin(ok, testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ANA@test.edu", "password": "long enough pw",
	}))
	ok.AssertStatus(t, http.StatusOK)
}

func TestSignup_RecordsReferral(t *testing.T) {
	db := indexedDB(t)
	h := newHandler(t, db, ratelimit.DefaultLoginLimits)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	referrer, err := profilestore.New(db).Create(ctx, models.Profile{
		Email: "ref@test.edu", FullName: "Referrer", Plan: models.PlanFree, Status: models.StatusActive,
	})
	if err != nil {
		t.Fatalf("create referrer: %v", err)
	}

	rec := testutil.NewRecorder()
	h.HandleSignup(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email": "new@test.edu", "password": "long enough pw", "full_name": "Newcomer",
		"referral_code": referrer.ReferralCode,
	}))
	rec.AssertStatus(t, http.StatusCreated)

	events, err := h.Referrals.ListByReferrer(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("ListByReferrer: %v", err)
	}
	if len(events) != 1 || events[0].EventType != models.ReferralSignup {
		t.Fatalf("expected one signup event, got %+v", events)
	}
}

func TestLogin_DisabledAccount(t *testing.T) {
	db := indexedDB(t)
	h := newHandler(t, db, ratelimit.DefaultLoginLimits)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	hash, err := authutil.HashPassword("long enough pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if _, err := profilestore.New(db).Create(ctx, models.Profile{
		Email: "off@test.edu", FullName: "Off", Plan: models.PlanFree,
		Status: models.StatusDisabled, PasswordHash: hash,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "off@test.edu", "password": "long enough pw",
	}))
	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertErrorCode(t, authapi.CodeAccountDisabled)
}

func TestLogout_ClearsCookie(t *testing.T) {
	h := newHandler(t, testutil.OfflineDB(t), ratelimit.DefaultLoginLimits)

	rec := testutil.NewRecorder()
	h.HandleLogout(rec, testutil.NewAuthenticatedRequest(t, http.MethodPost, "/api/auth/logout", nil, testutil.StudentUser()))

	rec.AssertStatus(t, http.StatusOK)
	if c := rec.Header().Get("Set-Cookie"); c == "" {
		t.Error("expected an expiring Set-Cookie header")
	}
}

func indexedDB(t *testing.T) *mongo.Database {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	return db
}

package referrals_test

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	"github.com/zerlake/thesisai/internal/app/features/referrals"
	"github.com/zerlake/thesisai/internal/app/system/indexes"
	"github.com/zerlake/thesisai/internal/domain/models"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, db *mongo.Database) *referrals.Handler {
	t.Helper()
	logger := zap.NewNop()
	return referrals.NewHandler(db, nil, 5000, nil, uierrors.NewErrorLogger(logger), logger)
}

func do(t *testing.T, r chi.Router, method, target string, body any, user testutil.TestUser) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, method, target, body, user))
	return rec
}

func TestAdminRoutes_Validation(t *testing.T) {
	admin := referrals.AdminRoutes(newHandler(t, testutil.OfflineDB(t)))

	do(t, admin, http.MethodGet, "/", nil, testutil.AdvisorUser()).AssertStatus(t, http.StatusForbidden)
	do(t, admin, http.MethodGet, "/?status=odd", nil, testutil.AdminUser()).AssertStatus(t, http.StatusBadRequest)
	do(t, admin, http.MethodPost, "/conversions", map[string]string{"referred_id": "x"}, testutil.AdminUser()).AssertStatus(t, http.StatusBadRequest)
	do(t, admin, http.MethodPost, "/nope/flag", nil, testutil.AdminUser()).AssertStatus(t, http.StatusBadRequest)
}

func TestConversionAndFraud(t *testing.T) {
	db := indexedDB(t)
	h := newHandler(t, db)
	admin := referrals.AdminRoutes(h)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	referrer, err := h.Profiles.Create(ctx, models.Profile{Email: "ref@test.edu", FullName: "Referrer", Plan: models.PlanFree})
	if err != nil {
		t.Fatalf("create referrer: %v", err)
	}
	referred, err := h.Profiles.Create(ctx, models.Profile{Email: "new@test.edu", FullName: "New", Plan: models.PlanPro, ReferredBy: &referrer.ID})
	if err != nil {
		t.Fatalf("create referred: %v", err)
	}
	loner, _ := h.Profiles.Create(ctx, models.Profile{Email: "solo@test.edu", FullName: "Solo", Plan: models.PlanPro})

	do(t, admin, http.MethodPost, "/conversions", map[string]string{"referred_id": loner.ID.Hex()}, testutil.AdminUser()).
		AssertErrorCode(t, referrals.CodeNotReferred)

	rec := do(t, admin, http.MethodPost, "/conversions", map[string]string{"referred_id": referred.ID.Hex()}, testutil.AdminUser())
	rec.AssertStatus(t, http.StatusCreated)
	var ev models.ReferralEvent
	rec.Envelope(t, &ev)

	dup := do(t, admin, http.MethodPost, "/conversions", map[string]string{"referred_id": referred.ID.Hex()}, testutil.AdminUser())
	dup.AssertStatus(t, http.StatusConflict)

	if bal, _ := h.Ledger.Balance(ctx, referrer.ID); bal != 5000 {
		t.Fatalf("balance after conversion: got %d, want 5000", bal)
	}

	do(t, admin, http.MethodPost, "/"+ev.ID.Hex()+"/flag", nil, testutil.AdminUser()).AssertStatus(t, http.StatusOK)
	do(t, admin, http.MethodPost, "/"+ev.ID.Hex()+"/flag", nil, testutil.AdminUser()).AssertStatus(t, http.StatusConflict)
	do(t, admin, http.MethodPost, "/"+ev.ID.Hex()+"/confirm-fraud", nil, testutil.AdminUser()).AssertStatus(t, http.StatusOK)

	if bal, _ := h.Ledger.Balance(ctx, referrer.ID); bal != 0 {
		t.Errorf("balance after fraud: got %d, want 0", bal)
	}
	do(t, admin, http.MethodPost, "/"+primitive.NewObjectID().Hex()+"/confirm-fraud", nil, testutil.AdminUser()).AssertStatus(t, http.StatusNotFound)

	user := testutil.TestUser{ID: referrer.ID.Hex(), Name: referrer.FullName, Email: referrer.Email, Role: referrer.Role, Plan: referrer.Plan}
	mine := do(t, referrals.Routes(h), http.MethodGet, "/", nil, user)
	mine.AssertStatus(t, http.StatusOK)
	var s struct {
		ReferralCode string `json:"referral_code"`
		Totals       struct {
			Conversions int64 `json:"conversions"`
			Commission  int64 `json:"commission"`
		} `json:"totals"`
	}
	mine.Envelope(t, &s)
	if s.ReferralCode != referrer.ReferralCode || s.Totals.Conversions != 1 || s.Totals.Commission != 0 {
		t.Errorf("unexpected summary: %+v", s)
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

package relationships_test

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	"github.com/zerlake/thesisai/internal/app/features/relationships"
	notificationstore "github.com/zerlake/thesisai/internal/app/store/notifications"
	"github.com/zerlake/thesisai/internal/app/system/indexes"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/domain/models"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newRouter(t *testing.T, db *mongo.Database) (chi.Router, *relationships.Handler) {
	t.Helper()
	logger := zap.NewNop()
	h := relationships.NewHandler(db, notificationstore.New(db, notificationstore.DefaultTTL), nil, uierrors.NewErrorLogger(logger), logger)
	return relationships.Routes(h), h
}

func do(t *testing.T, r chi.Router, method, target string, body any, user testutil.TestUser) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, method, target, body, user))
	return rec
}

func TestRoutes_Guards(t *testing.T) {
	r, _ := newRouter(t, testutil.OfflineDB(t))
	student := testutil.StudentUser()
	advisor := testutil.AdvisorUser()

	tests := []struct {
		name   string
		method string
		target string
		body   any
		user   testutil.TestUser
		status int
	}{
		{"unknown kind", http.MethodGet, "/mentor/requests", nil, student, http.StatusNotFound},
		{"mentor cannot request", http.MethodPost, "/advisor/requests", map[string]string{"mentor_id": student.ID}, advisor, http.StatusForbidden},
		{"bad mentor id", http.MethodPost, "/advisor/requests", map[string]string{"mentor_id": "x"}, student, http.StatusBadRequest},
		{"self request", http.MethodPost, "/advisor/requests", map[string]string{"mentor_id": student.ID}, student, http.StatusBadRequest},
		{"student cannot accept", http.MethodPost, "/advisor/requests/" + advisor.ID + "/accept", nil, student, http.StatusForbidden},
		{"critic cannot accept advisor request", http.MethodPost, "/advisor/requests/" + advisor.ID + "/accept", nil, testutil.CriticUser(), http.StatusForbidden},
		{"accept bad id", http.MethodPost, "/advisor/requests/nope/accept", nil, advisor, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/critic/requests?status=maybe", nil, student, http.StatusBadRequest},
		{"admin removal needs student", http.MethodDelete, "/advisor/" + advisor.ID, nil, testutil.AdminUser(), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, tt.method, tt.target, tt.body, tt.user)
			rec.AssertStatus(t, tt.status)
		})
	}
}

func TestAcceptFlow(t *testing.T) {
	db := indexedDB(t)
	r, h := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mentor, err := h.Profiles.Create(ctx, models.Profile{Email: "adv@test.edu", FullName: "Advisor", Role: models.RoleAdvisor, Plan: models.PlanFree, AdvisorSlots: 1})
	if err != nil {
		t.Fatalf("create advisor: %v", err)
	}
	s1, _ := h.Profiles.Create(ctx, models.Profile{Email: "s1@test.edu", FullName: "One", Plan: models.PlanFree})
	s2, _ := h.Profiles.Create(ctx, models.Profile{Email: "s2@test.edu", FullName: "Two", Plan: models.PlanFree})

	as := func(p models.Profile) testutil.TestUser {
		return testutil.TestUser{ID: p.ID.Hex(), Name: p.FullName, Email: p.Email, Role: p.Role, Plan: p.Plan}
	}

	request := func(student models.Profile) models.RelationshipRequest {
		rec := do(t, r, http.MethodPost, "/advisor/requests", map[string]string{"mentor_id": mentor.ID.Hex()}, as(student))
		rec.AssertStatus(t, http.StatusCreated)
		var out models.RelationshipRequest
		rec.Envelope(t, &out)
		return out
	}

	req1 := request(s1)
	dup := do(t, r, http.MethodPost, "/advisor/requests", map[string]string{"mentor_id": mentor.ID.Hex()}, as(s1))
	dup.AssertStatus(t, http.StatusConflict)
	dup.AssertErrorCode(t, relationships.CodePendingExists)

	req2 := request(s2)

	rec := do(t, r, http.MethodPost, "/advisor/requests/"+req1.ID.Hex()+"/accept", nil, as(mentor))
	rec.AssertStatus(t, http.StatusOK)

	again := do(t, r, http.MethodPost, "/advisor/requests/"+req1.ID.Hex()+"/accept", nil, as(mentor))
	again.AssertStatus(t, http.StatusConflict)
	again.AssertErrorCode(t, relationships.CodeNotPending)

	full := do(t, r, http.MethodPost, "/advisor/requests/"+req2.ID.Hex()+"/accept", nil, as(mentor))
	full.AssertStatus(t, http.StatusConflict)
	full.AssertErrorCode(t, relationships.CodeNoSlots)

	if linked, _ := h.Relationships.Linked(ctx, models.KindAdvisor, s2.ID, mentor.ID); linked {
		t.Error("no-slot accept must not create a relationship")
	}
	after, _ := h.Profiles.GetByID(ctx, mentor.ID)
	if after.AdvisorSlots != 0 {
		t.Errorf("advisor_slots: got %d, want 0", after.AdvisorSlots)
	}

	list := do(t, r, http.MethodGet, "/advisor", nil, as(s1))
	list.AssertStatus(t, http.StatusOK)
	list.AssertContains(t, "Advisor")

	rm := do(t, r, http.MethodDelete, "/advisor/"+mentor.ID.Hex(), nil, as(s1))
	rm.AssertStatus(t, http.StatusOK)
	after, _ = h.Profiles.GetByID(ctx, mentor.ID)
	if after.AdvisorSlots != 1 {
		t.Errorf("slot not returned: got %d", after.AdvisorSlots)
	}

	cancelRec := do(t, r, http.MethodPost, "/advisor/requests/"+req2.ID.Hex()+"/cancel", nil, as(s2))
	cancelRec.AssertStatus(t, http.StatusOK)

	declined := do(t, r, http.MethodPost, "/advisor/requests/"+req2.ID.Hex()+"/decline", nil, as(mentor))
	declined.AssertStatus(t, http.StatusConflict)
}

func TestCreateRequest_WrongRole(t *testing.T) {
	db := indexedDB(t)
	r, h := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	critic, err := h.Profiles.Create(ctx, models.Profile{Email: "crit@test.edu", FullName: "Critic", Role: models.RoleCritic, Plan: models.PlanFree})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rec := do(t, r, http.MethodPost, "/advisor/requests", map[string]string{"mentor_id": critic.ID.Hex()}, testutil.StudentUser())
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertErrorCode(t, jsonapi.CodeValidation)
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

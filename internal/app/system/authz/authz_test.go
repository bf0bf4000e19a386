package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zerlake/thesisai/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func requestAs(id, role, plan string) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	if role == "" {
		return r
	}
	return auth.WithTestUser(r, &auth.SessionUser{ID: id, Role: role, Plan: plan})
}

func TestUserCtx(t *testing.T) {
	id := primitive.NewObjectID()

	role, _, got, ok := UserCtx(requestAs(id.Hex(), "Advisor", "pro"))
	if !ok || got != id || role != "advisor" {
		t.Errorf("UserCtx: got (%q, %v, %v), want (advisor, %v, true)", role, got, ok, id)
	}

	if _, _, _, ok := UserCtx(requestAs("not-an-object-id", "student", "")); ok {
		t.Error("malformed ID should not be ok")
	}
	if role, _, _, ok := UserCtx(requestAs("", "", "")); ok || role != "visitor" {
		t.Errorf("anonymous: got (%q, %v), want (visitor, false)", role, ok)
	}
}

func TestRoleHelpers(t *testing.T) {
	id := primitive.NewObjectID().Hex()

	tests := []struct {
		name    string
		r       *http.Request
		admin   bool
		student bool
		critic  bool
	}{
		{"admin", requestAs(id, "admin", ""), true, false, false},
		{"student", requestAs(id, "student", ""), false, true, false},
		{"critic", requestAs(id, "critic", ""), false, false, true},
		{"anonymous", requestAs("", "", ""), false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAdmin(tt.r); got != tt.admin {
				t.Errorf("IsAdmin: got %v, want %v", got, tt.admin)
			}
			if got := IsStudent(tt.r); got != tt.student {
				t.Errorf("IsStudent: got %v, want %v", got, tt.student)
			}
			if got := IsMentor(tt.r, "critic"); got != tt.critic {
				t.Errorf("IsMentor(critic): got %v, want %v", got, tt.critic)
			}
		})
	}
}

func TestPlan(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	if got := Plan(requestAs(id, "student", "premium")); got != "premium" {
		t.Errorf("Plan: got %q, want premium", got)
	}
	if got := Plan(requestAs(id, "student", "")); got != "free" {
		t.Errorf("Plan with no plan: got %q, want free", got)
	}
	if got := Plan(requestAs("", "", "")); got != "free" {
		t.Errorf("Plan anonymous: got %q, want free", got)
	}
}

// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, ObjectID, and a found flag.
// A missing user or a malformed ID yields "visitor", "", NilObjectID, false, so
// ok=true always comes with a usable ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// UserID returns just the caller's ObjectID.
func UserID(r *http.Request) (primitive.ObjectID, bool) {
	_, _, id, ok := UserCtx(r)
	return id, ok
}

// Plan returns the caller's plan, defaulting to free.
func Plan(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok && models.IsValidPlan(u.Plan) {
		return u.Plan
	}
	return models.PlanFree
}

// HasAnyRole reports whether the caller has one of roles.
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if role == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the caller is an admin.
func IsAdmin(r *http.Request) bool { return HasAnyRole(r, models.RoleAdmin) }

// IsStudent reports whether the caller is a student.
func IsStudent(r *http.Request) bool { return HasAnyRole(r, models.RoleStudent) }

// IsMentor reports whether the caller can act as mentor for kind.
func IsMentor(r *http.Request, kind string) bool {
	return HasAnyRole(r, models.MentorRole(kind))
}

// Package auth identifies the caller of each request and guards routes by role.
//
// Two credentials are accepted. API clients send "Authorization: Bearer <jwt>";
// the browser client gets a signed session cookie on sign-in. Both resolve to a
// SessionUser stored in the request context.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current user                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the authenticated caller as seen by handlers.
type SessionUser struct {
	ID    string // profile ObjectID hex
	Name  string
	Email string
	Role  string
	Plan  string
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user and whether one is signed in.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	return FromContext(r.Context())
}

// FromContext returns the user stored by WithUser.
func FromContext(ctx context.Context) (*SessionUser, bool) {
	u, ok := ctx.Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *SessionUser) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}

// WithTestUser injects u into r's context. Handler tests use it in place of
// the LoadUser middleware.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(WithUser(r.Context(), u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Guards                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireSignedIn answers 401 unless LoadUser found a user.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			jsonapi.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 401 when nobody is signed in and 403 when the user's
// role is not one of allowed. Role comparison ignores case.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				jsonapi.Unauthorized(w)
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				jsonapi.Forbidden(w, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

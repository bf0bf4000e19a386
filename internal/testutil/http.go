package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser is a caller for handler tests.
type TestUser struct {
	ID    string
	Name  string
	Email string
	Role  string
	Plan  string
}

// OID returns the user's ID as an ObjectID.
func (u TestUser) OID() primitive.ObjectID {
	oid, _ := primitive.ObjectIDFromHex(u.ID)
	return oid
}

func newTestUser(name, email, role string) TestUser {
	return TestUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  name,
		Email: email,
		Role:  role,
		Plan:  models.PlanFree,
	}
}

// StudentUser returns a free-plan student.
func StudentUser() TestUser {
	return newTestUser("Test Student", "student@test.edu", models.RoleStudent)
}

// AdvisorUser returns an advisor.
func AdvisorUser() TestUser {
	return newTestUser("Test Advisor", "advisor@test.edu", models.RoleAdvisor)
}

// CriticUser returns a critic.
func CriticUser() TestUser { return newTestUser("Test Critic", "critic@test.edu", models.RoleCritic) }

// AdminUser returns an admin.
func AdminUser() TestUser { return newTestUser("Test Admin", "admin@test.edu", models.RoleAdmin) }

// WithUser puts user in the request context, bypassing LoadUser.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		Plan:  user.Plan,
	})
}

// NewJSONRequest builds a request with body encoded as JSON. A nil body sends
// no payload.
func NewJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// NewAuthenticatedRequest is NewJSONRequest with user in context.
func NewAuthenticatedRequest(t *testing.T, method, target string, body any, user TestUser) *http.Request {
	t.Helper()
	return WithUser(NewJSONRequest(t, method, target, body), user)
}

// WithURLParams sets chi URL parameters on r, given as name/value pairs, so
// handlers can be called directly without a router.
func WithURLParams(r *http.Request, pairs ...string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		rctx.URLParams.Add(pairs[i], pairs[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// ResponseRecorder wraps httptest.ResponseRecorder with assertions.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t testing.TB, expected int) {
	t.Helper()
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks that the body contains expected.
func (r *ResponseRecorder) AssertContains(t testing.TB, expected string) {
	t.Helper()
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q: %s", expected, r.Body.String())
	}
}

// Envelope is the decoded response envelope with data left raw.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// Envelope decodes the body. If data is non-nil the envelope's data is
// decoded into it.
func (r *ResponseRecorder) Envelope(t testing.TB, data any) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(r.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, r.Body.String())
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}

// AssertErrorCode checks a failure envelope's code.
func (r *ResponseRecorder) AssertErrorCode(t testing.TB, code string) {
	t.Helper()
	env := r.Envelope(t, nil)
	if env.Success || env.Error == nil {
		t.Fatalf("expected failure envelope, got %s", r.Body.String())
	}
	if env.Error.Code != code {
		t.Errorf("error code: got %q, want %q", env.Error.Code, code)
	}
}

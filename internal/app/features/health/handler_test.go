package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zerlake/thesisai/internal/app/features/health"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.uber.org/zap"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := health.NewHandler(db.Client(), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	body := decode(t, rec)
	if body["status"] != "ok" || body["database"] != "connected" {
		t.Errorf("unexpected body: %v", body)
	}
	if _, ok := body["redis"]; ok {
		t.Error("redis should be omitted when not configured")
	}
}

func TestServe_RedisDown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	redis := pingerFunc(func(context.Context) error { return errors.New("dial tcp: refused") })
	h := health.NewHandler(db.Client(), redis, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", rec.Code)
	}
	body := decode(t, rec)
	if body["redis"] != "disconnected" || body["database"] != "connected" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestServe_DatabaseUnreachable(t *testing.T) {
	db := testutil.OfflineDB(t)
	h := health.NewHandler(db.Client(), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "error" || body["database"] != "disconnected" {
		t.Errorf("unexpected body: %v", body)
	}
	if body["message"] != "Database unavailable" {
		t.Errorf("message: got %v", body["message"])
	}
}

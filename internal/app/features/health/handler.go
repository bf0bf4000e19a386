package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is an optional dependency checked alongside Mongo (the Redis limiter).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client *mongo.Client
	Redis  Pinger
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. redis may be nil when the limiter
// runs in memory only.
func NewHandler(client *mongo.Client, redis Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		Redis:  redis,
		Log:    logger,
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "redis":"connected" }
//
// On failure: 503 with status "error". Redis is reported only when configured.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	resp := healthResponse{Status: "ok", Database: "connected"}
	healthy := true

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		healthy = false
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
	}

	if h.Redis != nil {
		resp.Redis = "connected"
		if err := h.Redis.Ping(ctx); err != nil {
			h.Log.Warn("health-check: redis ping failed", zap.Error(err))
			healthy = false
			resp.Redis = "disconnected"
			if resp.Message == "" {
				resp.Message = "Rate limit backend unavailable"
			}
		}
	}

	if !healthy {
		resp.Status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

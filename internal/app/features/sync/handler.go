// internal/app/features/sync/handler.go
package sync

import (
	"github.com/go-chi/chi/v5"
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	syncstore "github.com/zerlake/thesisai/internal/app/store/syncchanges"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the offline change log clients push to and pull from.
type Handler struct {
	Changes *syncstore.Store
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Changes: syncstore.New(db), ErrLog: errLog, Log: logger}
}

// Routes is mounted at /api/sync.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Post("/push", h.HandlePush)
	r.Get("/pull", h.ServePull)
	return r
}

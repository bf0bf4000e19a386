// internal/app/features/aitools/handler.go
package aitools

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/features/documents"
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	"github.com/zerlake/thesisai/internal/app/system/ai"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"go.uber.org/zap"
)

// Handler proxies the public writing tools to the text model.
type Handler struct {
	Gen     ai.Generator
	Catalog *ai.Catalog
	Access  *documents.Access
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger

	// Gate charges the caller's AI limits once a run is valid and the model
	// is reachable. Nil allows everything.
	Gate func(w http.ResponseWriter, r *http.Request) bool
}

func NewHandler(gen ai.Generator, catalog *ai.Catalog, access *documents.Access, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Gen: gen, Catalog: catalog, Access: access, ErrLog: errLog, Log: logger}
}

// Routes is mounted at /api/ai-tools.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeCatalog)
	r.Post("/{toolId}", h.HandleRun)
	return r
}

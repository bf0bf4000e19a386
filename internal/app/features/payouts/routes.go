// internal/app/features/payouts/routes.go
package payouts

import (
	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/domain/models"
)

// Routes is mounted at /api/payouts.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeMine)
	r.Post("/", h.HandleRequest)
	r.Post("/{id}/cancel", h.HandleCancel)
	return r
}

// LedgerRoutes is mounted at /api/ledger.
func LedgerRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeLedger)
	return r
}

// AdminRoutes is mounted at /api/admin/payouts.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RoleAdmin))
	r.Get("/", h.ServeAll)
	r.Post("/{id}/approve", h.HandleApprove)
	r.Post("/{id}/reject", h.HandleReject)
	r.Post("/{id}/process", h.HandleProcess)
	return r
}

// internal/app/features/referrals/routes.go
package referrals

import (
	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/domain/models"
)

// Routes is mounted at /api/referrals.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeMine)
	return r
}

// AdminRoutes is mounted at /api/admin/referrals.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RoleAdmin))
	r.Get("/", h.ServeEvents)
	r.Post("/conversions", h.HandleConversion)
	r.Post("/{id}/flag", h.HandleFlag)
	r.Post("/{id}/confirm-fraud", h.HandleConfirmFraud)
	return r
}

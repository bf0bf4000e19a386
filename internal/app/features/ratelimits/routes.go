// internal/app/features/ratelimits/routes.go
package ratelimits

import (
	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/domain/models"
)

// Routes is mounted at /api/admin/rate-limiting.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RoleAdmin))
	r.Get("/status", h.ServeStatus)
	r.Get("/violations", h.ServeViolations)
	r.Get("/summary", h.ServeSummary)
	r.Get("/top-users", h.ServeTopUsers)
	r.Get("/usage/{userId}", h.ServeUsage)
	r.Route("/whitelist", func(r chi.Router) {
		r.Get("/", h.ServeWhitelist)
		r.Post("/", h.HandleAddRule)
		r.Delete("/{id}", h.HandleRemoveRule)
	})
	return r
}

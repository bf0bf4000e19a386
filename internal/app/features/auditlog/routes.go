// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/domain/models"
)

// Routes is mounted at /api/admin/audit. Admins only.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RoleAdmin))
	r.Get("/", h.ServeList)
	r.Get("/stats", h.ServeStats)
	return r
}

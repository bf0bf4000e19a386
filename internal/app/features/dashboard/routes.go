// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/system/auth"
)

// Routes is mounted at /api/dashboard.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/summary", h.ServeSummary)
	r.Route("/layouts", func(r chi.Router) {
		r.Get("/", h.ServeLayouts)
		r.Post("/", h.HandleCreateLayout)
		r.Put("/{id}", h.HandleUpdateLayout)
		r.Delete("/{id}", h.HandleDeleteLayout)
	})
	r.Get("/widgets/{widgetID}", h.ServeWidget)
	r.Delete("/widgets/{widgetID}", h.HandleClearWidget)
	return r
}

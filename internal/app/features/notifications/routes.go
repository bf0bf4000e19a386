// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/system/auth"
)

// Routes is mounted at /api/notifications.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Post("/read-all", h.HandleReadAll)
	r.Post("/{id}/read", h.HandleRead)
	r.Delete("/{id}", h.HandleDelete)
	return r
}

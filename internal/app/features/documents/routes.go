// internal/app/features/documents/routes.go
package documents

import (
	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/system/auth"
)

// Routes is mounted at /api/documents.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.ServeDocument)
		r.Patch("/", h.HandleUpdate)
		r.Delete("/", h.HandleDelete)
		r.Get("/versions", h.ServeVersions)
		r.Post("/versions/{version}/restore", h.HandleRestore)
		r.Post("/attachments", h.HandleAttach)
	})
	return r
}

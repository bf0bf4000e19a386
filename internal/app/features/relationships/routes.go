// internal/app/features/relationships/routes.go
package relationships

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/domain/models"
)

// Routes is mounted at /api/relationships.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Route("/{kind}", func(r chi.Router) {
		r.Use(requireKind)
		r.Get("/", h.ServeLinks)
		r.Delete("/{otherId}", h.HandleRemove)

		r.Get("/requests", h.ServeRequests)
		r.Post("/requests", h.HandleCreateRequest)
		r.Post("/requests/{id}/accept", h.HandleAccept)
		r.Post("/requests/{id}/decline", h.HandleDecline)
		r.Post("/requests/{id}/cancel", h.HandleCancel)
	})
	return r
}

func requireKind(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !models.IsValidKind(chi.URLParam(r, "kind")) {
			jsonapi.NotFound(w, "relationship kind")
			return
		}
		next.ServeHTTP(w, r)
	})
}

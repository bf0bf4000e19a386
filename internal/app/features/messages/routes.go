// internal/app/features/messages/routes.go
package messages

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/system/auth"
)

// Routes is mounted at /api/messages. sendLimit, when set, wraps the send route.
func Routes(h *Handler, sendLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeConversation)
	r.Get("/unread-count", h.ServeUnreadCount)
	if sendLimit != nil {
		r.With(sendLimit).Post("/send", h.HandleSend)
	} else {
		r.Post("/send", h.HandleSend)
	}
	r.Post("/{id}/read", h.HandleMarkRead)
	r.Delete("/{id}", h.HandleDelete)
	return r
}

// internal/app/features/study/routes.go
package study

import (
	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/system/auth"
)

// GuideRoutes is mounted at /api/study-guides.
func GuideRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeGuides)
	r.Post("/", h.HandleCreateGuide)
	r.Get("/{id}", h.ServeGuide)
	r.Delete("/{id}", h.HandleDeleteGuide)
	return r
}

// DeckRoutes is mounted at /api/flashcards/decks.
func DeckRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeDecks)
	r.Post("/", h.HandleCreateDeck)
	r.Get("/{id}", h.ServeDeck)
	r.Put("/{id}", h.HandleReplaceDeck)
	r.Delete("/{id}", h.HandleDeleteDeck)
	return r
}

// DefenseRoutes is mounted at /api/defense/sets.
func DefenseRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeSets)
	r.Post("/", h.HandleCreateSet)
	r.Get("/{id}", h.ServeSet)
	r.Delete("/{id}", h.HandleDeleteSet)
	return r
}

// DefenseResponseRoutes is mounted at /api/instruments/defense-responses.
func DefenseResponseRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeResponses)
	r.Post("/", h.HandleCreateResponse)
	r.Delete("/{id}", h.HandleDeleteResponse)
	return r
}

package study

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/htmlsanitize"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
)

const (
	maxCards          = 200
	maxGeneratedCards = 50
	defaultCardCount  = 20
)

type deckRequest struct {
	Title      string             `json:"title"`
	Topic      string             `json:"topic"`
	Cards      []models.Flashcard `json:"cards"`
	Generate   bool               `json:"generate"`
	SourceText string             `json:"source_text"`
	Count      int                `json:"count"`
}

func validateCards(errs *inputval.Errors, cards []models.Flashcard) {
	if n := len(cards); n == 0 || n > maxCards {
		errs.Add("cards", "must hold between 1 and "+strconv.Itoa(maxCards)+" cards")
		return
	}
	for i := range cards {
		c := &cards[i]
		c.Front = htmlsanitize.PlainText(c.Front)
		c.Back = htmlsanitize.PlainText(c.Back)
		prefix := "cards." + strconv.Itoa(i) + "."
		errs.Length(prefix+"front", c.Front, 1, 2000)
		errs.Length(prefix+"back", c.Back, 1, 2000)
	}
}

func (req *deckRequest) validate() inputval.Errors {
	req.Title = htmlsanitize.PlainText(req.Title)
	req.Topic = strings.TrimSpace(req.Topic)

	var errs inputval.Errors
	errs.Length("title", req.Title, 1, 255)
	if req.Generate {
		errs.Length("topic", req.Topic, 1, 300)
		errs.Length("source_text", req.SourceText, 0, 20000)
		if req.Count == 0 {
			req.Count = defaultCardCount
		}
		errs.Check(req.Count >= 1 && req.Count <= maxGeneratedCards, "count", "must be between 1 and "+strconv.Itoa(maxGeneratedCards))
		return errs
	}
	errs.Length("topic", req.Topic, 0, 300)
	validateCards(&errs, req.Cards)
	return errs
}

// HandleCreateDeck handles POST /api/flashcards/decks.
func (h *Handler) HandleCreateDeck(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	var req deckRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	if errs := req.validate(); errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}
	if req.Generate && !h.allowGenerate(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	cards := req.Cards
	if req.Generate {
		gen, err := h.Material.Flashcards(ctx, req.Topic, req.SourceText, strconv.Itoa(req.Count))
		if err != nil {
			h.ErrLog.LogAIError(w, r, err)
			return
		}
		if len(gen) > req.Count {
			gen = gen[:req.Count]
		}
		for i := range gen {
			gen[i].Front = htmlsanitize.PlainText(gen[i].Front)
			gen[i].Back = htmlsanitize.PlainText(gen[i].Back)
		}
		cards = gen
	}

	d, err := h.Decks.Create(ctx, uid, req.Title, req.Topic, cards)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create flashcard deck failed", err, "")
		return
	}
	jsonapi.Created(w, d)
}

// ServeDecks handles GET /api/flashcards/decks. Cards are left out of the list.
func (h *Handler) ServeDecks(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	decks, err := h.Decks.List(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list flashcard decks failed", err, "")
		return
	}
	jsonapi.OK(w, decks)
}

// ServeDeck handles GET /api/flashcards/decks/{id}.
func (h *Handler) ServeDeck(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	d, err := h.Decks.Get(ctx, uid, id)
	if err != nil {
		h.storeErr(w, r, "flashcard deck", err)
		return
	}
	jsonapi.OK(w, d)
}

type replaceDeckRequest struct {
	Title string             `json:"title"`
	Cards []models.Flashcard `json:"cards"`
}

// HandleReplaceDeck handles PUT /api/flashcards/decks/{id}.
func (h *Handler) HandleReplaceDeck(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	var req replaceDeckRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	req.Title = htmlsanitize.PlainText(req.Title)
	var errs inputval.Errors
	errs.Length("title", req.Title, 1, 255)
	validateCards(&errs, req.Cards)
	if errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	d, err := h.Decks.Replace(ctx, uid, id, req.Title, req.Cards)
	if err != nil {
		h.storeErr(w, r, "flashcard deck", err)
		return
	}
	jsonapi.OK(w, d)
}

// HandleDeleteDeck handles DELETE /api/flashcards/decks/{id}.
func (h *Handler) HandleDeleteDeck(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Decks.Delete(ctx, uid, id); err != nil {
		h.storeErr(w, r, "flashcard deck", err)
		return
	}
	jsonapi.Success(w, http.StatusOK, nil, "deck deleted")
}

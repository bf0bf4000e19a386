// internal/app/features/study/handler.go
package study

import (
	"errors"
	"net/http"

	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	defensestore "github.com/zerlake/thesisai/internal/app/store/defense"
	flashcardstore "github.com/zerlake/thesisai/internal/app/store/flashcards"
	"github.com/zerlake/thesisai/internal/app/store/owned"
	studyguidestore "github.com/zerlake/thesisai/internal/app/store/studyguides"
	"github.com/zerlake/thesisai/internal/app/system/ai"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves study guides, flashcard decks, defense question sets and
// prepared defense responses.
// Each item is visible to its owner only.
type Handler struct {
	Guides   *studyguidestore.Store
	Decks    *flashcardstore.Store
	Defense  *defensestore.Store
	Material ai.Material
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger

	// AIGate charges the caller's AI limits. It runs only for requests that
	// generate content, after validation. Nil allows everything.
	AIGate func(w http.ResponseWriter, r *http.Request) bool
}

func NewHandler(db *mongo.Database, material ai.Material, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Guides:   studyguidestore.New(db),
		Decks:    flashcardstore.New(db),
		Defense:  defensestore.New(db),
		Material: material,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// allowGenerate answers 503 when no model is configured and otherwise charges
// the AI limits.
func (h *Handler) allowGenerate(w http.ResponseWriter, r *http.Request) bool {
	if !ai.Available(h.Material.Gen) {
		h.ErrLog.LogAIError(w, r, ai.ErrUnavailable)
		return false
	}
	return h.AIGate == nil || h.AIGate(w, r)
}

// storeErr answers a failed owner-scoped lookup. Rows of other owners look
// exactly like missing rows.
func (h *Handler) storeErr(w http.ResponseWriter, r *http.Request, what string, err error) {
	if errors.Is(err, owned.ErrNotFound) {
		jsonapi.NotFound(w, what)
		return
	}
	h.ErrLog.LogServerError(w, r, "study material "+what+" failed", err, "")
}

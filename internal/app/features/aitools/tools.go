package aitools

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/features/documents"
	documentstore "github.com/zerlake/thesisai/internal/app/store/documents"
	"github.com/zerlake/thesisai/internal/app/system/ai"
	"github.com/zerlake/thesisai/internal/app/system/htmlsanitize"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CodeToolNotFound is returned for unknown tool ids.
const CodeToolNotFound = "TOOL_NOT_FOUND"

// documentInput is filled from the document body when the caller passes a
// document_id and leaves it blank.
const documentInput = "text"

type runRequest struct {
	Input      map[string]string `json:"input"`
	DocumentID string            `json:"document_id"`
}

type runResponse struct {
	ToolID      string    `json:"tool_id"`
	Output      string    `json:"output"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ServeCatalog handles GET /api/ai-tools.
func (h *Handler) ServeCatalog(w http.ResponseWriter, r *http.Request) {
	jsonapi.OK(w, map[string]any{
		"tools":     h.Catalog.List(),
		"available": ai.Available(h.Gen),
	})
}

// HandleRun handles POST /api/ai-tools/{toolId}.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	toolID := chi.URLParam(r, "toolId")
	tool, err := h.Catalog.Get(toolID)
	if err != nil {
		jsonapi.Error(w, http.StatusNotFound, CodeToolNotFound, "unknown tool "+toolID)
		return
	}
	var req runRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	if req.Input == nil {
		req.Input = map[string]string{}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if req.DocumentID != "" {
		if !h.attachDocument(ctx, w, r, tool, &req) {
			return
		}
	}

	prompt, err := tool.Request(req.Input)
	if err != nil {
		h.ErrLog.LogAIError(w, r, err)
		return
	}
	if !ai.Available(h.Gen) {
		h.ErrLog.LogAIError(w, r, ai.ErrUnavailable)
		return
	}
	if h.Gate != nil && !h.Gate(w, r) {
		return
	}

	start := time.Now()
	res, err := h.Gen.Generate(ctx, prompt)
	if err != nil {
		h.ErrLog.LogAIError(w, r, err)
		return
	}
	h.Log.Debug("ai tool run",
		zap.String("tool", tool.ID),
		zap.String("model", res.Model),
		zap.Duration("elapsed", time.Since(start)))

	jsonapi.OK(w, runResponse{
		ToolID:      tool.ID,
		Output:      strings.TrimSpace(res.Text),
		Model:       res.Model,
		GeneratedAt: time.Now().UTC(),
	})
}

// attachDocument checks the caller may read the document and feeds its
// plain text to tools that take a text input.
func (h *Handler) attachDocument(ctx context.Context, w http.ResponseWriter, r *http.Request, tool *ai.Tool, req *runRequest) bool {
	id, err := primitive.ObjectIDFromHex(req.DocumentID)
	if err != nil {
		jsonapi.ValidationFailed(w, map[string]string{"document_id": "must be a valid id"})
		return false
	}
	doc, _, err := h.Access.Readable(ctx, r, id)
	switch {
	case errors.Is(err, documentstore.ErrNotFound):
		jsonapi.NotFound(w, "document")
		return false
	case errors.Is(err, documents.ErrForbidden):
		jsonapi.Forbidden(w, "this document is not shared with you")
		return false
	case err != nil:
		h.ErrLog.LogServerError(w, r, "load document for ai tool failed", err, "")
		return false
	}
	if hasInput(tool, documentInput) && strings.TrimSpace(req.Input[documentInput]) == "" {
		req.Input[documentInput] = htmlsanitize.PlainText(doc.Content)
	}
	return true
}

func hasInput(t *ai.Tool, name string) bool {
	for _, in := range t.Inputs {
		if in.Name == name {
			return true
		}
	}
	return false
}

package documents

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/store/audit"
	documentstore "github.com/zerlake/thesisai/internal/app/store/documents"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/htmlsanitize"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/limits"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
)

// Error codes.
const (
	CodeVersionConflict = "VERSION_CONFLICT"
)

type createRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

type updateRequest struct {
	Version int     `json:"version"`
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Status  *string `json:"status"`
}

func checkContent(errs *inputval.Errors, content string) {
	errs.Check(len(content) <= limits.MaxDocumentContent, "content", "must be at most 1 MiB")
}

func checkStatus(errs *inputval.Errors, status string) {
	errs.Check(models.IsValidDocumentStatus(status), "status", "must be draft, in_review or final")
}

// storeErr maps documentstore and access errors to responses.
func (h *Handler) storeErr(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, documentstore.ErrNotFound):
		jsonapi.NotFound(w, "document")
	case errors.Is(err, documentstore.ErrVersionNotFound):
		jsonapi.NotFound(w, "document version")
	case errors.Is(err, documentstore.ErrVersionConflict):
		jsonapi.Conflict(w, CodeVersionConflict, "the document changed since you loaded it; reload and try again")
	case errors.Is(err, ErrForbidden):
		jsonapi.Forbidden(w, "this document is not shared with you")
	default:
		h.ErrLog.LogServerError(w, r, msg, err, "")
	}
}

// HandleCreate handles POST /api/documents.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	var req createRequest
	if !jsonapi.DecodeLimit(w, r, &req, limits.MaxDocumentBody) {
		return
	}
	req.Title = htmlsanitize.PlainText(req.Title)
	req.Content = htmlsanitize.Sanitize(req.Content)
	if req.Status == "" {
		req.Status = models.DocumentDraft
	}

	var errs inputval.Errors
	errs.Length("title", req.Title, 1, 255)
	checkContent(&errs, req.Content)
	checkStatus(&errs, req.Status)
	if errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	doc, err := h.Docs.Create(ctx, uid, req.Title, req.Content, req.Status)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create document failed", err, "")
		return
	}
	h.AuditLog.Document(ctx, r, audit.ActionDocumentCreated, doc.ID.Hex())
	jsonapi.Created(w, doc)
}

type listResponse struct {
	Documents  []models.Document `json:"documents"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// ServeList handles GET /api/documents?cursor=&limit=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	limit := jsonapi.IntQuery(r, "limit", 20, 1, 100)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	docs, next, err := h.Docs.ListByOwner(ctx, uid, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list documents failed", err, "")
		return
	}
	jsonapi.OK(w, listResponse{Documents: docs, NextCursor: next})
}

// ServeDocument handles GET /api/documents/{id}.
func (h *Handler) ServeDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	doc, reader, err := h.Access.Readable(ctx, r, id)
	if err != nil {
		h.storeErr(w, r, "load document failed", err)
		return
	}
	if reader == ReaderMentor {
		h.AuditLog.Document(ctx, r, audit.ActionDocumentAccessed, doc.ID.Hex())
	}
	jsonapi.OK(w, doc)
}

// HandleUpdate handles PATCH /api/documents/{id}. The body carries the
// version the client last saw.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	var req updateRequest
	if !jsonapi.DecodeLimit(w, r, &req, limits.MaxDocumentBody) {
		return
	}

	var errs inputval.Errors
	errs.Check(req.Version >= 1, "version", "is required")
	if req.Title == nil && req.Content == nil && req.Status == nil {
		errs.Add("title", "nothing to update")
	}
	if req.Title != nil {
		t := htmlsanitize.PlainText(*req.Title)
		req.Title = &t
		errs.Length("title", t, 1, 255)
	}
	if req.Content != nil {
		c := htmlsanitize.Sanitize(*req.Content)
		req.Content = &c
		checkContent(&errs, c)
	}
	if req.Status != nil {
		checkStatus(&errs, *req.Status)
	}
	if errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	doc, err := h.Docs.Apply(ctx, id, uid, req.Version, documentstore.Update{Title: req.Title, Content: req.Content, Status: req.Status})
	if err != nil {
		h.storeErr(w, r, "update document failed", err)
		return
	}
	h.AuditLog.Document(ctx, r, audit.ActionDocumentUpdated, doc.ID.Hex())
	jsonapi.OK(w, doc)
}

// ServeVersions handles GET /api/documents/{id}/versions. Anyone who may
// read the document may list its versions.
func (h *Handler) ServeVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, _, err := h.Access.Readable(ctx, r, id); err != nil {
		h.storeErr(w, r, "load document failed", err)
		return
	}
	versions, err := h.Docs.Versions(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list document versions failed", err, "")
		return
	}
	jsonapi.OK(w, versions)
}

// HandleRestore handles POST /api/documents/{id}/versions/{version}/restore.
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		jsonapi.BadRequest(w, "version must be a positive number")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	doc, err := h.Docs.Restore(ctx, id, uid, version)
	if err != nil {
		h.storeErr(w, r, "restore document failed", err)
		return
	}
	h.AuditLog.Document(ctx, r, audit.ActionDocumentRestored, doc.ID.Hex())
	jsonapi.OK(w, doc)
}

// HandleDelete handles DELETE /api/documents/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Docs.Delete(ctx, id, uid); err != nil {
		h.storeErr(w, r, "delete document failed", err)
		return
	}
	h.AuditLog.Document(ctx, r, audit.ActionDocumentDeleted, id.Hex())
	jsonapi.Success(w, http.StatusOK, nil, "document deleted")
}

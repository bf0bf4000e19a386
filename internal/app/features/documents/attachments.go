package documents

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/zerlake/thesisai/internal/app/store/audit"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/storage"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
)

// CodeStorageUnavailable is returned when no bucket is configured.
const CodeStorageUnavailable = "STORAGE_UNAVAILABLE"

type attachRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

type attachResponse struct {
	Upload     storage.Upload    `json:"upload"`
	Attachment models.Attachment `json:"attachment"`
}

// HandleAttach handles POST /api/documents/{id}/attachments. It records the
// attachment and returns a presigned PUT the client uploads the bytes to.
func (h *Handler) HandleAttach(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	if h.Storage == nil {
		h.ErrLog.Unavailable(w, CodeStorageUnavailable, "File uploads are not configured.")
		return
	}
	var req attachRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	req.FileName = strings.TrimSpace(req.FileName)
	req.ContentType = strings.TrimSpace(req.ContentType)

	var errs inputval.Errors
	errs.Length("file_name", req.FileName, 1, 255)
	errs.Length("content_type", req.ContentType, 0, 100)
	if errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	doc, err := h.Docs.Get(ctx, id)
	if err != nil {
		h.storeErr(w, r, "load document failed", err)
		return
	}
	if doc.OwnerID != uid {
		jsonapi.NotFound(w, "document")
		return
	}

	up, err := h.Storage.PresignPut(ctx, uid.Hex(), req.FileName, req.ContentType)
	if err != nil {
		h.ErrLog.LogUpstreamError(w, r, "presign upload failed", err, "Could not prepare the upload.")
		return
	}
	att := models.Attachment{
		Key:         up.Key,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Docs.AddAttachment(ctx, id, uid, att); err != nil {
		h.storeErr(w, r, "record attachment failed", err)
		return
	}
	h.AuditLog.Document(ctx, r, audit.ActionDocumentUpdated, id.Hex())
	jsonapi.Created(w, attachResponse{Upload: up, Attachment: att})
}

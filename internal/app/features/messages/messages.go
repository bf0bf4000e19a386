package messages

import (
	"context"
	"errors"
	"net/http"

	"github.com/zerlake/thesisai/internal/app/store/audit"
	messagestore "github.com/zerlake/thesisai/internal/app/store/messages"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/htmlsanitize"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/limits"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sendRequest struct {
	RecipientID string `json:"recipient_id"`
	Body        string `json:"body"`
}

// HandleSend handles POST /api/messages/send. Students and their linked
// advisors or critics may write to each other; admins may write to anyone.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	var req sendRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	req.Body = htmlsanitize.PlainText(req.Body)

	var errs inputval.Errors
	to, err := primitive.ObjectIDFromHex(req.RecipientID)
	errs.Check(err == nil, "recipient_id", "must be a valid id")
	errs.Check(err != nil || to != uid, "recipient_id", "cannot message yourself")
	errs.Length("body", req.Body, 1, limits.MaxMessageChars)
	if errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Profiles.GetByID(ctx, to); err != nil {
		if errors.Is(err, profilestore.ErrNotFound) {
			jsonapi.NotFound(w, "recipient")
			return
		}
		h.ErrLog.LogServerError(w, r, "load recipient failed", err, "")
		return
	}
	if !authz.IsAdmin(r) {
		linked, err := h.Links.Connected(ctx, uid, to)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "relationship check failed", err, "")
			return
		}
		if !linked {
			jsonapi.Forbidden(w, "you can only message your linked advisors, critics or students")
			return
		}
	}

	m, err := h.Messages.Send(ctx, uid, to, req.Body)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "send message failed", err, "")
		return
	}
	_, name, _, _ := authz.UserCtx(r)
	h.notify(ctx, to, name)
	h.AuditLog.Message(ctx, r, audit.ActionMessageSent, m.ID.Hex())
	jsonapi.Created(w, m)
}

// ServeConversation handles GET /api/messages?with={userId}&before={id}&limit=.
func (h *Handler) ServeConversation(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	q := r.URL.Query()
	with, err := primitive.ObjectIDFromHex(q.Get("with"))
	if err != nil {
		jsonapi.ValidationFailed(w, map[string]string{"with": "must be a valid id"})
		return
	}
	var before primitive.ObjectID
	if s := q.Get("before"); s != "" {
		if before, err = primitive.ObjectIDFromHex(s); err != nil {
			jsonapi.ValidationFailed(w, map[string]string{"before": "must be a valid id"})
			return
		}
	}
	limit := jsonapi.IntQuery(r, "limit", 50, 1, 100)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	msgs, err := h.Messages.Conversation(ctx, uid, with, before, int64(limit))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load conversation failed", err, "")
		return
	}
	jsonapi.OK(w, msgs)
}

// HandleMarkRead handles POST /api/messages/{id}/read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Messages.MarkRead(ctx, id, uid); err != nil {
		h.storeErr(w, r, "mark message read failed", err)
		return
	}
	jsonapi.Success(w, http.StatusOK, nil, "message marked read")
}

// HandleDelete handles DELETE /api/messages/{id}.
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
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Messages.Delete(ctx, id, uid); err != nil {
		h.storeErr(w, r, "delete message failed", err)
		return
	}
	h.AuditLog.Message(ctx, r, audit.ActionMessageDeleted, id.Hex())
	jsonapi.Success(w, http.StatusOK, nil, "message deleted")
}

// ServeUnreadCount handles GET /api/messages/unread-count.
func (h *Handler) ServeUnreadCount(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Messages.UnreadCount(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count unread messages failed", err, "")
		return
	}
	jsonapi.OK(w, map[string]int64{"unread": n})
}

func (h *Handler) storeErr(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, messagestore.ErrNotFound) {
		jsonapi.NotFound(w, "message")
		return
	}
	h.ErrLog.LogServerError(w, r, msg, err, "")
}

package notifications

import (
	"context"
	"errors"
	"net/http"

	notificationstore "github.com/zerlake/thesisai/internal/app/store/notifications"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
)

type listResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

// ServeList handles GET /api/notifications?unread=true&limit=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	limit := jsonapi.IntQuery(r, "limit", 50, 1, 200)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Notifications.List(ctx, uid, jsonapi.BoolQuery(r, "unread"), int64(limit))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list notifications failed", err, "")
		return
	}
	unread, err := h.Notifications.UnreadCount(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count notifications failed", err, "")
		return
	}
	jsonapi.OK(w, listResponse{Notifications: list, Unread: unread})
}

// HandleRead handles POST /api/notifications/{id}/read.
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Notifications.MarkRead(ctx, uid, id); err != nil {
		h.storeErr(w, r, "mark notification read failed", err)
		return
	}
	jsonapi.Success(w, http.StatusOK, nil, "notification marked read")
}

// HandleReadAll handles POST /api/notifications/read-all.
func (h *Handler) HandleReadAll(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notifications.MarkAllRead(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "mark all notifications read failed", err, "")
		return
	}
	jsonapi.OK(w, map[string]int64{"updated": n})
}

// HandleDelete handles DELETE /api/notifications/{id}.
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

	if err := h.Notifications.Delete(ctx, uid, id); err != nil {
		h.storeErr(w, r, "delete notification failed", err)
		return
	}
	jsonapi.Success(w, http.StatusOK, nil, "notification deleted")
}

func (h *Handler) storeErr(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, notificationstore.ErrNotFound) {
		jsonapi.NotFound(w, "notification")
		return
	}
	h.ErrLog.LogServerError(w, r, msg, err, "")
}

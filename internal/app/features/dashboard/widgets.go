package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	metricsstore "github.com/zerlake/thesisai/internal/app/store/metrics"
	widgetstore "github.com/zerlake/thesisai/internal/app/store/widgetcache"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// widgetSource computes a widget's data. complete is false when some of it
// could not be read; such data is served but never cached.
type widgetSource func(ctx context.Context, h *Handler, uid primitive.ObjectID) (data any, complete bool)

var widgetSources = map[string]widgetSource{
	"summary": func(ctx context.Context, h *Handler, uid primitive.ObjectID) (any, bool) {
		c := metricsstore.FetchUserCounts(ctx, h.DB, uid)
		return c, len(c.Failed) == 0
	},
	"study-material": func(ctx context.Context, h *Handler, uid primitive.ObjectID) (any, bool) {
		c := metricsstore.FetchUserCounts(ctx, h.DB, uid)
		return map[string]int64{
			"documents":       c.Documents,
			"flashcard_decks": c.FlashcardDecks,
			"study_guides":    c.StudyGuides,
			"defense_sets":    c.DefenseSets,
		}, len(c.Failed) == 0
	},
	"inbox": func(ctx context.Context, h *Handler, uid primitive.ObjectID) (any, bool) {
		c := metricsstore.FetchUserCounts(ctx, h.DB, uid)
		return map[string]int64{
			"unread_notifications": c.UnreadNotifications,
			"unread_messages":      c.UnreadMessages,
		}, len(c.Failed) == 0
	},
	"layouts": func(ctx context.Context, h *Handler, uid primitive.ObjectID) (any, bool) {
		list, err := h.Layouts.List(ctx, uid)
		if err != nil {
			h.Log.Warn("layouts widget failed", zap.Error(err))
			return map[string]int{"layouts": 0}, false
		}
		return map[string]int{"layouts": len(list)}, true
	},
}

type widgetResponse struct {
	WidgetID  string          `json:"widget_id"`
	Data      json.RawMessage `json:"data"`
	Cached    bool            `json:"cached"`
	Partial   bool            `json:"partial,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// widgetParam answers 400 for widgets nobody computes.
func widgetParam(w http.ResponseWriter, r *http.Request) (string, widgetSource, bool) {
	id := chi.URLParam(r, "widgetID")
	src, ok := widgetSources[id]
	if !ok {
		jsonapi.ValidationFailed(w, map[string]string{"widget": "unknown widget"})
		return "", nil, false
	}
	return id, src, true
}

// ServeWidget handles GET /api/dashboard/widgets/{widgetID}. Fresh data is
// cached per user; refresh=true skips the cached copy.
func (h *Handler) ServeWidget(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	widgetID, src, ok := widgetParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()
	now := h.now()

	if !jsonapi.BoolQuery(r, "refresh") {
		e, err := h.Widgets.Get(ctx, uid, widgetID, now)
		switch {
		case err == nil:
			jsonapi.OK(w, widgetResponse{WidgetID: widgetID, Data: e.Data, Cached: true, Timestamp: now})
			return
		case !errors.Is(err, widgetstore.ErrNotFound):
			h.Log.Warn("widget cache read failed", zap.String("widget", widgetID), zap.Error(err))
		}
	}

	data, complete := src(ctx, h, uid)
	raw, err := json.Marshal(data)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "encode widget data failed", err, "")
		return
	}
	if complete {
		if err := h.Widgets.Put(ctx, uid, widgetID, raw, now, h.WidgetTTL); err != nil {
			h.Log.Warn("widget cache write failed", zap.String("widget", widgetID), zap.Error(err))
		}
	}
	jsonapi.OK(w, widgetResponse{WidgetID: widgetID, Data: raw, Partial: !complete, Timestamp: now})
}

// HandleClearWidget handles DELETE /api/dashboard/widgets/{widgetID}.
func (h *Handler) HandleClearWidget(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	widgetID, _, ok := widgetParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Widgets.Clear(ctx, uid, widgetID); err != nil {
		h.ErrLog.LogServerError(w, r, "clear widget cache failed", err, "")
		return
	}
	jsonapi.Success(w, http.StatusOK, map[string]any{"widget_id": widgetID, "cleared": true}, "widget cache cleared")
}

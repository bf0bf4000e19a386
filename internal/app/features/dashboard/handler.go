// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	layoutstore "github.com/zerlake/thesisai/internal/app/store/dashboards"
	metricsstore "github.com/zerlake/thesisai/internal/app/store/metrics"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	widgetstore "github.com/zerlake/thesisai/internal/app/store/widgetcache"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB        *mongo.Database
	Layouts   *layoutstore.Store
	Profiles  *profilestore.Store
	Widgets   *widgetstore.Store
	WidgetTTL time.Duration
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger

	// Now is the widget cache clock; nil means time.Now.
	Now func() time.Time
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:        db,
		Layouts:   layoutstore.New(db),
		Profiles:  profilestore.New(db),
		Widgets:   widgetstore.New(db),
		WidgetTTL: widgetstore.DefaultTTL,
		ErrLog:    errLog,
		Log:       logger,
	}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

type summary struct {
	metricsstore.Counts
	// UsersByRole is filled for admins only.
	UsersByRole map[string]int64 `json:"users_by_role,omitempty"`
}

// ServeSummary handles GET /api/dashboard/summary.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	role, uname, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	out := summary{Counts: metricsstore.FetchUserCounts(ctx, h.DB, uid)}
	if authz.IsAdmin(r) {
		byRole, err := h.Profiles.CountByRole(ctx)
		if err != nil {
			h.Log.Warn("dashboard role counts failed", zap.Error(err))
			out.Failed = append(out.Failed, "users_by_role")
		} else {
			out.UsersByRole = byRole
		}
	}
	if len(out.Failed) > 0 {
		h.Log.Warn("dashboard counters failed", zap.String("user", uname), zap.Strings("counters", out.Failed))
	}

	h.Log.Debug("dashboard summary served", zap.String("user", uname), zap.String("role", role))
	jsonapi.OK(w, out)
}

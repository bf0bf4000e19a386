package ratelimits

import (
	"context"
	"net/http"
	"strings"
	"time"

	ratelimitstore "github.com/zerlake/thesisai/internal/app/store/ratelimit"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxHours = 24 * 30

var violationTypes = map[string]bool{
	models.ViolationPerMinute:    true,
	models.ViolationDailyQuota:   true,
	models.ViolationAuthFailures: true,
}

func parseViolationFilter(r *http.Request) (ratelimitstore.ViolationFilter, inputval.Errors) {
	q := r.URL.Query()
	var errs inputval.Errors
	f := ratelimitstore.ViolationFilter{
		Feature:       strings.TrimSpace(q.Get("feature")),
		ViolationType: strings.TrimSpace(q.Get("violation_type")),
		Limit:         int64(jsonapi.IntQuery(r, "limit", 50, 1, 200)),
		Offset:        int64(jsonapi.IntQuery(r, "offset", 0, 0, 1_000_000)),
	}
	if f.ViolationType != "" && !violationTypes[f.ViolationType] {
		errs.Add("violation_type", "must be per_minute, daily_quota or auth_failures")
	}
	if s := strings.TrimSpace(q.Get("user_id")); s != "" {
		if id, err := primitive.ObjectIDFromHex(s); err == nil {
			f.UserID = &id
		} else {
			errs.Add("user_id", "is not a valid id")
		}
	}
	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"since", &f.Since}, {"until", &f.Until}} {
		s := strings.TrimSpace(q.Get(p.key))
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			errs.Add(p.key, "must be an RFC 3339 timestamp")
			continue
		}
		t = t.UTC()
		*p.dst = &t
	}
	if f.Since != nil && f.Until != nil && f.Until.Before(*f.Since) {
		errs.Add("until", "must not be before since")
	}
	return f, errs
}

// ServeViolations handles GET /violations.
func (h *Handler) ServeViolations(w http.ResponseWriter, r *http.Request) {
	f, errs := parseViolationFilter(r)
	if errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, total, err := h.Store.Violations(ctx, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list violations failed", err, "")
		return
	}
	jsonapi.OK(w, map[string]any{
		"violations": list,
		"total":      total,
		"limit":      f.Limit,
		"offset":     f.Offset,
	})
}

func since(r *http.Request) (time.Time, int) {
	hours := jsonapi.IntQuery(r, "hours", 24, 1, maxHours)
	return time.Now().UTC().Add(-time.Duration(hours) * time.Hour), hours
}

// ServeSummary handles GET /summary?hours=24.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	from, hours := since(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rows, err := h.Store.Summary(ctx, from)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "violation summary failed", err, "")
		return
	}
	jsonapi.OK(w, map[string]any{"hours": hours, "since": from, "summary": rows})
}

// ServeTopUsers handles GET /top-users?hours=24&limit=10.
func (h *Handler) ServeTopUsers(w http.ResponseWriter, r *http.Request) {
	from, hours := since(r)
	limit := jsonapi.IntQuery(r, "limit", 10, 1, 100)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	top, err := h.Store.TopOffenders(ctx, from, int64(limit))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "top offenders failed", err, "")
		return
	}
	jsonapi.OK(w, map[string]any{"hours": hours, "users": top})
}

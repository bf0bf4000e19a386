package auditlog

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/zerlake/thesisai/internal/app/store/audit"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	pageSize    = 50
	maxPageSize = 200
	maxStatsHrs = 24 * 30
)

var severities = map[string]bool{
	audit.SeverityInfo:     true,
	audit.SeverityWarning:  true,
	audit.SeverityError:    true,
	audit.SeverityCritical: true,
}

// parseTime accepts a date (YYYY-MM-DD) or an RFC 3339 timestamp. A bare
// end date covers the whole day.
func parseTime(s string, endOfDay bool) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, true
}

func parseFilter(r *http.Request) (audit.QueryFilter, inputval.Errors) {
	q := r.URL.Query()
	var errs inputval.Errors
	f := audit.QueryFilter{
		Action:   strings.TrimSpace(q.Get("action")),
		Category: strings.TrimSpace(q.Get("category")),
		Severity: strings.ToLower(strings.TrimSpace(q.Get("severity"))),
		Limit:    int64(jsonapi.IntQuery(r, "limit", pageSize, 1, maxPageSize)),
		Offset:   int64(jsonapi.IntQuery(r, "offset", 0, 0, 1_000_000)),
	}

	switch trail := strings.TrimSpace(q.Get("trail")); trail {
	case "", audit.TrailGeneral, audit.TrailFinancial:
		f.Trail = trail
	default:
		errs.Add("trail", "must be general or financial")
	}
	if f.Severity != "" && !severities[f.Severity] {
		errs.Add("severity", "must be info, warning, error or critical")
	}
	if s := strings.TrimSpace(q.Get("user_id")); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			errs.Add("user_id", "is not a valid id")
		} else {
			f.UserID = &id
		}
	}
	if s := strings.TrimSpace(q.Get("start_date")); s != "" {
		if t, ok := parseTime(s, false); ok {
			f.StartTime = &t
		} else {
			errs.Add("start_date", "must be YYYY-MM-DD or RFC 3339")
		}
	}
	if s := strings.TrimSpace(q.Get("end_date")); s != "" {
		if t, ok := parseTime(s, true); ok {
			f.EndTime = &t
		} else {
			errs.Add("end_date", "must be YYYY-MM-DD or RFC 3339")
		}
	}
	if f.StartTime != nil && f.EndTime != nil && f.EndTime.Before(*f.StartTime) {
		errs.Add("end_date", "must not be before start_date")
	}
	return f, errs
}

type listResponse struct {
	Events []audit.Event `json:"events"`
	Total  int64         `json:"total"`
	Limit  int64         `json:"limit"`
	Offset int64         `json:"offset"`
}

// ServeList handles GET /api/admin/audit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f, errs := parseFilter(r)
	if errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	events, err := h.Events.Query(ctx, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events failed", err, "")
		return
	}
	total, err := h.Events.Count(ctx, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count audit events failed", err, "")
		return
	}
	jsonapi.OK(w, listResponse{Events: events, Total: total, Limit: f.Limit, Offset: f.Offset})
}

// ServeStats handles GET /api/admin/audit/stats?hours=24.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	hours := jsonapi.IntQuery(r, "hours", 24, 1, maxStatsHrs)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	stats, err := h.Events.Statistics(ctx, time.Now().UTC().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "audit statistics failed", err, "")
		return
	}
	h.Log.Debug("audit statistics served", zap.Int("hours", hours), zap.Int64("total", stats.Total))
	jsonapi.OK(w, stats)
}

package ratelimits

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/ratelimit"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
)

// ServeStatus handles GET /status.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		jsonapi.OK(w, ratelimit.Status{Plans: ratelimit.AllPlanLimits()})
		return
	}
	jsonapi.OK(w, h.Service.Status())
}

type featureUsage struct {
	Feature   string `json:"feature"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"` // -1 means unlimited
	Remaining int    `json:"remaining"`
}

type usageResponse struct {
	UserID   string         `json:"user_id"`
	Plan     string         `json:"plan"`
	Day      string         `json:"day"`
	ResetsAt time.Time      `json:"resets_at"`
	Features []featureUsage `json:"features"`
}

// ServeUsage handles GET /usage/{userId}: today's usage against the plan.
func (h *Handler) ServeUsage(w http.ResponseWriter, r *http.Request) {
	uid, ok := jsonapi.ObjectIDParam(w, r, "userId")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Profiles.GetByID(ctx, uid)
	if errors.Is(err, profilestore.ErrNotFound) {
		jsonapi.NotFound(w, "user")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load profile failed", err, "")
		return
	}

	now := time.Now().UTC()
	day := ratelimit.Day(now)
	used, err := h.Store.UsageOn(ctx, uid, day)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load usage failed", err, "")
		return
	}

	limits := ratelimit.LimitsFor(p.Plan).Daily
	out := usageResponse{UserID: uid.Hex(), Plan: p.Plan, Day: day, ResetsAt: ratelimit.NextDay(now)}
	for feature, limit := range limits {
		fu := featureUsage{Feature: feature, Used: used[feature], Limit: limit, Remaining: ratelimit.Unlimited}
		if limit != ratelimit.Unlimited {
			fu.Remaining = max(limit-fu.Used, 0)
		}
		out.Features = append(out.Features, fu)
	}
	sort.Slice(out.Features, func(i, j int) bool { return out.Features[i].Feature < out.Features[j].Feature })
	jsonapi.OK(w, out)
}

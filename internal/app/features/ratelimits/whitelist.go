package ratelimits

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	ratelimitstore "github.com/zerlake/thesisai/internal/app/store/ratelimit"
	"github.com/zerlake/thesisai/internal/app/system/htmlsanitize"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ruleRequest struct {
	Scope      string     `json:"scope"`
	Value      string     `json:"value"`
	Feature    string     `json:"feature"`
	Multiplier float64    `json:"multiplier"`
	Unlimited  bool       `json:"unlimited"`
	Reason     string     `json:"reason"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

func (req *ruleRequest) validate(now time.Time) inputval.Errors {
	req.Scope = strings.TrimSpace(req.Scope)
	req.Value = strings.TrimSpace(req.Value)
	req.Feature = strings.TrimSpace(req.Feature)
	req.Reason = htmlsanitize.PlainText(req.Reason)

	var errs inputval.Errors
	switch req.Scope {
	case models.WhitelistUser:
		if _, err := primitive.ObjectIDFromHex(req.Value); err != nil {
			errs.Add("value", "must be a user id")
		}
	case models.WhitelistIP:
		if net.ParseIP(req.Value) == nil {
			errs.Add("value", "must be an IP address")
		}
	case models.WhitelistPlan:
		errs.Check(models.IsValidPlan(req.Value), "value", "must be a known plan")
	default:
		errs.Add("scope", "must be user, ip or plan")
	}
	errs.Length("feature", req.Feature, 0, 50)
	errs.Length("reason", req.Reason, 0, 500)
	if !req.Unlimited {
		errs.Check(req.Multiplier > 0 && req.Multiplier <= 100, "multiplier", "must be between 0 and 100 unless unlimited")
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		errs.Add("expires_at", "must be in the future")
	}
	return errs
}

// ServeWhitelist handles GET /whitelist.
func (h *Handler) ServeWhitelist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	rules, err := h.Store.Rules(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list whitelist failed", err, "")
		return
	}
	jsonapi.OK(w, rules)
}

// HandleAddRule handles POST /whitelist.
func (h *Handler) HandleAddRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	if errs := req.validate(time.Now()); errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rule, err := h.Store.AddRule(ctx, models.WhitelistRule{
		Scope:           req.Scope,
		Value:           req.Value,
		Feature:         req.Feature,
		QuotaMultiplier: req.Multiplier,
		Unlimited:       req.Unlimited,
		Reason:          req.Reason,
		ExpiresAt:       req.ExpiresAt,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "add whitelist rule failed", err, "")
		return
	}
	h.Log.Info("whitelist rule added",
		zap.String("scope", rule.Scope),
		zap.String("value", rule.Value),
		zap.String("feature", rule.Feature),
		zap.Bool("unlimited", rule.Unlimited))
	jsonapi.Created(w, rule)
}

// HandleRemoveRule handles DELETE /whitelist/{id}.
func (h *Handler) HandleRemoveRule(w http.ResponseWriter, r *http.Request) {
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Store.RemoveRule(ctx, id); err != nil {
		if errors.Is(err, ratelimitstore.ErrRuleNotFound) {
			jsonapi.NotFound(w, "whitelist rule")
			return
		}
		h.ErrLog.LogServerError(w, r, "remove whitelist rule failed", err, "")
		return
	}
	jsonapi.Success(w, http.StatusOK, nil, "whitelist rule removed")
}

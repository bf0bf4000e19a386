package payouts

import (
	"context"
	"net/http"
	"strings"

	"github.com/zerlake/thesisai/internal/app/store/audit"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
)

// ServeAll handles GET /api/admin/payouts?status=&limit=.
func (h *Handler) ServeAll(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", models.PayoutPending, models.PayoutApproved, models.PayoutRejected, models.PayoutProcessed, models.PayoutCancelled:
	default:
		jsonapi.ValidationFailed(w, map[string]string{"status": "is not a payout status"})
		return
	}
	limit := jsonapi.IntQuery(r, "limit", 100, 1, 500)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Payouts.ListAll(ctx, status, int64(limit))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing payouts", err, "A database error occurred.")
		return
	}
	jsonapi.OK(w, list)
}

// HandleApprove handles POST /api/admin/payouts/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, audit.ActionPayoutApproved)
}

// HandleProcess handles POST /api/admin/payouts/{id}/process.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, audit.ActionPayoutProcessed)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// HandleReject handles POST /api/admin/payouts/{id}/reject. A reason is
// required.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, audit.ActionPayoutRejected)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, action string) {
	reviewer, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}

	var reason string
	if action == audit.ActionPayoutRejected {
		var req rejectRequest
		if !jsonapi.Decode(w, r, &req) {
			return
		}
		reason = strings.TrimSpace(req.Reason)
		var errs inputval.Errors
		errs.Length("reason", reason, 1, 500)
		if errs.Any() {
			jsonapi.ValidationFailed(w, errs)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var (
		p   *models.PayoutRequest
		err error
	)
	switch action {
	case audit.ActionPayoutApproved:
		p, err = h.Payouts.Approve(ctx, id, reviewer)
	case audit.ActionPayoutProcessed:
		p, err = h.Payouts.Process(ctx, id, reviewer)
	default:
		p, err = h.Payouts.Reject(ctx, id, reviewer, reason)
	}
	if !h.transitionErr(w, r, err) {
		return
	}

	h.AuditLog.Financial(ctx, r, action, p.UserID, "payout_request", p.ID.Hex(), auditDetails(p))
	h.notify(ctx, p, "Payout "+p.Status)
	jsonapi.Success(w, http.StatusOK, p, "payout "+p.Status)
}

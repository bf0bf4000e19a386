package payouts

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/zerlake/thesisai/internal/app/store/audit"
	payoutstore "github.com/zerlake/thesisai/internal/app/store/payouts"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
)

// Error codes.
const (
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeInvalidTransition   = "INVALID_STATUS_TRANSITION"
)

type payoutRequest struct {
	Amount         int64  `json:"amount"`
	Method         string `json:"method"`
	AccountDetails string `json:"account_details"`
}

func (h *Handler) validate(req *payoutRequest) inputval.Errors {
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	req.AccountDetails = strings.TrimSpace(req.AccountDetails)

	var errs inputval.Errors
	errs.Check(req.Amount >= h.Minimum, "amount", "must be at least "+formatPHP(h.Minimum))
	errs.Check(models.IsValidPayoutMethod(req.Method), "method", "must be gcash, bank_transfer or paypal")
	errs.Length("account_details", req.AccountDetails, 1, 500)
	return errs
}

// HandleRequest handles POST /api/payouts.
func (h *Handler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	var req payoutRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if errs := h.validate(&req); errs.Any() {
		h.AuditLog.ValidationFailure(ctx, r, errs)
		jsonapi.ValidationFailed(w, errs)
		return
	}

	p, err := h.Payouts.Request(ctx, uid, req.Amount, req.Method, req.AccountDetails)
	if errors.Is(err, payoutstore.ErrInsufficientBalance) {
		jsonapi.Conflict(w, CodeInsufficientBalance, "your balance does not cover this payout")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "payout request failed", err, "Could not create the payout request.")
		return
	}

	h.AuditLog.Financial(ctx, r, audit.ActionPayoutRequested, uid, "payout_request", p.ID.Hex(), auditDetails(&p))
	h.notify(ctx, &p, "Payout requested")
	jsonapi.Created(w, p)
}

// ServeMine handles GET /api/payouts.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Payouts.ListByUser(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing payouts", err, "A database error occurred.")
		return
	}
	jsonapi.OK(w, list)
}

// HandleCancel handles POST /api/payouts/{id}/cancel (requester only).
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Payouts.Cancel(ctx, id, uid)
	if !h.transitionErr(w, r, err) {
		return
	}
	h.AuditLog.Financial(ctx, r, audit.ActionPayoutCancelled, uid, "payout_request", p.ID.Hex(), auditDetails(p))
	h.notify(ctx, p, "Payout cancelled")
	jsonapi.Success(w, http.StatusOK, p, "payout cancelled")
}

// transitionErr writes the response for a failed status change and reports
// whether err was nil.
func (h *Handler) transitionErr(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, payoutstore.ErrNotFound):
		jsonapi.NotFound(w, "payout request")
	case errors.Is(err, payoutstore.ErrInvalidTransition):
		jsonapi.Conflict(w, CodeInvalidTransition, "the payout is not in a state that allows this change")
	default:
		h.ErrLog.LogServerError(w, r, "payout status change failed", err, "A database error occurred.")
	}
	return false
}

type ledgerView struct {
	Balance int64                `json:"balance"`
	Entries []models.LedgerEntry `json:"entries"`
}

// ServeLedger handles GET /api/ledger?limit=.
func (h *Handler) ServeLedger(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	limit := jsonapi.IntQuery(r, "limit", 100, 1, 500)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	balance, err := h.Ledger.Balance(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error computing balance", err, "A database error occurred.")
		return
	}
	entries, err := h.Ledger.List(ctx, uid, int64(limit))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing ledger", err, "A database error occurred.")
		return
	}
	jsonapi.OK(w, ledgerView{Balance: balance, Entries: entries})
}

package referrals

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/zerlake/thesisai/internal/app/store/audit"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	referralstore "github.com/zerlake/thesisai/internal/app/store/referrals"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/app/system/txn"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Error codes.
const (
	CodeNotReferred       = "NOT_REFERRED"
	CodeAlreadyConverted  = "ALREADY_CONVERTED"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
)

type summary struct {
	ReferralCode string                 `json:"referral_code"`
	Totals       referralstore.Totals   `json:"totals"`
	Events       []models.ReferralEvent `json:"events"`
}

// ServeMine handles GET /api/referrals.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Profiles.GetByID(ctx, uid)
	if errors.Is(err, profilestore.ErrNotFound) {
		jsonapi.NotFound(w, "profile")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading profile", err, "A database error occurred.")
		return
	}
	events, err := h.Referrals.ListByReferrer(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing referrals", err, "A database error occurred.")
		return
	}
	jsonapi.OK(w, summary{ReferralCode: p.ReferralCode, Totals: referralstore.Summarize(events), Events: events})
}

// ServeEvents handles GET /api/admin/referrals?status=&limit=.
func (h *Handler) ServeEvents(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", models.ReferralRecorded, models.ReferralFlagged, models.ReferralConfirmedFraud:
	default:
		jsonapi.ValidationFailed(w, map[string]string{"status": "is not a referral status"})
		return
	}
	limit := jsonapi.IntQuery(r, "limit", 100, 1, 500)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.Referrals.ListByStatus(ctx, status, int64(limit))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing referrals", err, "A database error occurred.")
		return
	}
	jsonapi.OK(w, events)
}

type conversionRequest struct {
	ReferredID string `json:"referred_id"`
}

// HandleConversion handles POST /api/admin/referrals/conversions: the
// referred account moved to a paid plan, so the referrer earns the
// commission.
func (h *Handler) HandleConversion(w http.ResponseWriter, r *http.Request) {
	var req conversionRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	referredID, err := primitive.ObjectIDFromHex(req.ReferredID)
	if err != nil {
		jsonapi.ValidationFailed(w, map[string]string{"referred_id": "must be a valid id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	referred, err := h.Profiles.GetByID(ctx, referredID)
	if errors.Is(err, profilestore.ErrNotFound) {
		jsonapi.NotFound(w, "user")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading referred profile", err, "A database error occurred.")
		return
	}
	if referred.ReferredBy == nil {
		jsonapi.Conflict(w, CodeNotReferred, "this user did not sign up with a referral code")
		return
	}
	referrerID := *referred.ReferredBy

	var event models.ReferralEvent
	err = txn.Run(ctx, h.Client, h.Log, func(ctx context.Context) error {
		ev, err := h.Referrals.Record(ctx, referrerID, referredID, models.ReferralConversion, h.Commission)
		if err != nil {
			return err
		}
		if _, err := h.Ledger.Credit(ctx, referrerID, h.Commission, models.SourceReferral, ev.ID, "referral conversion"); err != nil {
			if txn.Compensating(ctx) {
				if rerr := h.Referrals.Remove(context.WithoutCancel(ctx), ev.ID); rerr != nil {
					h.Log.Error("referral conversion compensation failed", zap.Error(rerr))
				}
			}
			return err
		}
		event = ev
		return nil
	})
	if errors.Is(err, referralstore.ErrDuplicate) {
		jsonapi.Conflict(w, CodeAlreadyConverted, "this conversion was already recorded")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "record conversion failed", err, "Could not record the conversion.")
		return
	}

	if h.Notifications != nil {
		if _, err := h.Notifications.Notify(ctx, referrerID, models.NotifyReferral, "Referral commission earned",
			"One of your referrals upgraded their plan.", "/referrals"); err != nil {
			h.Log.Warn("referral notification failed", zap.Error(err))
		}
	}
	jsonapi.Created(w, event)
}

// HandleFlag handles POST /api/admin/referrals/{id}/flag.
func (h *Handler) HandleFlag(w http.ResponseWriter, r *http.Request) {
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ev, err := h.Referrals.Flag(ctx, id)
	if !h.statusErr(w, r, err) {
		return
	}
	h.AuditLog.Financial(ctx, r, audit.ActionReferralFlagged, ev.ReferrerID, "referral_event", ev.ID.Hex(), eventDetails(ev))
	jsonapi.Success(w, http.StatusOK, ev, "referral flagged")
}

// HandleConfirmFraud handles POST /api/admin/referrals/{id}/confirm-fraud.
// Any commission already credited is taken back with an adjustment debit.
func (h *Handler) HandleConfirmFraud(w http.ResponseWriter, r *http.Request) {
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var ev *models.ReferralEvent
	err := txn.Run(ctx, h.Client, h.Log, func(ctx context.Context) error {
		before, err := h.Referrals.Get(ctx, id)
		if err != nil {
			return err
		}
		updated, err := h.Referrals.ConfirmFraud(ctx, id)
		if err != nil {
			return err
		}
		if updated.Commission > 0 {
			if _, err := h.Ledger.Debit(ctx, updated.ReferrerID, updated.Commission, models.SourceAdjustment, updated.ID, "referral fraud reversal"); err != nil {
				if txn.Compensating(ctx) {
					if rerr := h.Referrals.Revert(context.WithoutCancel(ctx), id, before.Status); rerr != nil {
						h.Log.Error("fraud reversal compensation failed", zap.Error(rerr))
					}
				}
				return err
			}
		}
		ev = updated
		return nil
	})
	if !h.statusErr(w, r, err) {
		return
	}
	h.AuditLog.Financial(ctx, r, audit.ActionFraudConfirmed, ev.ReferrerID, "referral_event", ev.ID.Hex(), eventDetails(ev))
	jsonapi.Success(w, http.StatusOK, ev, "fraud confirmed")
}

func (h *Handler) statusErr(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, referralstore.ErrNotFound):
		jsonapi.NotFound(w, "referral event")
	case errors.Is(err, referralstore.ErrInvalidTransition):
		jsonapi.Conflict(w, CodeInvalidTransition, "the referral event is not in a state that allows this change")
	default:
		h.ErrLog.LogServerError(w, r, "referral status change failed", err, "A database error occurred.")
	}
	return false
}

func eventDetails(ev *models.ReferralEvent) map[string]string {
	return map[string]string{
		"event_type":  ev.EventType,
		"referred_id": ev.ReferredID.Hex(),
		"commission":  strconv.FormatInt(ev.Commission, 10),
		"status":      ev.Status,
	}
}

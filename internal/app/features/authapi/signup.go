package authapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/zerlake/thesisai/internal/app/store/audit"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	"github.com/zerlake/thesisai/internal/app/system/authutil"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.uber.org/zap"
)

type signupRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"full_name"`
	ReferralCode string `json:"referral_code"`
}

func (req *signupRequest) validate() inputval.Errors {
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	req.ReferralCode = strings.TrimSpace(req.ReferralCode)

	var errs inputval.Errors
	errs.Check(inputval.IsValidEmail(req.Email), "email", "must be a valid email address")
	if err := authutil.ValidatePassword(req.Password); err != nil {
		errs.Add("password", err.Error())
	}
	errs.Length("full_name", req.FullName, 1, 100)
	if req.ReferralCode != "" {
		errs.Length("referral_code", req.ReferralCode, 8, 8)
	}
	return errs
}

// HandleSignup handles POST /api/auth/signup. New accounts are students on
// the free plan.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if inputval.LooksLikeInjection(req.FullName) {
		h.AuditLog.InjectionAttempt(ctx, r, "full_name")
		jsonapi.ValidationFailed(w, map[string]string{"full_name": "contains characters that are not allowed"})
		return
	}
	if errs := req.validate(); errs.Any() {
		h.AuditLog.ValidationFailure(ctx, r, errs)
		jsonapi.ValidationFailed(w, errs)
		return
	}

	var referrer *models.Profile
	if req.ReferralCode != "" {
		ref, err := h.Profiles.GetByReferralCode(ctx, req.ReferralCode)
		switch {
		case errors.Is(err, profilestore.ErrNotFound):
			jsonapi.ValidationFailed(w, map[string]string{"referral_code": "is not a valid referral code"})
			return
		case err != nil:
			h.ErrLog.LogServerError(w, r, "database error resolving referral code", err, "A database error occurred.")
			return
		}
		referrer = ref
	}

	hash, err := authutil.HashPassword(req.Password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "Could not create the account.")
		return
	}

	p := models.Profile{
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         models.RoleStudent,
		Plan:         models.PlanFree,
		Status:       models.StatusActive,
		PasswordHash: hash,
	}
	if referrer != nil {
		p.ReferredBy = &referrer.ID
	}
	created, err := h.Profiles.Create(ctx, p)
	if errors.Is(err, profilestore.ErrDuplicateEmail) {
		jsonapi.Conflict(w, CodeEmailTaken, "an account with this email already exists")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create profile failed", err, "Could not create the account.")
		return
	}

	if referrer != nil {
		// The account exists at this point; a lost referral event is logged, not surfaced.
		if _, err := h.Referrals.Record(ctx, referrer.ID, created.ID, models.ReferralSignup, 0); err != nil {
			h.Log.Error("record signup referral failed",
				zap.String("referrer_id", referrer.ID.Hex()),
				zap.String("referred_id", created.ID.Hex()),
				zap.Error(err))
		}
	}

	resp, ok := h.startSession(w, r, &created)
	if !ok {
		return
	}
	h.AuditLog.AuthSuccess(ctx, r, audit.ActionAuthSignup, created.ID, created.Email)
	jsonapi.Created(w, resp)
}

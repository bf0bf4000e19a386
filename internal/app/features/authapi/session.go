package authapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/zerlake/thesisai/internal/app/store/audit"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/app/system/authutil"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.uber.org/zap"
)

// Error codes specific to authentication.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountDisabled    = "ACCOUNT_DISABLED"
	CodeEmailTaken         = "EMAIL_TAKEN"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      *models.Profile `json:"user"`
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	var errs inputval.Errors
	errs.Check(req.Email != "", "email", "is required")
	errs.Check(req.Password != "", "password", "is required")
	if errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}

	if h.Login != nil {
		if ok, msg := h.Login.Check(r, req.Email); !ok {
			jsonapi.Error(w, http.StatusTooManyRequests, jsonapi.CodeRateLimited, msg)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Profiles.GetByEmail(ctx, req.Email)
	if errors.Is(err, profilestore.ErrNotFound) {
		h.AuditLog.AuthFailure(ctx, r, req.Email, "user not found")
		jsonapi.Error(w, http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading profile for login", err, "A database error occurred.")
		return
	}

	if !authutil.CheckPassword(req.Password, p.PasswordHash) {
		h.AuditLog.AuthFailure(ctx, r, req.Email, "invalid password")
		jsonapi.Error(w, http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password")
		return
	}
	if p.Status == models.StatusDisabled {
		h.AuditLog.AuthFailure(ctx, r, req.Email, "account disabled")
		jsonapi.Error(w, http.StatusForbidden, CodeAccountDisabled, "this account has been disabled")
		return
	}

	if h.Login != nil {
		h.Login.ResetEmail(ctx, req.Email)
	}
	resp, ok := h.startSession(w, r, p)
	if !ok {
		return
	}
	h.AuditLog.AuthSuccess(ctx, r, audit.ActionAuthLogin, p.ID, p.Email)
	jsonapi.OK(w, resp)
}

// HandleLogout handles POST /api/auth/logout. Signing out without a session
// still succeeds.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.SignOut(w, r); err != nil {
		h.Log.Warn("clear session cookie failed", zap.Error(err))
	}
	if u, ok := auth.CurrentUser(r); ok {
		if uid, ok := authz.UserID(r); ok {
			h.AuditLog.AuthSuccess(r.Context(), r, audit.ActionAuthLogout, uid, u.Email)
		}
	}
	jsonapi.Success(w, http.StatusOK, nil, "signed out")
}

// startSession issues a bearer token and the session cookie for p. On failure
// it writes the 500 and returns false.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, p *models.Profile) (sessionResponse, bool) {
	su := auth.SessionUser{
		ID:    p.ID.Hex(),
		Name:  p.FullName,
		Email: p.Email,
		Role:  p.Role,
		Plan:  p.Plan,
	}
	token, exp, err := h.Sessions.Tokens().Issue(su)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "issue token failed", err, "Could not start a session.")
		return sessionResponse{}, false
	}
	if err := h.Sessions.SignIn(w, r, &su); err != nil {
		h.ErrLog.LogServerError(w, r, "save session failed", err, "Could not start a session.")
		return sessionResponse{}, false
	}
	return sessionResponse{Token: token, ExpiresAt: exp, User: p}, true
}

// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"

	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
)

// ServeProfile handles GET /api/profile.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
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
	jsonapi.OK(w, p)
}

type updateRequest struct {
	FullName string `json:"full_name"`
}

// HandleUpdate handles PATCH /api/profile. Only the display name is editable
// by the account holder.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	var req updateRequest
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
	var errs inputval.Errors
	errs.Length("full_name", req.FullName, 1, 100)
	if errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}

	p, err := h.Profiles.UpdateName(ctx, uid, req.FullName)
	if errors.Is(err, profilestore.ErrNotFound) {
		jsonapi.NotFound(w, "profile")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error updating profile", err, "A database error occurred.")
		return
	}
	jsonapi.Success(w, http.StatusOK, p, "profile updated")
}

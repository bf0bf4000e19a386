package profile

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/zerlake/thesisai/internal/app/store/audit"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
)

type roleRequest struct {
	Role         *string `json:"role"`
	Plan         *string `json:"plan"`
	Status       *string `json:"status"`
	AdvisorSlots *int    `json:"advisor_slots"`
	CriticSlots  *int    `json:"critic_slots"`
}

func (req roleRequest) empty() bool {
	return req.Role == nil && req.Plan == nil && req.Status == nil &&
		req.AdvisorSlots == nil && req.CriticSlots == nil
}

// HandleSetRole handles PATCH /api/admin/users/{id}/role.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	var req roleRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	if req.empty() {
		jsonapi.BadRequest(w, "nothing to update")
		return
	}
	if (req.AdvisorSlots != nil && *req.AdvisorSlots < 0) || (req.CriticSlots != nil && *req.CriticSlots < 0) {
		jsonapi.ValidationFailed(w, map[string]string{"slots": "must not be negative"})
		return
	}
	if caller, _ := authz.UserID(r); caller == id && req.Role != nil && *req.Role != models.RoleAdmin {
		jsonapi.Conflict(w, jsonapi.CodeConflict, "admins cannot remove their own admin role")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	before, after, err := h.Profiles.UpdateRole(ctx, id, profilestore.RoleUpdate{
		Role:         req.Role,
		Plan:         req.Plan,
		Status:       req.Status,
		AdvisorSlots: req.AdvisorSlots,
		CriticSlots:  req.CriticSlots,
	})
	switch {
	case profilestore.IsValidationError(err):
		jsonapi.ValidationFailed(w, map[string]string{"role": err.Error()})
		return
	case errors.Is(err, profilestore.ErrNotFound):
		jsonapi.NotFound(w, "user")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "database error updating role", err, "A database error occurred.")
		return
	}

	h.AuditLog.Financial(ctx, r, audit.ActionUserRoleChanged, id, "profile", id.Hex(), map[string]string{
		"old_role":          before.Role,
		"new_role":          after.Role,
		"old_plan":          before.Plan,
		"new_plan":          after.Plan,
		"old_status":        before.Status,
		"new_status":        after.Status,
		"new_advisor_slots": strconv.Itoa(after.AdvisorSlots),
		"new_critic_slots":  strconv.Itoa(after.CriticSlots),
	})
	jsonapi.Success(w, http.StatusOK, after, "user updated")
}

package sync

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	syncstore "github.com/zerlake/thesisai/internal/app/store/syncchanges"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/limits"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type pushRequest struct {
	Changes []models.SyncChange `json:"changes"`
}

func validateChanges(changes []models.SyncChange) inputval.Errors {
	var errs inputval.Errors
	if n := len(changes); n == 0 || n > syncstore.MaxBatch {
		errs.Add("changes", "must hold between 1 and "+strconv.Itoa(syncstore.MaxBatch)+" changes")
		return errs
	}
	for i := range changes {
		c := &changes[i]
		c.Entity = strings.TrimSpace(c.Entity)
		c.Op = strings.ToLower(strings.TrimSpace(c.Op))
		prefix := "changes." + strconv.Itoa(i) + "."
		if _, err := uuid.Parse(c.ClientID); err != nil {
			errs.Add(prefix+"client_id", "must be a uuid")
		}
		errs.Length(prefix+"entity", c.Entity, 1, 50)
		errs.Length(prefix+"entity_id", c.EntityID, 1, 100)
		errs.Check(c.Op == models.SyncUpsert || c.Op == models.SyncDelete, prefix+"op", "must be upsert or delete")
		errs.Check(!c.ClientTS.IsZero(), prefix+"client_ts", "is required")
	}
	return errs
}

// HandlePush handles POST /api/sync/push. Re-sent changes are counted as
// skipped.
func (h *Handler) HandlePush(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	var req pushRequest
	if !jsonapi.DecodeLimit(w, r, &req, limits.MaxSyncBody) {
		return
	}
	if errs := validateChanges(req.Changes); errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Changes.Push(ctx, uid, req.Changes)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "sync push failed", err, "")
		return
	}
	jsonapi.OK(w, res)
}

type pullResponse struct {
	Changes []models.SyncChange `json:"changes"`
	Cursor  string              `json:"cursor"`
}

// ServePull handles GET /api/sync/pull?since={cursor}&limit=.
func (h *Handler) ServePull(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	var since primitive.ObjectID
	if s := r.URL.Query().Get("since"); s != "" {
		var err error
		if since, err = primitive.ObjectIDFromHex(s); err != nil {
			jsonapi.ValidationFailed(w, map[string]string{"since": "is not a valid cursor"})
			return
		}
	}
	limit := jsonapi.IntQuery(r, "limit", 100, 1, syncstore.MaxBatch)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	changes, cursor, err := h.Changes.Pull(ctx, uid, since, int64(limit))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "sync pull failed", err, "")
		return
	}
	jsonapi.OK(w, pullResponse{Changes: changes, Cursor: cursor})
}

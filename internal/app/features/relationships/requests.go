package relationships

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/store/audit"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	relationshipstore "github.com/zerlake/thesisai/internal/app/store/relationships"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conflict codes.
const (
	CodePendingExists = "REQUEST_PENDING"
	CodeAlreadyLinked = "ALREADY_LINKED"
	CodeNotPending    = "REQUEST_NOT_PENDING"
	CodeNoSlots       = "NO_SLOTS"
)

type createRequest struct {
	MentorID string `json:"mentor_id"`
	Message  string `json:"message"`
}

type requestView struct {
	models.RelationshipRequest
	Student *profilestore.Summary `json:"student,omitempty"`
	Mentor  *profilestore.Summary `json:"mentor,omitempty"`
}

// HandleCreateRequest handles POST /{kind}/requests. Only students ask.
func (h *Handler) HandleCreateRequest(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	if !authz.IsStudent(r) {
		jsonapi.Forbidden(w, "only students can request a "+kind)
		return
	}
	var req createRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	req.Message = strings.TrimSpace(req.Message)

	var errs inputval.Errors
	mentorID, err := primitive.ObjectIDFromHex(req.MentorID)
	errs.Check(err == nil, "mentor_id", "must be a valid id")
	errs.Check(mentorID != uid, "mentor_id", "cannot be yourself")
	errs.Length("message", req.Message, 0, 500)
	if errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	mentor, err := h.Profiles.GetByID(ctx, mentorID)
	if errors.Is(err, profilestore.ErrNotFound) {
		jsonapi.NotFound(w, kind)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading mentor", err, "A database error occurred.")
		return
	}
	if mentor.Role != models.MentorRole(kind) || mentor.Status != models.StatusActive {
		jsonapi.ValidationFailed(w, map[string]string{"mentor_id": "is not an active " + kind})
		return
	}

	created, err := h.Relationships.CreateRequest(ctx, kind, uid, mentorID, req.Message)
	switch {
	case errors.Is(err, relationshipstore.ErrPendingExists):
		jsonapi.Conflict(w, CodePendingExists, "a request to this "+kind+" is already pending")
		return
	case errors.Is(err, relationshipstore.ErrAlreadyLinked):
		jsonapi.Conflict(w, CodeAlreadyLinked, "you are already linked to this "+kind)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "database error creating relationship request", err, "A database error occurred.")
		return
	}

	h.AuditLog.Relationship(ctx, r, audit.ActionRelationshipRequested, kind, mentorID, created.ID.Hex())
	h.notify(ctx, mentorID, "New "+kind+" request", "A student asked you to be their "+kind+".")
	jsonapi.Created(w, created)
}

// ServeRequests handles GET /{kind}/requests: incoming for mentors of kind,
// outgoing otherwise. ?status= filters.
func (h *Handler) ServeRequests(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	status := r.URL.Query().Get("status")
	switch status {
	case "", models.RequestPending, models.RequestAccepted, models.RequestDeclined, models.RequestCancelled:
	default:
		jsonapi.ValidationFailed(w, map[string]string{"status": "is not a request status"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	reqs, err := h.Relationships.ListRequests(ctx, kind, uid, authz.IsMentor(r, kind), status)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing relationship requests", err, "A database error occurred.")
		return
	}

	ids := make([]primitive.ObjectID, 0, len(reqs)*2)
	for _, rq := range reqs {
		ids = append(ids, rq.StudentID, rq.MentorID)
	}
	names, err := h.Profiles.Summaries(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading profile names", err, "A database error occurred.")
		return
	}

	out := make([]requestView, 0, len(reqs))
	for _, rq := range reqs {
		v := requestView{RelationshipRequest: rq}
		if s, ok := names[rq.StudentID]; ok {
			v.Student = &s
		}
		if m, ok := names[rq.MentorID]; ok {
			v.Mentor = &m
		}
		out = append(out, v)
	}
	jsonapi.OK(w, out)
}

// HandleAccept handles POST /{kind}/requests/{id}/accept.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	if !authz.IsMentor(r, kind) {
		jsonapi.Forbidden(w, "only a "+kind+" can accept this request")
		return
	}
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rel, err := h.Relationships.Accept(ctx, kind, id, uid, h.Profiles)
	switch {
	case errors.Is(err, relationshipstore.ErrNotFound):
		jsonapi.NotFound(w, "request")
		return
	case errors.Is(err, relationshipstore.ErrNotPending):
		jsonapi.Conflict(w, CodeNotPending, "this request has already been decided")
		return
	case errors.Is(err, profilestore.ErrNoSlots):
		jsonapi.Conflict(w, CodeNoSlots, "you have no free "+kind+" slots")
		return
	case errors.Is(err, relationshipstore.ErrAlreadyLinked):
		jsonapi.Conflict(w, CodeAlreadyLinked, "this student is already linked to you")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "accept relationship request failed", err, "A database error occurred.")
		return
	}

	h.AuditLog.Relationship(ctx, r, audit.ActionRelationshipAccepted, kind, rel.StudentID, id.Hex())
	h.notify(ctx, rel.StudentID, "Request accepted", "Your "+kind+" request was accepted.")
	jsonapi.Success(w, http.StatusOK, rel, "request accepted")
}

// HandleDecline handles POST /{kind}/requests/{id}/decline (mentor).
func (h *Handler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if !authz.IsMentor(r, kind) {
		jsonapi.Forbidden(w, "only a "+kind+" can decline this request")
		return
	}
	h.decide(w, r, kind, true)
}

// HandleCancel handles POST /{kind}/requests/{id}/cancel (student).
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, chi.URLParam(r, "kind"), false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, kind string, decline bool) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var (
		req *models.RelationshipRequest
		err error
	)
	if decline {
		req, err = h.Relationships.Decline(ctx, kind, id, uid)
	} else {
		req, err = h.Relationships.Cancel(ctx, kind, id, uid)
	}
	switch {
	case errors.Is(err, relationshipstore.ErrNotFound):
		jsonapi.NotFound(w, "request")
		return
	case errors.Is(err, relationshipstore.ErrNotPending):
		jsonapi.Conflict(w, CodeNotPending, "this request has already been decided")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "update relationship request failed", err, "A database error occurred.")
		return
	}

	if decline {
		h.AuditLog.Relationship(ctx, r, audit.ActionRelationshipDeclined, kind, req.StudentID, id.Hex())
		h.notify(ctx, req.StudentID, "Request declined", "Your "+kind+" request was declined.")
	}
	jsonapi.Success(w, http.StatusOK, req, "request "+req.Status)
}

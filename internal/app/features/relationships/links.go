package relationships

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zerlake/thesisai/internal/app/store/audit"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	relationshipstore "github.com/zerlake/thesisai/internal/app/store/relationships"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type linkView struct {
	ID        primitive.ObjectID   `json:"id"`
	Kind      string               `json:"kind"`
	Student   profilestore.Summary `json:"student"`
	Mentor    profilestore.Summary `json:"mentor"`
	CreatedAt time.Time            `json:"created_at"`
}

// ServeLinks handles GET /{kind}: the caller's links, with names.
func (h *Handler) ServeLinks(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	links, err := h.Relationships.ListFor(ctx, kind, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing relationships", err, "A database error occurred.")
		return
	}
	ids := make([]primitive.ObjectID, 0, len(links)*2)
	for _, l := range links {
		ids = append(ids, l.StudentID, l.MentorID)
	}
	names, err := h.Profiles.Summaries(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading profile names", err, "A database error occurred.")
		return
	}

	out := make([]linkView, 0, len(links))
	for _, l := range links {
		student := names[l.StudentID]
		student.ID = l.StudentID
		mentor := names[l.MentorID]
		mentor.ID = l.MentorID
		out = append(out, linkView{ID: l.ID, Kind: kind, Student: student, Mentor: mentor, CreatedAt: l.CreatedAt})
	}
	jsonapi.OK(w, out)
}

// HandleRemove handles DELETE /{kind}/{otherId}. Students pass the mentor's
// id, mentors the student's. Admins pass the mentor's id and
// ?student_id=. The mentor gets the slot back.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	other, ok := jsonapi.ObjectIDParam(w, r, "otherId")
	if !ok {
		return
	}

	var studentID, mentorID primitive.ObjectID
	switch {
	case authz.IsStudent(r):
		studentID, mentorID = uid, other
	case authz.IsMentor(r, kind):
		studentID, mentorID = other, uid
	case authz.IsAdmin(r):
		sid, err := primitive.ObjectIDFromHex(r.URL.Query().Get("student_id"))
		if err != nil {
			jsonapi.ValidationFailed(w, map[string]string{"student_id": "is required for admin removal"})
			return
		}
		studentID, mentorID = sid, other
	default:
		jsonapi.Forbidden(w, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Relationships.Remove(ctx, kind, studentID, mentorID)
	if errors.Is(err, relationshipstore.ErrLinkNotFound) {
		jsonapi.NotFound(w, "relationship")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error removing relationship", err, "A database error occurred.")
		return
	}
	if err := h.Profiles.ReturnSlot(ctx, mentorID, kind); err != nil {
		h.Log.Error("return mentor slot failed",
			zap.String("mentor_id", mentorID.Hex()), zap.String("kind", kind), zap.Error(err))
	}

	h.AuditLog.Relationship(ctx, r, audit.ActionRelationshipRemoved, kind, other, studentID.Hex()+":"+mentorID.Hex())
	if uid != studentID {
		h.notify(ctx, studentID, "Relationship ended", "Your "+kind+" relationship was removed.")
	}
	if uid != mentorID {
		h.notify(ctx, mentorID, "Relationship ended", "A "+kind+" relationship was removed.")
	}
	jsonapi.Success(w, http.StatusOK, nil, "relationship removed")
}

package study

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/htmlsanitize"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
)

const maxGuideSections = 50

type guideRequest struct {
	Title      string                     `json:"title"`
	Topic      string                     `json:"topic"`
	Sections   []models.StudyGuideSection `json:"sections"`
	Generate   bool                       `json:"generate"`
	SourceText string                     `json:"source_text"`
}

func (req *guideRequest) validate() inputval.Errors {
	req.Title = htmlsanitize.PlainText(req.Title)
	req.Topic = strings.TrimSpace(req.Topic)

	var errs inputval.Errors
	errs.Length("title", req.Title, 1, 255)
	if req.Generate {
		errs.Length("topic", req.Topic, 1, 300)
		errs.Length("source_text", req.SourceText, 0, 20000)
		return errs
	}
	errs.Length("topic", req.Topic, 0, 300)
	if n := len(req.Sections); n == 0 || n > maxGuideSections {
		errs.Add("sections", "must hold between 1 and "+strconv.Itoa(maxGuideSections)+" sections")
		return errs
	}
	for i := range req.Sections {
		s := &req.Sections[i]
		s.Heading = htmlsanitize.PlainText(s.Heading)
		s.Content = htmlsanitize.Sanitize(strings.TrimSpace(s.Content))
		prefix := "sections." + strconv.Itoa(i) + "."
		errs.Length(prefix+"heading", s.Heading, 1, 255)
		errs.Length(prefix+"content", s.Content, 1, 20000)
	}
	return errs
}

// HandleCreateGuide handles POST /api/study-guides.
func (h *Handler) HandleCreateGuide(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	var req guideRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	if errs := req.validate(); errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}
	if req.Generate && !h.allowGenerate(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	sections := req.Sections
	if req.Generate {
		gen, err := h.Material.StudyGuide(ctx, req.Topic, req.SourceText)
		if err != nil {
			h.ErrLog.LogAIError(w, r, err)
			return
		}
		for i := range gen {
			gen[i].Content = htmlsanitize.Sanitize(gen[i].Content)
		}
		sections = gen
	}

	g, err := h.Guides.Create(ctx, uid, req.Title, req.Topic, sections)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create study guide failed", err, "")
		return
	}
	jsonapi.Created(w, g)
}

// ServeGuides handles GET /api/study-guides.
func (h *Handler) ServeGuides(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	guides, err := h.Guides.List(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list study guides failed", err, "")
		return
	}
	jsonapi.OK(w, guides)
}

// ServeGuide handles GET /api/study-guides/{id}.
func (h *Handler) ServeGuide(w http.ResponseWriter, r *http.Request) {
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

	g, err := h.Guides.Get(ctx, uid, id)
	if err != nil {
		h.storeErr(w, r, "study guide", err)
		return
	}
	jsonapi.OK(w, g)
}

// HandleDeleteGuide handles DELETE /api/study-guides/{id}.
func (h *Handler) HandleDeleteGuide(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Guides.Delete(ctx, uid, id); err != nil {
		h.storeErr(w, r, "study guide", err)
		return
	}
	jsonapi.Success(w, http.StatusOK, nil, "study guide deleted")
}

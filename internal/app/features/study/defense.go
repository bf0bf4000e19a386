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

const (
	maxQuestions          = 100
	maxGeneratedQuestions = 30
	defaultQuestionCount  = 10
)

type setRequest struct {
	Title       string                   `json:"title"`
	ThesisTitle string                   `json:"thesis_title"`
	Abstract    string                   `json:"abstract"`
	Questions   []models.DefenseQuestion `json:"questions"`
	Generate    bool                     `json:"generate"`
	Count       int                      `json:"count"`
}

func (req *setRequest) validate() inputval.Errors {
	req.Title = htmlsanitize.PlainText(req.Title)
	req.ThesisTitle = htmlsanitize.PlainText(req.ThesisTitle)
	req.Abstract = strings.TrimSpace(req.Abstract)

	var errs inputval.Errors
	errs.Length("title", req.Title, 1, 255)
	if req.Generate {
		errs.Length("thesis_title", req.ThesisTitle, 1, 300)
		errs.Length("abstract", req.Abstract, 0, 10000)
		if req.Count == 0 {
			req.Count = defaultQuestionCount
		}
		errs.Check(req.Count >= 1 && req.Count <= maxGeneratedQuestions, "count", "must be between 1 and "+strconv.Itoa(maxGeneratedQuestions))
		return errs
	}
	errs.Length("thesis_title", req.ThesisTitle, 0, 300)
	if n := len(req.Questions); n == 0 || n > maxQuestions {
		errs.Add("questions", "must hold between 1 and "+strconv.Itoa(maxQuestions)+" questions")
		return errs
	}
	for i := range req.Questions {
		q := &req.Questions[i]
		cleanQuestion(q)
		prefix := "questions." + strconv.Itoa(i) + "."
		errs.Length(prefix+"question", q.Question, 1, 2000)
		errs.Length(prefix+"category", q.Category, 0, 100)
		errs.Length(prefix+"suggested_answer", q.SuggestedAnswer, 0, 5000)
	}
	return errs
}

func cleanQuestion(q *models.DefenseQuestion) {
	q.Question = htmlsanitize.PlainText(q.Question)
	q.Category = strings.ToLower(htmlsanitize.PlainText(q.Category))
	q.SuggestedAnswer = htmlsanitize.PlainText(q.SuggestedAnswer)
}

// HandleCreateSet handles POST /api/defense/sets.
func (h *Handler) HandleCreateSet(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	var req setRequest
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

	questions := req.Questions
	if req.Generate {
		gen, err := h.Material.DefenseQuestions(ctx, req.ThesisTitle, req.Abstract, strconv.Itoa(req.Count))
		if err != nil {
			h.ErrLog.LogAIError(w, r, err)
			return
		}
		if len(gen) > req.Count {
			gen = gen[:req.Count]
		}
		for i := range gen {
			cleanQuestion(&gen[i])
		}
		questions = gen
	}

	s, err := h.Defense.Create(ctx, uid, req.Title, req.ThesisTitle, questions)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create defense set failed", err, "")
		return
	}
	jsonapi.Created(w, s)
}

// ServeSets handles GET /api/defense/sets.
func (h *Handler) ServeSets(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sets, err := h.Defense.List(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list defense sets failed", err, "")
		return
	}
	jsonapi.OK(w, sets)
}

// ServeSet handles GET /api/defense/sets/{id}.
func (h *Handler) ServeSet(w http.ResponseWriter, r *http.Request) {
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

	s, err := h.Defense.Get(ctx, uid, id)
	if err != nil {
		h.storeErr(w, r, "defense set", err)
		return
	}
	jsonapi.OK(w, s)
}

// HandleDeleteSet handles DELETE /api/defense/sets/{id}.
func (h *Handler) HandleDeleteSet(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Defense.Delete(ctx, uid, id); err != nil {
		h.storeErr(w, r, "defense set", err)
		return
	}
	jsonapi.Success(w, http.StatusOK, nil, "defense set deleted")
}

package study

import (
	"context"
	"net/http"
	"strings"

	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/htmlsanitize"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
)

// Question types a panel asks about a research instrument.
const (
	QuestionContent     = "content"
	QuestionConstruct   = "construct"
	QuestionReliability = "reliability"
	QuestionValidity    = "validity"
	QuestionMethodology = "methodology"
)

// commonQuestions holds the stock question per type and instrument type.
// "default" covers instrument types without their own wording.
var commonQuestions = map[string]map[string]string{
	QuestionContent: {
		"survey":    "How did you ensure content validity of your survey instrument?",
		"interview": "How did you validate the relevance of your interview questions?",
		"default":   "How did you ensure content validity of your instrument?",
	},
	QuestionConstruct: {
		"survey":    "What measures did you take to establish construct validity?",
		"interview": "How did you ensure your questions measure the intended constructs?",
		"default":   "How did you establish construct validity?",
	},
	QuestionReliability: {
		"survey":    "What is the Cronbach alpha coefficient of your instrument?",
		"interview": "How did you ensure dependability and consistency in your data collection?",
		"default":   "How did you ensure reliability of your instrument?",
	},
	QuestionValidity: {
		"survey":    "Can you explain the different validity types you tested?",
		"interview": "How did you address credibility, dependability, and transferability?",
		"default":   "What is your overall validity approach?",
	},
	QuestionMethodology: {
		"survey":    "Why did you choose a survey methodology?",
		"interview": "What are the advantages of using interviews for your research?",
		"default":   "How does your instrument fit your research design?",
	},
}

// CommonQuestion returns the stock question for a question type and
// instrument type.
func CommonQuestion(questionType, instrumentType string) string {
	byType := commonQuestions[questionType]
	if q, ok := byType[instrumentType]; ok {
		return q
	}
	if q, ok := byType["default"]; ok {
		return q
	}
	return "Tell us about your instrument design and validation process."
}

type responseRequest struct {
	InstrumentName     string `json:"instrument_name"`
	InstrumentType     string `json:"instrument_type"`
	QuestionType       string `json:"question_type"`
	QuestionText       string `json:"question_text"`
	CustomInstructions string `json:"custom_instructions"`
}

func (req *responseRequest) validate() inputval.Errors {
	req.InstrumentName = htmlsanitize.PlainText(req.InstrumentName)
	req.InstrumentType = strings.ToLower(htmlsanitize.PlainText(req.InstrumentType))
	req.QuestionType = strings.ToLower(strings.TrimSpace(req.QuestionType))
	req.QuestionText = htmlsanitize.PlainText(req.QuestionText)
	req.CustomInstructions = htmlsanitize.PlainText(req.CustomInstructions)

	var errs inputval.Errors
	errs.Length("instrument_name", req.InstrumentName, 1, 255)
	errs.Length("instrument_type", req.InstrumentType, 1, 50)
	_, known := commonQuestions[req.QuestionType]
	errs.Check(known, "question_type", "must be one of content, construct, reliability, validity, methodology")
	errs.Length("question_text", req.QuestionText, 0, 2000)
	errs.Length("custom_instructions", req.CustomInstructions, 0, 2000)
	return errs
}

// HandleCreateResponse handles POST /api/instruments/defense-responses. The
// answer is always generated, so the AI limits are charged.
func (h *Handler) HandleCreateResponse(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	var req responseRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	if errs := req.validate(); errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}
	if !h.allowGenerate(w, r) {
		return
	}
	question := req.QuestionText
	if question == "" {
		question = CommonQuestion(req.QuestionType, req.InstrumentType)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	answer, err := h.Material.DefenseResponse(ctx, map[string]string{
		"question":        question,
		"question_type":   req.QuestionType,
		"instrument_name": req.InstrumentName,
		"instrument_type": req.InstrumentType,
		"instructions":    req.CustomInstructions,
	})
	if err != nil {
		h.ErrLog.LogAIError(w, r, err)
		return
	}

	resp, err := h.Defense.CreateResponse(ctx, models.DefenseResponse{
		OwnerID:        uid,
		InstrumentName: req.InstrumentName,
		InstrumentType: req.InstrumentType,
		QuestionType:   req.QuestionType,
		QuestionText:   question,
		Response:       htmlsanitize.PlainText(answer.Response),
		KeyPoints:      answer.KeyPoints,
		Citations:      answer.Citations,
		Customized:     req.CustomInstructions != "",
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "save defense response failed", err, "")
		return
	}
	jsonapi.Created(w, resp)
}

// ServeResponses handles GET /api/instruments/defense-responses. The
// instrument query narrows the list to one instrument.
func (h *Handler) ServeResponses(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Defense.ListResponses(ctx, uid, htmlsanitize.PlainText(r.URL.Query().Get("instrument")))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list defense responses failed", err, "")
		return
	}
	jsonapi.OK(w, list)
}

// HandleDeleteResponse handles DELETE /api/instruments/defense-responses/{id}.
func (h *Handler) HandleDeleteResponse(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Defense.DeleteResponse(ctx, uid, id); err != nil {
		h.storeErr(w, r, "defense response", err)
		return
	}
	jsonapi.Success(w, http.StatusOK, nil, "defense response deleted")
}

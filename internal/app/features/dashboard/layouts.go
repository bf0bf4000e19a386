package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	layoutstore "github.com/zerlake/thesisai/internal/app/store/dashboards"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/htmlsanitize"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"github.com/zerlake/thesisai/internal/domain/models"
)

const maxWidgets = 50

type layoutRequest struct {
	Name      string                   `json:"name"`
	Widgets   []models.DashboardWidget `json:"widgets"`
	IsDefault bool                     `json:"is_default"`
}

func (req *layoutRequest) validate() inputval.Errors {
	req.Name = htmlsanitize.PlainText(req.Name)
	var errs inputval.Errors
	errs.Length("name", req.Name, 1, 255)
	if len(req.Widgets) > maxWidgets {
		errs.Add("widgets", "must hold at most "+strconv.Itoa(maxWidgets)+" widgets")
		return errs
	}
	for i := range req.Widgets {
		wd := &req.Widgets[i]
		wd.ID = strings.TrimSpace(wd.ID)
		wd.Type = strings.TrimSpace(wd.Type)
		prefix := "widgets." + strconv.Itoa(i) + "."
		errs.Length(prefix+"id", wd.ID, 1, 64)
		errs.Length(prefix+"type", wd.Type, 1, 64)
		errs.Check(wd.X >= 0 && wd.Y >= 0, prefix+"x", "position must not be negative")
		errs.Check(wd.W >= 1 && wd.H >= 1, prefix+"w", "size must be at least 1")
	}
	return errs
}

func (h *Handler) layoutErr(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, layoutstore.ErrNotFound) {
		jsonapi.NotFound(w, "layout")
		return
	}
	h.ErrLog.LogServerError(w, r, msg, err, "")
}

// ServeLayouts handles GET /api/dashboard/layouts.
func (h *Handler) ServeLayouts(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Layouts.List(ctx, uid)
	if err != nil {
		h.layoutErr(w, r, "list layouts failed", err)
		return
	}
	jsonapi.OK(w, list)
}

// HandleCreateLayout handles POST /api/dashboard/layouts.
func (h *Handler) HandleCreateLayout(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	var req layoutRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	if errs := req.validate(); errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, err := h.Layouts.Create(ctx, uid, req.Name, req.Widgets, req.IsDefault)
	if err != nil {
		h.layoutErr(w, r, "create layout failed", err)
		return
	}
	jsonapi.Created(w, l)
}

// HandleUpdateLayout handles PUT /api/dashboard/layouts/{id}.
func (h *Handler) HandleUpdateLayout(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	id, ok := jsonapi.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	var req layoutRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	if errs := req.validate(); errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, err := h.Layouts.Update(ctx, uid, id, req.Name, req.Widgets, req.IsDefault)
	if err != nil {
		h.layoutErr(w, r, "update layout failed", err)
		return
	}
	jsonapi.OK(w, l)
}

// HandleDeleteLayout handles DELETE /api/dashboard/layouts/{id}.
func (h *Handler) HandleDeleteLayout(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Layouts.Delete(ctx, uid, id); err != nil {
		h.layoutErr(w, r, "delete layout failed", err)
		return
	}
	jsonapi.Success(w, http.StatusOK, nil, "layout deleted")
}

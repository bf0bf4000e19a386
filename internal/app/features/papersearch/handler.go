// internal/app/features/papersearch/handler.go
package papersearch

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/papers"
	"github.com/zerlake/thesisai/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves federated paper search.
type Handler struct {
	Searcher *papers.Searcher
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(searcher *papers.Searcher, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Searcher: searcher, ErrLog: errLog, Log: logger}
}

// Routes is mounted at /api/paper-search. limit, when set, wraps the search.
func Routes(h *Handler, limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	if limit != nil {
		r.Use(limit)
	}
	r.Get("/", h.ServeSearch)
	return r
}

type searchResponse struct {
	Query   string                `json:"query"`
	Total   int                   `json:"total"`
	Papers  []papers.Paper        `json:"papers"`
	Sources []papers.SourceStatus `json:"sources"`
}

func yearParam(errs *inputval.Errors, raw, field string) int {
	if raw == "" {
		return 0
	}
	y, err := strconv.Atoi(raw)
	if err != nil || y < 1000 || y > time.Now().Year()+1 {
		errs.Add(field, "must be a four-digit year")
		return 0
	}
	return y
}

// parse reads and validates the query string.
func (h *Handler) parse(r *http.Request) (papers.Query, []string, inputval.Errors) {
	v := r.URL.Query()
	var errs inputval.Errors

	q := papers.Query{Text: strings.TrimSpace(v.Get("q"))}
	errs.Length("q", q.Text, 1, 300)

	q.Limit = 20
	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			errs.Add("limit", "must be between 1 and 100")
		} else {
			q.Limit = n
		}
	}
	q.YearFrom = yearParam(&errs, v.Get("year_from"), "year_from")
	q.YearTo = yearParam(&errs, v.Get("year_to"), "year_to")
	if q.YearFrom > 0 && q.YearTo > 0 && q.YearFrom > q.YearTo {
		errs.Add("year_to", "must not be before year_from")
	}
	q.OpenAccessOnly = jsonapi.BoolQuery(r, "open_access")

	var sources []string
	if raw := strings.TrimSpace(v.Get("sources")); raw != "" {
		known := h.Searcher.Sources()
		for _, s := range strings.Split(raw, ",") {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			if !contains(known, s) {
				errs.Add("sources", "must be a subset of "+strings.Join(known, ","))
				break
			}
			sources = append(sources, s)
		}
	}
	return q, sources, errs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ServeSearch handles GET /api/paper-search.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	q, sources, errs := h.parse(r)
	if errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Searcher.Search(ctx, q, sources)
	if errors.Is(err, papers.ErrAllFailed) {
		h.ErrLog.LogUpstreamError(w, r, "paper search failed on every provider", err, "No paper source could be reached. Try again shortly.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "paper search failed", err, "")
		return
	}
	if res.Papers == nil {
		res.Papers = []papers.Paper{}
	}
	jsonapi.OK(w, searchResponse{Query: q.Text, Total: len(res.Papers), Papers: res.Papers, Sources: res.Sources})
}

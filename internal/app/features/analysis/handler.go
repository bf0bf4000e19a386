// internal/app/features/analysis/handler.go
package analysis

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	uierrors "github.com/zerlake/thesisai/internal/app/features/errors"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/app/system/authz"
	"github.com/zerlake/thesisai/internal/app/system/inputval"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"github.com/zerlake/thesisai/internal/app/system/limits"
	"go.uber.org/zap"
)

const (
	TestDescriptive  = "descriptive"
	TestIndependentT = "independent-t-test"
	TestPearson      = "pearson-correlation"
	TestChiSquare    = "chi-square"

	maxRows = 10000
	alpha   = 0.05
)

// Handler runs statistical tests over rows the caller uploads. Nothing is
// stored.
type Handler struct {
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{ErrLog: errLog, Log: logger}
}

// Routes is mounted at /api/analysis.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Post("/statistics", h.HandleRun)
	return r
}

type runRequest struct {
	Data     []map[string]any `json:"data"`
	IV       string           `json:"iv"`
	DV       string           `json:"dv"`
	TestType string           `json:"test_type"`
}

func (req *runRequest) validate() inputval.Errors {
	req.IV = strings.TrimSpace(req.IV)
	req.DV = strings.TrimSpace(req.DV)
	req.TestType = strings.ToLower(strings.TrimSpace(req.TestType))

	var errs inputval.Errors
	if n := len(req.Data); n == 0 || n > maxRows {
		errs.Add("data", "must hold between 1 and "+strconv.Itoa(maxRows)+" rows")
	}
	errs.Length("dv", req.DV, 1, 100)
	switch req.TestType {
	case TestDescriptive:
		errs.Length("iv", req.IV, 0, 100)
	case TestIndependentT, TestPearson, TestChiSquare:
		errs.Length("iv", req.IV, 1, 100)
	default:
		errs.Add("test_type", "must be one of "+strings.Join([]string{TestDescriptive, TestIndependentT, TestPearson, TestChiSquare}, ", "))
	}
	errs.Check(req.IV == "" || req.IV != req.DV, "iv", "must differ from dv")
	return errs
}

// Result is the outcome of one test. PValue is absent for descriptive runs.
type Result struct {
	Test           string         `json:"test"`
	Statistic      string         `json:"statistic"`
	PValue         *float64       `json:"p_value,omitempty"`
	Significant    bool           `json:"significant"`
	Details        map[string]any `json:"details"`
	Interpretation string         `json:"interpretation"`
}

// HandleRun handles POST /api/analysis/statistics.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		jsonapi.Unauthorized(w)
		return
	}
	var req runRequest
	if !jsonapi.DecodeLimit(w, r, &req, limits.MaxDocumentBody) {
		return
	}
	if errs := req.validate(); errs.Any() {
		jsonapi.ValidationFailed(w, errs)
		return
	}

	res, field, err := run(req)
	if err != nil {
		jsonapi.ValidationFailed(w, map[string]string{field: strings.TrimPrefix(err.Error(), "statistics: ")})
		return
	}
	h.Log.Debug("statistical test run",
		zap.String("user", uid.Hex()),
		zap.String("test", req.TestType),
		zap.Int("rows", len(req.Data)))
	jsonapi.OK(w, res)
}

func run(req runRequest) (Result, string, error) {
	switch req.TestType {
	case TestIndependentT:
		return independentT(req.Data, req.IV, req.DV)
	case TestPearson:
		return pearson(req.Data, req.IV, req.DV)
	case TestChiSquare:
		return chiSquare(req.Data, req.IV, req.DV)
	default:
		return descriptive(req.Data, req.IV, req.DV)
	}
}

func pValue(p float64) *float64 { return &p }

func fixed(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func significance(p float64, yes, no string) string {
	if p < alpha {
		return yes
	}
	return no
}

// number reads a numeric cell. Numeric strings count; anything else is
// skipped by the caller.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

// category reads a categorical cell. Missing cells have no category.
func category(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return fmt.Sprint(x), true
	}
}

// internal/app/features/errors/errors.go
package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/zerlake/thesisai/internal/app/system/ai"
	"github.com/zerlake/thesisai/internal/app/system/auth"
	"github.com/zerlake/thesisai/internal/app/system/jsonapi"
	"go.uber.org/zap"
)

// ErrorLogger logs server-side failures with request context and writes the
// matching error envelope. Internal error text never reaches the client.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{Log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	fs := []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		fs = append(fs, zap.String("request_id", id))
	}
	if u, ok := auth.CurrentUser(r); ok {
		fs = append(fs, zap.String("user_id", u.ID))
	}
	return fs
}

// LogServerError logs msg and err and writes a 500. userMsg is shown to the
// client; blank means a generic message.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.Log.Error(msg, e.fields(r, err)...)
	if userMsg == "" {
		userMsg = "An internal error occurred."
	}
	jsonapi.Error(w, http.StatusInternalServerError, jsonapi.CodeInternal, userMsg)
}

// LogUpstreamError logs a failed call to an external provider and writes a 502.
func (e *ErrorLogger) LogUpstreamError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.Log.Warn(msg, e.fields(r, err)...)
	if userMsg == "" {
		userMsg = "An upstream service failed."
	}
	jsonapi.Error(w, http.StatusBadGateway, jsonapi.CodeUpstream, userMsg)
}

// Unavailable writes a 503 with code for a feature that is switched off.
func (e *ErrorLogger) Unavailable(w http.ResponseWriter, code, userMsg string) {
	jsonapi.Error(w, http.StatusServiceUnavailable, code, userMsg)
}

// NotFound answers unknown routes with the JSON envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	jsonapi.Error(w, http.StatusNotFound, jsonapi.CodeNotFound, "route not found")
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	jsonapi.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// CodeAIUnavailable is returned when no model is configured.
const CodeAIUnavailable = "AI_UNAVAILABLE"

// LogAIError maps a failed generation to its response: 503 when no model is
// configured, 400 for bad tool input, 502 for everything the model got wrong.
func (e *ErrorLogger) LogAIError(w http.ResponseWriter, r *http.Request, err error) {
	var inErr *ai.InputError
	switch {
	case stderrors.Is(err, ai.ErrUnavailable):
		e.Unavailable(w, CodeAIUnavailable, "AI generation is not configured.")
	case stderrors.As(err, &inErr):
		jsonapi.ValidationFailed(w, inErr.Fields())
	case stderrors.Is(err, ai.ErrBadOutput), stderrors.Is(err, ai.ErrEmptyOutput):
		e.LogUpstreamError(w, r, "unusable model output", err, "The AI model returned an unusable answer. Try again.")
	default:
		e.LogUpstreamError(w, r, "generation failed", err, "The AI model could not be reached.")
	}
}

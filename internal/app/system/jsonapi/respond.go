// Package jsonapi writes the JSON envelope every endpoint answers with and
// decodes request bodies.
//
//	success: {"success": true, "data": ..., "message": "..."}
//	failure: {"success": false, "error": {"code": "...", "message": "...", "details": ...}}
package jsonapi

import (
	"encoding/json"
	"net/http"
)

// Error codes shared across features.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMIT_EXCEEDED"
	CodeInternal     = "INTERNAL_ERROR"
	CodeUpstream     = "UPSTREAM_ERROR"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
)

// ErrorBody is the "error" member of a failure envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the top-level response object.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, data any) {
	write(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// Success writes a success envelope with an explicit status and message.
func Success(w http.ResponseWriter, status int, data any, message string) {
	write(w, status, Envelope{Success: true, Data: data, Message: message})
}

// Error writes a failure envelope.
func Error(w http.ResponseWriter, status int, code, message string) {
	write(w, status, Envelope{Error: &ErrorBody{Code: code, Message: message}})
}

// ErrorDetails writes a failure envelope carrying extra detail, such as
// per-field validation messages or rate-limit metadata.
func ErrorDetails(w http.ResponseWriter, status int, code, message string, details any) {
	write(w, status, Envelope{Error: &ErrorBody{Code: code, Message: message, Details: details}})
}

// ValidationFailed writes a 400 with per-field messages.
func ValidationFailed(w http.ResponseWriter, fields map[string]string) {
	ErrorDetails(w, http.StatusBadRequest, CodeValidation, "invalid input", fields)
}

// BadRequest writes a 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, CodeBadRequest, message)
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
}

// Forbidden writes a 403.
func Forbidden(w http.ResponseWriter, message string) {
	if message == "" {
		message = "you do not have access to this resource"
	}
	Error(w, http.StatusForbidden, CodeForbidden, message)
}

// NotFound writes a 404 naming what was missing.
func NotFound(w http.ResponseWriter, what string) {
	Error(w, http.StatusNotFound, CodeNotFound, what+" not found")
}

// Conflict writes a 409 with a specific code.
func Conflict(w http.ResponseWriter, code, message string) {
	Error(w, http.StatusConflict, code, message)
}

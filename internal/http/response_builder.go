// Package http provides HTTP server and handler implementations.
//
// This file implements the JSON response builder and the single mapping
// from service errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"household/internal/auth"
	"household/internal/core"
	applog "household/internal/log"
	"household/internal/storage"
)

// Error codes returned in the "error" member of every error body.
const (
	CodeValidation   = "validation_error"
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal_error"
	CodeUnavailable  = "unavailable"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. 204 responses never carry a body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent || b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

// requestError marks a malformed request: bad JSON, unknown fields or an
// unparsable query parameter.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

// writeError maps err onto a status code. Internal failures are logged and
// reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *core.ValidationError
		rerr *requestError
	)
	switch {
	case errors.As(err, &rerr):
		ErrorResponse(http.StatusBadRequest, CodeBadRequest, rerr.msg).Write(w)
	case errors.As(err, &verr):
		ErrorResponse(http.StatusBadRequest, CodeValidation, verr.Error()).Write(w)
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrPasswordTooLong):
		ErrorResponse(http.StatusBadRequest, CodeValidation, err.Error()).Write(w)
	case errors.Is(err, storage.ErrNotFound):
		ErrorResponse(http.StatusNotFound, CodeNotFound, "resource not found").Write(w)
	case errors.Is(err, auth.ErrInvalidCredentials):
		ErrorResponse(http.StatusUnauthorized, CodeUnauthorized, "invalid credentials").Write(w)
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		ErrorResponse(http.StatusUnauthorized, CodeUnauthorized, err.Error()).Write(w)
	case errors.Is(err, auth.ErrEmailExists):
		ErrorResponse(http.StatusConflict, CodeConflict, "could not complete registration").Write(w)
	default:
		fields := applog.NewFields().
			WithError(err).
			WithErrorType(applog.ErrorTypeInternal).
			WithOperation(r.Method + " " + r.URL.Path)
		if p, ok := auth.PrincipalFrom(r.Context()); ok {
			fields = fields.WithUser(p.UserID)
		}
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
		ErrorResponse(http.StatusInternalServerError, CodeInternal, "internal server error").Write(w)
	}
}

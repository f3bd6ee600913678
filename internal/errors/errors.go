// Package errors defines the JSON error envelope returned by the HTTP API
// and the helpers that write it.
//
// Every non-2xx response body has the shape
//
//	{"error": {"code": "...", "message": "...", "request_id": "...", "details": {...}}}
//
// Codes are stable identifiers clients may switch on; messages are for
// humans.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Stable error codes.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeAlreadyRunning     = "ALREADY_RUNNING"
	CodeInvalidResult      = "INVALID_RESULT"
	CodeRateLimited        = "RATE_LIMITED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorBody is the inner object of the envelope.
type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HTTPErrorResponse is the error envelope.
type HTTPErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// HTTPError is an error that knows how it should be rendered.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
	Err     error
}

// New creates an HTTPError.
func New(status int, code, message string) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message}
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy carrying details.
func (e *HTTPError) WithDetails(details map[string]any) *HTTPError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause returns a copy wrapping err.
func (e *HTTPError) WithCause(err error) *HTTPError {
	cp := *e
	cp.Err = err
	return &cp
}

func NotFound(message string) *HTTPError {
	return New(http.StatusNotFound, CodeNotFound, message)
}

func Conflict(code, message string) *HTTPError {
	return New(http.StatusConflict, code, message)
}

func Internal(message string) *HTTPError {
	return New(http.StatusInternalServerError, CodeInternal, message)
}

type requestIDKey struct{}

// ContextWithRequestID stores the request id used in error envelopes.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WriteError writes an envelope with the given status.
func WriteError(w http.ResponseWriter, r *http.Request, status int, body ErrorBody) {
	if body.RequestID == "" && r != nil {
		body.RequestID = RequestIDFromContext(r.Context())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Error: body})
}

// RespondWithError renders err. An *HTTPError anywhere in the chain is
// rendered as is; anything else becomes a generic 500 so internal details do
// not leak.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = Internal("internal server error")
	}
	WriteError(w, r, httpErr.Status, ErrorBody{
		Code:    httpErr.Code,
		Message: httpErr.Message,
		Details: httpErr.Details,
	})
}

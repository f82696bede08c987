package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"net/http"

	"github.com/dmitrymomot/trainkit/internal/auth"
	"github.com/dmitrymomot/trainkit/internal/store"
	"github.com/dmitrymomot/trainkit/pkg/guard"
	"github.com/dmitrymomot/trainkit/pkg/logger"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Reason  string              `json:"reason,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

// Response renders itself. Handlers return one instead of writing directly.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

type jsonResponse struct {
	status int
	body   Envelope
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSON answers 200 with data; options adjust status and meta.
func JSON(data any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: Envelope{Data: data}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type JSONOption func(*jsonResponse)

func WithStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

func WithMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) {
		if r.body.Meta == nil {
			r.body.Meta = make(map[string]any, len(meta))
		}
		maps.Copy(r.body.Meta, meta)
	}
}

type noContent struct{}

func (noContent) Render(w http.ResponseWriter, _ *http.Request) error {
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// NoContent answers 204.
func NoContent() Response { return noContent{} }

// HTTPError is an error with a fixed status and machine-readable code.
type HTTPError struct {
	Status  int
	Code    string
	Message string
}

func (e HTTPError) Error() string { return e.Message }

var (
	errNotFound  = HTTPError{http.StatusNotFound, "not_found", "Resource not found"}
	errThrottled = HTTPError{http.StatusTooManyRequests, "too_many_requests", "Too many attempts, try again later"}
)

// ValidationError maps field names to messages.
type ValidationError map[string][]string

func (v ValidationError) Error() string { return "validation failed" }

func (v ValidationError) add(field, msg string) {
	v[field] = append(v[field], msg)
}

func (v ValidationError) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

type errorResponse struct {
	err error
	log *slog.Logger
}

// Error converts err into the envelope with the matching status. Unknown
// errors are logged and answered as 500 without detail.
func Error(err error, log *slog.Logger) Response {
	return errorResponse{err: err, log: log}
}

func (e errorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	status, detail := classify(e.err)
	if status >= http.StatusInternalServerError && e.log != nil {
		e.log.ErrorContext(r.Context(), "request failed", logger.Error(e.err))
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="trainkit"`)
	}
	return jsonResponse{status: status, body: Envelope{Error: detail}}.Render(w, r)
}

func classify(err error) (int, *ErrorDetail) {
	var (
		httpErr HTTPError
		valErr  ValidationError
		rej     guard.Rejected
	)
	switch {
	case errors.As(err, &valErr):
		return http.StatusUnprocessableEntity, &ErrorDetail{Code: "validation_error", Message: "Validation failed", Details: valErr}
	case errors.As(err, &httpErr):
		return httpErr.Status, &ErrorDetail{Code: httpErr.Code, Message: httpErr.Message}
	case errors.As(err, &rej):
		return rej.Status, &ErrorDetail{Code: rej.Code(), Message: rej.Message, Reason: string(rej.Reason)}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, &ErrorDetail{Code: "unauthorized", Message: err.Error(), Reason: string(guard.ReasonInvalidCredential)}
	case errors.Is(err, auth.ErrTenantRequired):
		return http.StatusNotFound, &ErrorDetail{Code: "tenant_not_found", Message: "Sign in from your training provider's address"}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, &ErrorDetail{Code: "not_found", Message: "Resource not found"}
	case errors.Is(err, store.ErrSlugTaken), errors.Is(err, store.ErrDomainTaken), errors.Is(err, store.ErrEmailTaken):
		return http.StatusConflict, &ErrorDetail{Code: "conflict", Message: err.Error()}
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusUnprocessableEntity, &ErrorDetail{Code: "validation_error", Message: err.Error()}
	default:
		return http.StatusInternalServerError, &ErrorDetail{Code: "internal_error", Message: "Internal server error"}
	}
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/trainkit/pkg/logger"
)

const maxBodyBytes = 1 << 20

// HandlerFunc handles a request whose JSON body has been decoded into R.
type HandlerFunc[R any] func(r *http.Request, req R) Response

// Empty is the request type of handlers without a body.
type Empty struct{}

// wrap adapts h to net/http: it decodes the body, calls h and renders the
// result. Render failures are logged only, the status line is already out.
func wrap[R any](log *slog.Logger, h HandlerFunc[R]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req R
		if _, empty := any(req).(Empty); !empty {
			if err := decode(w, r, &req); err != nil {
				render(w, r, log, Error(err, log))
				return
			}
		}
		render(w, r, log, h(r, req))
	}
}

func render(w http.ResponseWriter, r *http.Request, log *slog.Logger, resp Response) {
	if resp == nil {
		resp = NoContent()
	}
	if err := resp.Render(w, r); err != nil && log != nil {
		log.WarnContext(r.Context(), "failed to render response", logger.Error(err))
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return HTTPError{http.StatusBadRequest, "bad_request", "Request body is empty"}
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return HTTPError{http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large"}
		}
		return HTTPError{http.StatusBadRequest, "bad_request", "Malformed request body: " + err.Error()}
	}
	return nil
}

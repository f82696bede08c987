package guard

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/dmitrymomot/trainkit/pkg/jwt"
	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

// RejectionHandler writes the response for a rejected request.
type RejectionHandler func(w http.ResponseWriter, r *http.Request, rej Rejected)

// ErrorHandler writes the response when authorization itself failed.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type middlewareConfig struct {
	extractor jwt.TokenExtractorFunc
	onReject  RejectionHandler
	onError   ErrorHandler
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

// WithExtractor changes where the credential is read from. Bearer by default.
func WithExtractor(ex jwt.TokenExtractorFunc) MiddlewareOption {
	return func(c *middlewareConfig) {
		if ex != nil {
			c.extractor = ex
		}
	}
}

// WithRejectionHandler replaces the default JSON rejection body.
func WithRejectionHandler(h RejectionHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if h != nil {
			c.onReject = h
		}
	}
}

// WithErrorHandler replaces the default 500 response.
func WithErrorHandler(h ErrorHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if h != nil {
			c.onError = h
		}
	}
}

// Middleware authorizes every request against the tenant resolved by
// tenant.Middleware, which must run first. Allowed requests carry the
// decision in their context.
func Middleware(g *Guard, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		extractor: jwt.BearerTokenExtractor,
		onReject:  WriteRejection,
		onError:   writeError,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential, err := cfg.extractor(r)
			if err != nil && !errors.Is(err, jwt.ErrMissingToken) {
				cfg.onReject(w, r, g.reject(r.Context(), invalidCredential(), err.Error()))
				return
			}

			resolved, _ := tenant.FromContext(r.Context())
			d, err := g.Authorize(r.Context(), credential, resolved)
			if err != nil {
				cfg.onError(w, r, err)
				return
			}

			switch d := d.(type) {
			case Allowed:
				next.ServeHTTP(w, r.WithContext(WithAllowed(r.Context(), d)))
			case Rejected:
				cfg.onReject(w, r, d)
			}
		})
	}
}

// RequireRole lets through only principals holding one of roles.
// It must run after Middleware.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteRejection(w, r, unauthenticated())
				return
			}
			if !slices.Contains(roles, p.Role) {
				WriteRejection(w, r, Rejected{
					Status:  http.StatusForbidden,
					Reason:  ReasonInsufficientRole,
					Message: "Your role does not allow this action",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Reason  string `json:"reason,omitempty"`
	} `json:"error"`
}

// WriteRejection renders rej as the standard JSON error envelope.
func WriteRejection(w http.ResponseWriter, _ *http.Request, rej Rejected) {
	var body errorBody
	body.Error.Code = rej.Code()
	body.Error.Message = rej.Message
	body.Error.Reason = string(rej.Reason)
	if rej.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="trainkit"`)
	}
	writeJSON(w, rej.Status, body)
}

func writeError(w http.ResponseWriter, _ *http.Request, _ error) {
	var body errorBody
	body.Error.Code = "internal_error"
	body.Error.Message = "Internal server error"
	writeJSON(w, http.StatusInternalServerError, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

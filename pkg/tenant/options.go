package tenant

import (
	"log/slog"
	"net/http"
)

// DefaultNotFoundPath is where unresolved tenant requests are redirected.
const DefaultNotFoundPath = "/tenant-not-found"

// ErrorHandler handles storage failures during tenant resolution.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// config holds middleware configuration.
type config struct {
	errorHandler ErrorHandler
	skipPaths    []string
	notFoundPath string
	logger       *slog.Logger
}

// Option configures the middleware.
type Option func(*config)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *config) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths sets path prefixes that bypass resolution. Tenant headers
// are still stripped from those requests.
func WithSkipPaths(paths ...string) Option {
	return func(c *config) {
		c.skipPaths = append(c.skipPaths, paths...)
	}
}

// WithNotFoundPath overrides the redirect target for unknown tenants.
func WithNotFoundPath(path string) Option {
	return func(c *config) {
		if path != "" {
			c.notFoundPath = path
		}
	}
}

// WithLogger sets a custom logger for the middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

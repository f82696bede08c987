package tenant

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/trainkit/pkg/logger"
)

// TenantResolver is the part of Resolver the middleware depends on.
type TenantResolver interface {
	Resolve(ctx context.Context, slug string) (*Tenant, error)
	ResolveDomain(ctx context.Context, domain string) (*Tenant, error)
}

// Middleware parses the request host, resolves the tenant and rewrites
// the tenant headers before the request reaches any handler.
//
// The resolved tenant and the parsed Target are stored in the context.
// Requests for an unknown tenant outside the main domain, demo mode and
// admin routes are redirected to the not-found path. Storage failures go
// to the error handler and never count as "not found".
func Middleware(resolver TenantResolver, mainDomain string, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		errorHandler: defaultErrorHandler,
		notFoundPath: DefaultNotFoundPath,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.skip(r.URL.Path) {
				r = r.Clone(r.Context())
				r.Header = InjectHeaders(r.Header, Target{})
				next.ServeHTTP(w, r)
				return
			}

			target := ParseRequest(r, mainDomain)
			ctx := r.Context()

			t, err := resolve(ctx, resolver, target)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			if t == nil {
				if target.Slug != "" {
					cfg.logger.DebugContext(ctx, "tenant not resolved",
						logger.Component("tenant"),
						logger.Host(target.Host),
						logger.TenantSlug(target.Slug),
					)
				}
				if target.NeedsTenantNotFoundRedirect(false) {
					http.Redirect(w, r, cfg.notFoundPath, http.StatusFound)
					return
				}
				target.Slug = ""
			} else {
				target.Slug = t.Slug
				ctx = WithTenant(ctx, t)
			}

			ctx = WithTarget(ctx, target)
			r = r.Clone(ctx)
			r.Header = InjectHeaders(r.Header, target)
			next.ServeHTTP(w, r)
		})
	}
}

// resolve tries the custom domain first and falls back to the slug rule.
func resolve(ctx context.Context, resolver TenantResolver, target Target) (*Tenant, error) {
	if target.CustomDomain {
		t, err := resolver.ResolveDomain(ctx, target.Host)
		if err != nil || t != nil {
			return t, err
		}
	}
	if target.Slug == "" {
		return nil, nil
	}
	return resolver.Resolve(ctx, target.Slug)
}

func (c *config) skip(path string) bool {
	if path == c.notFoundPath {
		return true
	}
	for _, p := range c.skipPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// RequireTenant rejects requests that reached it without a resolved tenant.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "Tenant not found", http.StatusNotFound)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Package api is the HTTP surface of the tenant edge: login, the
// authenticated principal, the current tenant profile and platform tenant
// administration.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/trainkit/internal/auth"
	"github.com/dmitrymomot/trainkit/internal/store"
	"github.com/dmitrymomot/trainkit/pkg/guard"
	"github.com/dmitrymomot/trainkit/pkg/httpserver"
	"github.com/dmitrymomot/trainkit/pkg/requestid"
	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

// Resolver resolves tenants for tenant.Middleware and clears its cache
// after administrative mutations. *tenant.Resolver implements it.
type Resolver interface {
	tenant.TenantResolver
	Clear(ctx context.Context) error
}

// TenantAdmin is the tenant CRUD used by platform administration.
// *store.Tenants implements it.
type TenantAdmin interface {
	List(ctx context.Context, p store.ListParams) ([]*tenant.Tenant, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
	Create(ctx context.Context, in store.NewTenant) (*tenant.Tenant, error)
	Update(ctx context.Context, id uuid.UUID, patch store.TenantPatch) (*tenant.Tenant, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Authenticator issues sessions. *auth.Service implements it.
type Authenticator interface {
	LoginAdmin(ctx context.Context, email, password string, resolved *tenant.Tenant) (*auth.Session, error)
	LoginStudent(ctx context.Context, email, password string, resolved *tenant.Tenant) (*auth.Session, error)
}

// Observer collects HTTP and login throttling metrics.
type Observer interface {
	RequestObserver
	ObserveLoginThrottled()
}

// Deps are the collaborators of the router.
type Deps struct {
	MainDomain string
	Resolver   Resolver
	Tenants    TenantAdmin
	Auth       Authenticator
	Guard      *guard.Guard
	Logger     *slog.Logger

	// Optional.
	Observer       Observer
	MetricsHandler http.Handler
	Readiness      []httpserver.Check
	TrustProxy     bool
	LoginRate      int // attempts per minute per client
	LoginBurst     int
}

// Server owns the router and the background work it needs.
type Server struct {
	deps    Deps
	log     *slog.Logger
	limiter *loginLimiter
	router  chi.Router
}

func New(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		deps:    deps,
		log:     log,
		limiter: newLoginLimiter(deps.LoginRate, deps.LoginBurst),
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run performs background maintenance until ctx is done.
func (s *Server) Run(ctx context.Context) {
	s.limiter.Run(ctx, time.Minute)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	if s.deps.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(
		requestid.Middleware,
		accessLog(s.log, s.deps.Observer),
		middleware.Recoverer,
		tenant.Middleware(s.deps.Resolver, s.deps.MainDomain,
			tenant.WithSkipPaths("/healthz", "/readyz", "/metrics"),
			tenant.WithLogger(s.log),
			tenant.WithErrorHandler(s.tenantError),
		),
	)

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(s.log, 3*time.Second, s.deps.Readiness...))
	if s.deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.MetricsHandler)
	}
	r.Get(tenant.DefaultNotFoundPath, wrap(s.log, s.tenantNotFound))

	r.Route("/api", func(r chi.Router) {
		r.Get("/tenant", wrap(s.log, s.currentTenant))

		r.Route("/auth", func(r chi.Router) {
			r.Use(s.limiter.Middleware(s.onThrottle))
			r.Post("/admin/login", wrap(s.log, s.adminLogin))
			r.Post("/student/login", wrap(s.log, s.studentLogin))
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Middleware(s.deps.Guard, guard.WithErrorHandler(s.guardError)))
			r.Get("/me", wrap(s.log, s.me))

			r.Route("/admin", func(r chi.Router) {
				r.Use(platformOnly, guard.RequireRole(guard.RoleSuperAdmin))
				r.Post("/cache/clear", wrap(s.log, s.clearCacheHandler))
				r.Get("/tenants", wrap(s.log, s.listTenants))
				r.Post("/tenants", wrap(s.log, s.createTenant))
				r.Get("/tenants/{id}", wrap(s.log, s.getTenant))
				r.Patch("/tenants/{id}", wrap(s.log, s.updateTenant))
				r.Post("/tenants/{id}/deactivate", wrap(s.log, s.deactivateTenant))
				r.Delete("/tenants/{id}", wrap(s.log, s.deleteTenant))
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render(w, r, s.log, Error(errNotFound, s.log))
	})
	return r
}

// platformOnly serves the administration surface on the platform host only.
// Tenant hosts, unknown subdomains and foreign domains get a 404.
func platformOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target, ok := tenant.TargetFromContext(r.Context())
		_, resolved := tenant.FromContext(r.Context())
		if !ok || !target.MainDomain || resolved {
			render(w, r, nil, Error(errNotFound, nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) tenantError(w http.ResponseWriter, r *http.Request, err error) {
	render(w, r, s.log, Error(err, s.log))
}

func (s *Server) guardError(w http.ResponseWriter, r *http.Request, err error) {
	render(w, r, s.log, Error(err, s.log))
}

func (s *Server) onThrottle(r *http.Request) {
	s.log.WarnContext(r.Context(), "login throttled", slog.String("client", clientKey(r)))
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveLoginThrottled()
	}
}

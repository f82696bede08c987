package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/trainkit/pkg/guard"
	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

// publicTenant is what anonymous visitors may learn about a tenant.
type publicTenant struct {
	Slug     string        `json:"slug"`
	Name     string        `json:"name"`
	Plan     tenant.Plan   `json:"plan"`
	Limits   tenant.Limits `json:"limits"`
	DemoMode bool          `json:"demo_mode"`
}

var errTenantNotFound = HTTPError{http.StatusNotFound, "tenant_not_found", "No training provider is registered at this address"}

func (s *Server) currentTenant(r *http.Request, _ Empty) Response {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		return Error(errTenantNotFound, s.log)
	}
	target, _ := tenant.TargetFromContext(r.Context())
	return JSON(publicTenant{
		Slug:     t.Slug,
		Name:     t.Name,
		Plan:     t.Plan,
		Limits:   tenant.Limits{MaxStudents: t.MaxStudents, MaxCourses: t.MaxCourses},
		DemoMode: target.DemoMode,
	})
}

func (s *Server) tenantNotFound(_ *http.Request, _ Empty) Response {
	return Error(errTenantNotFound, s.log)
}

type meResponse struct {
	Principal   guard.Principal `json:"principal"`
	TenantScope *uuid.UUID      `json:"tenant_scope"`
	Tenant      *publicTenant   `json:"tenant,omitempty"`
}

func (s *Server) me(r *http.Request, _ Empty) Response {
	a, ok := guard.FromContext(r.Context())
	if !ok {
		return Error(guard.ErrNoPrincipal, s.log)
	}
	resp := meResponse{Principal: a.Principal, TenantScope: a.TenantScope}
	if t, ok := tenant.FromContext(r.Context()); ok {
		resp.Tenant = &publicTenant{Slug: t.Slug, Name: t.Name, Plan: t.Plan,
			Limits: tenant.Limits{MaxStudents: t.MaxStudents, MaxCourses: t.MaxCourses}}
	}
	return JSON(resp)
}

package api

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/trainkit/internal/store"
	"github.com/dmitrymomot/trainkit/pkg/logger"
	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

const maxPageSize = 200

func (s *Server) listTenants(r *http.Request, _ Empty) Response {
	q := r.URL.Query()
	p := store.ListParams{Limit: 50}
	v := ValidationError{}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			v.add("limit", "must be between 1 and 200")
		}
		p.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			v.add("offset", "must be a non-negative integer")
		}
		p.Offset = n
	}
	p.IncludeInactive, _ = strconv.ParseBool(q.Get("include_inactive"))
	if err := v.orNil(); err != nil {
		return Error(err, s.log)
	}

	list, total, err := s.deps.Tenants.List(r.Context(), p)
	if err != nil {
		return Error(err, s.log)
	}
	if list == nil {
		list = []*tenant.Tenant{}
	}
	return JSON(list, WithMeta(map[string]any{"total": total, "limit": p.Limit, "offset": p.Offset}))
}

type createTenantRequest struct {
	Slug         string      `json:"slug"`
	Name         string      `json:"name"`
	ContactEmail string      `json:"contact_email"`
	Plan         tenant.Plan `json:"plan"`
	CustomDomain string      `json:"custom_domain"`
}

func (s *Server) createTenant(r *http.Request, req createTenantRequest) Response {
	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	req.Name = strings.TrimSpace(req.Name)

	v := ValidationError{}
	if !tenant.ValidSlug(req.Slug) {
		v.add("slug", "must be 1-63 lowercase letters, digits or hyphens and not a reserved label")
	}
	validateName(v, req.Name)
	validateEmail(v, req.ContactEmail)
	if req.Plan != "" && !req.Plan.Valid() {
		v.add("plan", "must be STARTER, PROFESSIONAL or ENTERPRISE")
	}
	req.CustomDomain = s.validateDomain(v, req.CustomDomain)
	if err := v.orNil(); err != nil {
		return Error(err, s.log)
	}

	t, err := s.deps.Tenants.Create(r.Context(), store.NewTenant{
		Slug:         req.Slug,
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		Plan:         req.Plan,
		CustomDomain: req.CustomDomain,
	})
	if err != nil {
		return Error(err, s.log)
	}
	s.log.InfoContext(r.Context(), "tenant created", logger.TenantID(t.ID), logger.TenantSlug(t.Slug))
	// a negative cache entry for the new slug must not outlive its creation
	return JSON(t, WithStatus(http.StatusCreated), WithMeta(s.clearCache(r.Context())))
}

func (s *Server) getTenant(r *http.Request, _ Empty) Response {
	id, err := tenantID(r)
	if err != nil {
		return Error(err, s.log)
	}
	t, err := s.deps.Tenants.GetByID(r.Context(), id)
	if err != nil {
		return Error(err, s.log)
	}
	return JSON(t)
}

type updateTenantRequest struct {
	Slug         *string      `json:"slug"`
	Name         *string      `json:"name"`
	ContactEmail *string      `json:"contact_email"`
	Plan         *tenant.Plan `json:"plan"`
	CustomDomain *string      `json:"custom_domain"`
	Active       *bool        `json:"active"`
}

func (s *Server) updateTenant(r *http.Request, req updateTenantRequest) Response {
	id, err := tenantID(r)
	if err != nil {
		return Error(err, s.log)
	}

	v := ValidationError{}
	if req.Slug != nil {
		v.add("slug", "is immutable")
	}
	if req.Name != nil {
		*req.Name = strings.TrimSpace(*req.Name)
		validateName(v, *req.Name)
	}
	if req.ContactEmail != nil {
		validateEmail(v, *req.ContactEmail)
	}
	if req.Plan != nil && !req.Plan.Valid() {
		v.add("plan", "must be STARTER, PROFESSIONAL or ENTERPRISE")
	}
	if req.CustomDomain != nil {
		d := s.validateDomain(v, *req.CustomDomain)
		req.CustomDomain = &d
	}
	if err := v.orNil(); err != nil {
		return Error(err, s.log)
	}

	t, err := s.deps.Tenants.Update(r.Context(), id, store.TenantPatch{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		Plan:         req.Plan,
		CustomDomain: req.CustomDomain,
		Active:       req.Active,
	})
	if err != nil {
		return Error(err, s.log)
	}
	s.log.InfoContext(r.Context(), "tenant updated", logger.TenantID(t.ID), logger.TenantSlug(t.Slug))
	return JSON(t, WithMeta(s.clearCache(r.Context())))
}

func (s *Server) deactivateTenant(r *http.Request, _ Empty) Response {
	id, err := tenantID(r)
	if err != nil {
		return Error(err, s.log)
	}
	t, err := s.deps.Tenants.Deactivate(r.Context(), id)
	if err != nil {
		return Error(err, s.log)
	}
	s.log.InfoContext(r.Context(), "tenant deactivated", logger.TenantID(t.ID), logger.TenantSlug(t.Slug))
	return JSON(t, WithMeta(s.clearCache(r.Context())))
}

func (s *Server) deleteTenant(r *http.Request, _ Empty) Response {
	id, err := tenantID(r)
	if err != nil {
		return Error(err, s.log)
	}
	if err := s.deps.Tenants.Delete(r.Context(), id); err != nil {
		return Error(err, s.log)
	}
	s.log.InfoContext(r.Context(), "tenant deleted", logger.TenantID(id))
	s.clearCache(r.Context())
	return NoContent()
}

func (s *Server) clearCacheHandler(r *http.Request, _ Empty) Response {
	meta := s.clearCache(r.Context())
	return JSON(map[string]any{"cleared": true}, WithMeta(meta))
}

// clearCache empties the tenant cache on every instance. The local cache
// is always cleared; a failed broadcast is reported in the response meta.
func (s *Server) clearCache(ctx context.Context) map[string]any {
	err := s.deps.Resolver.Clear(ctx)
	if err == nil {
		return map[string]any{"cache_broadcast": "ok"}
	}
	if !errors.Is(err, tenant.ErrBroadcast) {
		s.log.ErrorContext(ctx, "tenant cache clear failed", logger.Error(err))
	} else {
		s.log.WarnContext(ctx, "tenant cache cleared locally only", logger.Error(err))
	}
	return map[string]any{"cache_broadcast": "failed"}
}

func tenantID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errNotFound
	}
	return id, nil
}

func validateName(v ValidationError, name string) {
	if name == "" || len(name) > 200 {
		v.add("name", "must be 1-200 characters")
	}
}

func validateEmail(v ValidationError, email string) {
	if _, err := mail.ParseAddress(email); err != nil {
		v.add("contact_email", "must be a valid e-mail address")
	}
}

// validateDomain normalizes a custom domain. Hosts on the platform domain
// are refused, they are routed by slug.
func (s *Server) validateDomain(v ValidationError, raw string) string {
	d := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), ".")
	if d == "" {
		return ""
	}
	platform := strings.ToLower(s.deps.MainDomain)
	switch {
	case !strings.Contains(d, "."), strings.ContainsAny(d, "/:@ []"):
		v.add("custom_domain", "must be a bare host name")
	case d == platform || strings.HasSuffix(d, "."+platform):
		v.add("custom_domain", "must be outside "+platform)
	}
	return d
}

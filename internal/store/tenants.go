package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/trainkit/pkg/pg"
	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

const tenantColumns = `id, slug, name, contact_email, plan, max_students, max_courses,
	active, COALESCE(custom_domain, ''), created_at, updated_at`

// Tenants is the tenants table.
type Tenants struct {
	db DB
}

func NewTenants(db DB) *Tenants {
	return &Tenants{db: db}
}

// GetActiveBySlug implements tenant.Store.
func (s *Tenants) GetActiveBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	t, err := scanTenant(s.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE slug = $1 AND active`, slug))
	if pg.IsNotFoundError(err) {
		return nil, tenant.ErrTenantNotFound
	}
	return t, err
}

// GetActiveByDomain implements tenant.Store.
func (s *Tenants) GetActiveByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	t, err := scanTenant(s.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE custom_domain = $1 AND active`, domain))
	if pg.IsNotFoundError(err) {
		return nil, tenant.ErrTenantNotFound
	}
	return t, err
}

// GetByID returns the tenant regardless of its active flag.
func (s *Tenants) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	t, err := scanTenant(s.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	return t, err
}

// ListParams pages through tenants ordered by slug.
type ListParams struct {
	Limit           int
	Offset          int
	IncludeInactive bool
}

// List returns one page of tenants and the total matching count.
func (s *Tenants) List(ctx context.Context, p ListParams) ([]*tenant.Tenant, int, error) {
	if p.Limit <= 0 {
		p.Limit = 50
	}

	var total int
	if err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM tenants WHERE active OR $1`, p.IncludeInactive,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE active OR $1 ORDER BY slug LIMIT $2 OFFSET $3`,
		p.IncludeInactive, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var out []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// NewTenant is the input of Create. Limits come from the plan.
type NewTenant struct {
	Slug         string
	Name         string
	ContactEmail string
	Plan         tenant.Plan
	CustomDomain string
}

// Create inserts an active tenant.
func (s *Tenants) Create(ctx context.Context, in NewTenant) (*tenant.Tenant, error) {
	if !tenant.ValidSlug(in.Slug) {
		return nil, fmt.Errorf("%w: slug %q", ErrInvalidInput, in.Slug)
	}
	if in.Plan == "" {
		in.Plan = tenant.PlanStarter
	}
	if !in.Plan.Valid() {
		return nil, fmt.Errorf("%w: plan %q", ErrInvalidInput, in.Plan)
	}
	limits := tenant.LimitsFor(in.Plan)

	t, err := scanTenant(s.db.QueryRow(ctx, `
		INSERT INTO tenants (slug, name, contact_email, plan, max_students, max_courses, custom_domain)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING `+tenantColumns,
		in.Slug, in.Name, strings.ToLower(in.ContactEmail), string(in.Plan),
		limits.MaxStudents, limits.MaxCourses, strings.ToLower(in.CustomDomain)))
	if err != nil {
		return nil, uniqueErr(err)
	}
	return t, nil
}

// TenantPatch lists the mutable attributes; nil fields are left unchanged.
// The slug is deliberately absent.
type TenantPatch struct {
	Name         *string
	ContactEmail *string
	Plan         *tenant.Plan
	CustomDomain *string // "" removes the domain
	Active       *bool
}

// Update applies patch. Changing the plan also resets the limits.
func (s *Tenants) Update(ctx context.Context, id uuid.UUID, patch TenantPatch) (*tenant.Tenant, error) {
	var (
		plan                    *string
		maxStudents, maxCourses *int
		email, domain           *string
	)
	if patch.Plan != nil {
		if !patch.Plan.Valid() {
			return nil, fmt.Errorf("%w: plan %q", ErrInvalidInput, *patch.Plan)
		}
		l := tenant.LimitsFor(*patch.Plan)
		p := string(*patch.Plan)
		plan, maxStudents, maxCourses = &p, &l.MaxStudents, &l.MaxCourses
	}
	if patch.ContactEmail != nil {
		e := strings.ToLower(*patch.ContactEmail)
		email = &e
	}
	if patch.CustomDomain != nil {
		d := strings.ToLower(*patch.CustomDomain)
		domain = &d
	}

	t, err := scanTenant(s.db.QueryRow(ctx, `
		UPDATE tenants SET
			name          = COALESCE($2, name),
			contact_email = COALESCE($3, contact_email),
			plan          = COALESCE($4, plan),
			max_students  = COALESCE($5, max_students),
			max_courses   = COALESCE($6, max_courses),
			custom_domain = CASE WHEN $7::boolean THEN NULLIF($8, '') ELSE custom_domain END,
			active        = COALESCE($9, active),
			updated_at    = now()
		WHERE id = $1
		RETURNING `+tenantColumns,
		id, patch.Name, email, plan, maxStudents, maxCourses,
		domain != nil, domain, patch.Active))
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, uniqueErr(err)
	}
	return t, nil
}

// Deactivate soft-disables a tenant; its rows stay in place.
func (s *Tenants) Deactivate(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	inactive := false
	return s.Update(ctx, id, TenantPatch{Active: &inactive})
}

// Delete removes the tenant and, through ON DELETE CASCADE, every row it owns.
func (s *Tenants) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var (
		t    tenant.Tenant
		plan string
	)
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.ContactEmail, &plan, &t.MaxStudents,
		&t.MaxCourses, &t.Active, &t.CustomDomain, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Plan = tenant.Plan(plan)
	return &t, nil
}

func uniqueErr(err error) error {
	if !pg.IsDuplicateKeyError(err) {
		return err
	}
	switch pg.ConstraintName(err) {
	case "tenants_slug_key":
		return ErrSlugTaken
	case "tenants_custom_domain_key":
		return ErrDomainTaken
	default:
		return ErrEmailTaken
	}
}

package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Plan is the subscription tier of a tenant.
type Plan string

const (
	PlanStarter      Plan = "STARTER"
	PlanProfessional Plan = "PROFESSIONAL"
	PlanEnterprise   Plan = "ENTERPRISE"
)

// Unlimited marks a resource limit that is not enforced.
const Unlimited = -1

// Valid reports whether p is one of the known tiers.
func (p Plan) Valid() bool {
	switch p {
	case PlanStarter, PlanProfessional, PlanEnterprise:
		return true
	}
	return false
}

// Limits holds the resource caps granted by a plan.
type Limits struct {
	MaxStudents int `json:"max_students"`
	MaxCourses  int `json:"max_courses"`
}

// LimitsFor returns the resource caps of the given plan.
// Unknown plans get the starter caps.
func LimitsFor(p Plan) Limits {
	switch p {
	case PlanProfessional:
		return Limits{MaxStudents: 500, MaxCourses: 50}
	case PlanEnterprise:
		return Limits{MaxStudents: Unlimited, MaxCourses: Unlimited}
	default:
		return Limits{MaxStudents: 50, MaxCourses: 5}
	}
}

// Tenant is a training company served from its own subdomain.
// Slug is the routing key and never changes once assigned.
type Tenant struct {
	ID           uuid.UUID `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email"`
	Plan         Plan      `json:"plan"`
	MaxStudents  int       `json:"max_students"`
	MaxCourses   int       `json:"max_courses"`
	Active       bool      `json:"active"`
	CustomDomain string    `json:"custom_domain,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ApplyPlan sets the plan and the limits derived from it.
func (t *Tenant) ApplyPlan(p Plan) {
	l := LimitsFor(p)
	t.Plan = p
	t.MaxStudents = l.MaxStudents
	t.MaxCourses = l.MaxCourses
}

// clone returns a copy so cached records are never shared with callers.
func (t *Tenant) clone() *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Store loads active tenants from persistent storage.
// Both methods return ErrTenantNotFound when no active tenant matches;
// any other error is treated as a storage failure.
type Store interface {
	GetActiveBySlug(ctx context.Context, slug string) (*Tenant, error)
	GetActiveByDomain(ctx context.Context, domain string) (*Tenant, error)
}

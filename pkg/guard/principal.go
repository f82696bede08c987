package guard

import (
	"context"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind tells admins and students apart; they live in different tables.
type Kind string

const (
	KindAdmin   Kind = "admin"
	KindStudent Kind = "student"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindAdmin || k == KindStudent
}

// Role is the privilege level of a principal.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleManager    Role = "MANAGER"
	RoleStaff      Role = "STAFF"
	RoleInstructor Role = "INSTRUCTOR"
	RoleStudent    Role = "STUDENT"
)

// ValidFor reports whether r may be held by a principal of kind k.
func (r Role) ValidFor(k Kind) bool {
	switch k {
	case KindAdmin:
		return r == RoleSuperAdmin || r == RoleManager || r == RoleStaff || r == RoleInstructor
	case KindStudent:
		return r == RoleStudent
	}
	return false
}

// Principal is an authenticated actor as stored, not as claimed by a token.
// TenantID is nil for platform admins.
type Principal struct {
	ID       uuid.UUID  `json:"id"`
	Kind     Kind       `json:"kind"`
	Email    string     `json:"email"`
	Role     Role       `json:"role"`
	TenantID *uuid.UUID `json:"tenant_id"`
	Active   bool       `json:"active"`
}

// IsPlatform reports whether the principal has no tenant affiliation.
func (p Principal) IsPlatform() bool {
	return p.TenantID == nil
}

// AffiliatedWith reports whether the principal belongs to tenant id.
func (p Principal) AffiliatedWith(id uuid.UUID) bool {
	return p.TenantID != nil && *p.TenantID == id
}

// Claims is the signed credential payload: sub, kind, tid, role and exp.
type Claims struct {
	jwtlib.RegisteredClaims
	Kind     Kind       `json:"kind"`
	TenantID *uuid.UUID `json:"tid"`
	Role     Role       `json:"role"`
}

// NewClaims builds the credential for p valid for ttl from now.
func NewClaims(p Principal, now time.Time, ttl time.Duration) *Claims {
	return &Claims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   p.ID.String(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
		Kind:     p.Kind,
		TenantID: p.TenantID,
		Role:     p.Role,
	}
}

// Verifier checks a credential and decodes it into claims. *jwt.Service implements it.
type Verifier interface {
	Parse(token string, claims jwtlib.Claims) error
}

// PrincipalStore loads principals. GetPrincipal returns ErrPrincipalNotFound
// for unknown ids; any other error is a storage failure.
type PrincipalStore interface {
	GetPrincipal(ctx context.Context, kind Kind, id uuid.UUID) (*Principal, error)
}

// LastLoginRecorder stamps the last successful authentication of a principal.
type LastLoginRecorder interface {
	RecordLogin(ctx context.Context, kind Kind, id uuid.UUID, at time.Time) error
}

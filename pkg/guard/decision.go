package guard

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

// Reason is the machine-readable cause of a rejection.
type Reason string

const (
	ReasonUnauthenticated       Reason = "unauthenticated"
	ReasonInvalidCredential     Reason = "invalid_credential"
	ReasonTenantMismatch        Reason = "tenant_mismatch"
	ReasonUseTenantPortal       Reason = "use_tenant_portal"
	ReasonPlatformAdminRequired Reason = "platform_admin_required"
	ReasonInsufficientRole      Reason = "insufficient_role"
)

// Decision is the outcome of an authorization check: Allowed or Rejected.
type Decision interface {
	decision()
}

// Allowed lets the request proceed. TenantScope is the tenant every query
// of this request must be limited to; nil means platform-wide access.
type Allowed struct {
	Principal   Principal
	TenantScope *uuid.UUID
}

// Rejected stops the request with Status (401 or 403).
type Rejected struct {
	Status  int
	Reason  Reason
	Message string
}

func (Allowed) decision()  {}
func (Rejected) decision() {}

// Error lets a rejection travel as an error where that is convenient.
func (r Rejected) Error() string {
	return string(r.Reason) + ": " + r.Message
}

// Code is the error code of the JSON body.
func (r Rejected) Code() string {
	if r.Status == http.StatusUnauthorized {
		return "unauthorized"
	}
	return "forbidden"
}

func unauthenticated() Rejected {
	return Rejected{
		Status:  http.StatusUnauthorized,
		Reason:  ReasonUnauthenticated,
		Message: "Authentication required",
	}
}

func invalidCredential() Rejected {
	return Rejected{
		Status:  http.StatusUnauthorized,
		Reason:  ReasonInvalidCredential,
		Message: "Invalid or expired credential",
	}
}

// Decide applies the tenant boundary to an already authenticated principal.
// resolved is the tenant of the request, nil on the platform entry point.
//
// Under a tenant, only its own principals and unaffiliated super admins pass.
// On the platform entry point only super admins pass; tenant-affiliated
// principals are told to use their tenant's address instead.
func Decide(p Principal, resolved *tenant.Tenant) Decision {
	if resolved != nil {
		if p.AffiliatedWith(resolved.ID) || (p.IsPlatform() && p.Role == RoleSuperAdmin) {
			id := resolved.ID
			return Allowed{Principal: p, TenantScope: &id}
		}
		return Rejected{
			Status:  http.StatusForbidden,
			Reason:  ReasonTenantMismatch,
			Message: "You do not have access to this organisation",
		}
	}

	if p.Role == RoleSuperAdmin {
		return Allowed{Principal: p, TenantScope: p.TenantID}
	}
	if !p.IsPlatform() {
		return Rejected{
			Status:  http.StatusForbidden,
			Reason:  ReasonUseTenantPortal,
			Message: "Please sign in through your organisation's own address",
		}
	}
	return Rejected{
		Status:  http.StatusForbidden,
		Reason:  ReasonPlatformAdminRequired,
		Message: "Platform administrator access required",
	}
}

package tenant

import "errors"

var (
	// ErrTenantNotFound is returned by a Store when no active tenant matches.
	// The Resolver turns it into a nil tenant, never into an error.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrStorage wraps failures of the underlying Store.
	ErrStorage = errors.New("tenant storage failure")

	// ErrBroadcast is returned when a cache clear could not be propagated to peers.
	ErrBroadcast = errors.New("tenant cache clear broadcast failed")

	// ErrNoTenantInContext is returned when a handler requires a tenant and none was resolved.
	ErrNoTenantInContext = errors.New("no tenant in context")
)

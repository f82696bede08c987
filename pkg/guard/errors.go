package guard

import "errors"

var (
	// ErrPrincipalNotFound is returned by a PrincipalStore for unknown ids.
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrPrincipalLookup wraps storage failures while loading a principal.
	ErrPrincipalLookup = errors.New("principal lookup failed")

	// ErrNoPrincipal is returned when a handler expects an authorized principal and has none.
	ErrNoPrincipal = errors.New("no principal in context")
)

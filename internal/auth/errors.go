package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown e-mail, wrong password and
	// inactive accounts alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTenantRequired     = errors.New("student login requires a tenant")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrIssueToken         = errors.New("failed to issue token")
)

package store

import "errors"

var (
	ErrNotFound     = errors.New("record not found")
	ErrSlugTaken    = errors.New("tenant slug already taken")
	ErrDomainTaken  = errors.New("custom domain already taken")
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidInput = errors.New("invalid input")
)

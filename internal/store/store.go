// Package store is the PostgreSQL persistence for tenants and principals.
//
// Tenants implements tenant.Store for the resolver plus the CRUD used by
// platform administration. Principals implements guard.PrincipalStore and
// guard.LastLoginRecorder, and the credential lookups used by login.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool and pgx.Tx the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

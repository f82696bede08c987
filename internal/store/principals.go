package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/trainkit/pkg/guard"
	"github.com/dmitrymomot/trainkit/pkg/pg"
)

// Credentials is a principal together with its password hash. It never
// leaves the auth layer.
type Credentials struct {
	Principal    guard.Principal
	PasswordHash string
}

// Principals reads and writes the admins and students tables.
type Principals struct {
	db DB
}

func NewPrincipals(db DB) *Principals {
	return &Principals{db: db}
}

// GetPrincipal implements guard.PrincipalStore.
func (s *Principals) GetPrincipal(ctx context.Context, kind guard.Kind, id uuid.UUID) (*guard.Principal, error) {
	var row pgx.Row
	switch kind {
	case guard.KindAdmin:
		row = s.db.QueryRow(ctx,
			`SELECT id, email, role, tenant_id, active, '' FROM admins WHERE id = $1`, id)
	case guard.KindStudent:
		row = s.db.QueryRow(ctx,
			`SELECT id, email, 'STUDENT', tenant_id, active, '' FROM students WHERE id = $1`, id)
	default:
		return nil, guard.ErrPrincipalNotFound
	}

	c, err := scanCredentials(row, kind)
	if pg.IsNotFoundError(err) {
		return nil, guard.ErrPrincipalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c.Principal, nil
}

// RecordLogin implements guard.LastLoginRecorder.
func (s *Principals) RecordLogin(ctx context.Context, kind guard.Kind, id uuid.UUID, at time.Time) error {
	table := "admins"
	if kind == guard.KindStudent {
		table = "students"
	}
	_, err := s.db.Exec(ctx, `UPDATE `+table+` SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

// FindAdminByEmail looks an admin up by the globally unique e-mail.
func (s *Principals) FindAdminByEmail(ctx context.Context, email string) (*Credentials, error) {
	c, err := scanCredentials(s.db.QueryRow(ctx,
		`SELECT id, email, role, tenant_id, active, password_hash FROM admins WHERE email = $1`,
		normalizeEmail(email)), guard.KindAdmin)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	return c, err
}

// FindStudentByEmail looks a student up within one tenant.
func (s *Principals) FindStudentByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Credentials, error) {
	c, err := scanCredentials(s.db.QueryRow(ctx,
		`SELECT id, email, 'STUDENT', tenant_id, active, password_hash
		 FROM students WHERE tenant_id = $1 AND email = $2`,
		tenantID, normalizeEmail(email)), guard.KindStudent)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	return c, err
}

// NewAdmin is the input of CreateAdmin. TenantID nil creates a platform admin.
type NewAdmin struct {
	Email        string
	Name         string
	PasswordHash string
	Role         guard.Role
	TenantID     *uuid.UUID
}

// CreateAdmin inserts an active admin.
func (s *Principals) CreateAdmin(ctx context.Context, in NewAdmin) (*guard.Principal, error) {
	if !in.Role.ValidFor(guard.KindAdmin) {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidInput, in.Role)
	}
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		INSERT INTO admins (tenant_id, email, name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		in.TenantID, normalizeEmail(in.Email), in.Name, in.PasswordHash, string(in.Role),
	).Scan(&id)
	if pg.IsDuplicateKeyError(err) {
		return nil, ErrEmailTaken
	}
	if pg.IsForeignKeyViolationError(err) {
		return nil, fmt.Errorf("%w: unknown tenant", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return &guard.Principal{
		ID:       id,
		Kind:     guard.KindAdmin,
		Email:    normalizeEmail(in.Email),
		Role:     in.Role,
		TenantID: in.TenantID,
		Active:   true,
	}, nil
}

// NewStudent is the input of CreateStudent.
type NewStudent struct {
	TenantID     uuid.UUID
	Email        string
	Name         string
	PasswordHash string
}

// CreateStudent inserts an active student into one tenant.
func (s *Principals) CreateStudent(ctx context.Context, in NewStudent) (*guard.Principal, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		INSERT INTO students (tenant_id, email, name, password_hash)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		in.TenantID, normalizeEmail(in.Email), in.Name, in.PasswordHash,
	).Scan(&id)
	if pg.IsDuplicateKeyError(err) {
		return nil, ErrEmailTaken
	}
	if pg.IsForeignKeyViolationError(err) {
		return nil, fmt.Errorf("%w: unknown tenant", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}
	tid := in.TenantID
	return &guard.Principal{
		ID:       id,
		Kind:     guard.KindStudent,
		Email:    normalizeEmail(in.Email),
		Role:     guard.RoleStudent,
		TenantID: &tid,
		Active:   true,
	}, nil
}

func scanCredentials(row pgx.Row, kind guard.Kind) (*Credentials, error) {
	var (
		c    Credentials
		role string
	)
	err := row.Scan(&c.Principal.ID, &c.Principal.Email, &role, &c.Principal.TenantID,
		&c.Principal.Active, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan principal: %w", err)
	}
	c.Principal.Kind = kind
	c.Principal.Role = guard.Role(role)
	return &c, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

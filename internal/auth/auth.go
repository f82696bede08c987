// Package auth verifies passwords and issues the signed credential the
// guard checks on every request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/trainkit/internal/store"
	"github.com/dmitrymomot/trainkit/pkg/guard"
	"github.com/dmitrymomot/trainkit/pkg/logger"
	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

const (
	DefaultTokenTTL   = 12 * time.Hour
	MinPasswordLength = 8
)

// dummyHash is compared against when the e-mail is unknown so a miss costs
// as much as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("trainkit-timing-equalizer"), bcrypt.DefaultCost)

// CredentialStore finds principals by e-mail. *store.Principals implements it.
type CredentialStore interface {
	FindAdminByEmail(ctx context.Context, email string) (*store.Credentials, error)
	FindStudentByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*store.Credentials, error)
}

// AdminCreator is used to bootstrap the first platform admin.
type AdminCreator interface {
	FindAdminByEmail(ctx context.Context, email string) (*store.Credentials, error)
	CreateAdmin(ctx context.Context, in store.NewAdmin) (*guard.Principal, error)
}

// Issuer signs claims. *jwt.Service implements it.
type Issuer interface {
	Generate(claims jwtlib.Claims) (string, error)
}

// Session is the result of a successful login.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Principal guard.Principal `json:"principal"`
}

type Service struct {
	creds    CredentialStore
	issuer   Issuer
	tokenTTL time.Duration
	now      func() time.Time
	log      *slog.Logger
}

type Option func(*Service)

func WithTokenTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tokenTTL = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(creds CredentialStore, issuer Issuer, opts ...Option) *Service {
	s := &Service{
		creds:    creds,
		issuer:   issuer,
		tokenTTL: DefaultTokenTTL,
		now:      time.Now,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginAdmin authenticates an admin. At a tenant entry point (resolved
// non-nil) the admin must also pass the guard's tenant rule, so a session
// is never issued for a tenant the admin could not act in. The returned
// error is then the guard.Rejected.
func (s *Service) LoginAdmin(ctx context.Context, email, password string, resolved *tenant.Tenant) (*Session, error) {
	c, err := s.creds.FindAdminByEmail(ctx, email)
	if err = s.verify(c, err, password); err != nil {
		return nil, err
	}
	if resolved != nil {
		if rej, ok := guard.Decide(c.Principal, resolved).(guard.Rejected); ok {
			return nil, rej
		}
	}
	return s.issue(ctx, c.Principal)
}

// LoginStudent authenticates a student of the resolved tenant.
func (s *Service) LoginStudent(ctx context.Context, email, password string, resolved *tenant.Tenant) (*Session, error) {
	if resolved == nil {
		return nil, ErrTenantRequired
	}
	c, err := s.creds.FindStudentByEmail(ctx, resolved.ID, email)
	if err = s.verify(c, err, password); err != nil {
		return nil, err
	}
	return s.issue(ctx, c.Principal)
}

func (s *Service) verify(c *store.Credentials, lookupErr error, password string) error {
	if lookupErr != nil {
		if errors.Is(lookupErr, store.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return ErrInvalidCredentials
		}
		return fmt.Errorf("find principal: %w", lookupErr)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	if !c.Principal.Active {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *Service) issue(ctx context.Context, p guard.Principal) (*Session, error) {
	now := s.now()
	claims := guard.NewClaims(p, now, s.tokenTTL)
	token, err := s.issuer.Generate(claims)
	if err != nil {
		return nil, errors.Join(ErrIssueToken, err)
	}
	s.log.InfoContext(ctx, "login succeeded",
		logger.PrincipalID(p.ID.String()),
		logger.Role(string(p.Role)),
	)
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, Principal: p}, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// EnsureSuperAdmin creates a platform SUPER_ADMIN with email unless one
// with that e-mail exists. It reports whether a row was created.
func EnsureSuperAdmin(ctx context.Context, admins AdminCreator, email, password string) (bool, error) {
	_, err := admins.FindAdminByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("find admin: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	_, err = admins.CreateAdmin(ctx, store.NewAdmin{
		Email:        email,
		Name:         "Platform administrator",
		PasswordHash: hash,
		Role:         guard.RoleSuperAdmin,
	})
	if errors.Is(err, store.ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// SigningMethod is the only algorithm the service signs with and accepts.
var SigningMethod = jwtlib.SigningMethodHS256

// Service signs and verifies HS256 tokens.
// The signing key is kept in memory only.
type Service struct {
	signingKey []byte
	leeway     time.Duration
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLeeway tolerates clock skew when checking exp, nbf and iat.
func WithLeeway(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.leeway = d
		}
	}
}

// WithClock overrides the time source used for validation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a service with the provided signing key.
// The key should be at least 32 bytes for HMAC-SHA256.
func New(signingKey []byte, opts ...Option) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	s := &Service{signingKey: signingKey, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromString is New for string keys read from configuration.
func NewFromString(signingKey string, opts ...Option) (*Service, error) {
	return New([]byte(signingKey), opts...)
}

// Generate signs claims and returns the compact token.
func (s *Service) Generate(claims jwtlib.Claims) (string, error) {
	if claims == nil {
		return "", ErrMissingClaims
	}
	token, err := jwtlib.NewWithClaims(SigningMethod, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return token, nil
}

// Parse verifies the token and decodes its payload into claims.
// Tokens without exp are rejected. Failures map onto the package errors
// so callers can tell an expired token from a forged one.
func (s *Service) Parse(tokenString string, claims jwtlib.Claims) error {
	if tokenString == "" {
		return ErrMissingToken
	}
	if claims == nil {
		return ErrMissingClaims
	}

	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{SigningMethod.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithIssuedAt(),
		jwtlib.WithLeeway(s.leeway),
		jwtlib.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, ErrUnexpectedSigningMethod
		}
		return s.signingKey, nil
	})
	if err != nil {
		return mapError(err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, jwtlib.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpiredToken, err)
	case errors.Is(err, ErrUnexpectedSigningMethod):
		return err
	case errors.Is(err, jwtlib.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
}

package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/trainkit/pkg/logger"
	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

const defaultRecordTimeout = 5 * time.Second

// Observer receives every decision, typically to count it.
// outcome is "allowed" or the rejection reason.
type Observer interface {
	ObserveDecision(outcome string)
}

// Guard authenticates a credential and checks the principal against the
// tenant of the request. Decisions are never cached.
type Guard struct {
	verifier       Verifier
	store          PrincipalStore
	recorder       LastLoginRecorder
	observer       Observer
	logger         *slog.Logger
	now            func() time.Time
	recordEvery    time.Duration
	recordTimeout  time.Duration
	lastRecorded   sync.Map // uuid.UUID -> time.Time
	pendingRecords sync.WaitGroup
}

// Option configures a Guard.
type Option func(*Guard)

// WithLastLoginRecorder stamps successful authentications in the background.
func WithLastLoginRecorder(r LastLoginRecorder) Option {
	return func(g *Guard) { g.recorder = r }
}

// WithRecordInterval records at most one login per principal per interval.
// Zero records every successful authorization.
func WithRecordInterval(d time.Duration) Option {
	return func(g *Guard) {
		if d >= 0 {
			g.recordEvery = d
		}
	}
}

// WithObserver reports decisions.
func WithObserver(o Observer) Option {
	return func(g *Guard) { g.observer = o }
}

// WithLogger sets the guard logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClock overrides the time source for login stamps.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// New creates a Guard.
func New(verifier Verifier, store PrincipalStore, opts ...Option) *Guard {
	g := &Guard{
		verifier:      verifier,
		store:         store,
		logger:        slog.Default(),
		now:           time.Now,
		recordTimeout: defaultRecordTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize decides whether the holder of credential may act under resolved
// (nil on the platform entry point).
//
// Rejections are returned as a Decision with a nil error. An error is
// returned only when the principal could not be loaded from storage; the
// caller must fail the request.
func (g *Guard) Authorize(ctx context.Context, credential string, resolved *tenant.Tenant) (Decision, error) {
	if credential == "" {
		return g.reject(ctx, unauthenticated(), "no credential"), nil
	}

	var claims Claims
	if err := g.verifier.Parse(credential, &claims); err != nil {
		return g.reject(ctx, invalidCredential(), err.Error()), nil
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil || !claims.Kind.Valid() {
		return g.reject(ctx, invalidCredential(), "malformed subject"), nil
	}

	p, err := g.store.GetPrincipal(ctx, claims.Kind, id)
	switch {
	case errors.Is(err, ErrPrincipalNotFound):
		return g.reject(ctx, invalidCredential(), "unknown principal"), nil
	case err != nil:
		g.observe("error")
		return nil, fmt.Errorf("%w: %w", ErrPrincipalLookup, err)
	case !p.Active:
		return g.reject(ctx, invalidCredential(), "inactive principal"), nil
	case !sameTenant(claims.TenantID, p.TenantID):
		return g.reject(ctx, invalidCredential(), "affiliation changed"), nil
	}

	d := Decide(*p, resolved)
	if r, ok := d.(Rejected); ok {
		return g.reject(ctx, r, "tenant boundary"), nil
	}

	g.observe("allowed")
	g.recordLogin(ctx, *p)
	return d, nil
}

// Wait blocks until background login stamps have finished.
func (g *Guard) Wait() {
	g.pendingRecords.Wait()
}

func (g *Guard) reject(ctx context.Context, r Rejected, detail string) Rejected {
	g.observe(string(r.Reason))
	g.logger.DebugContext(ctx, "authorization rejected",
		logger.Component("guard"),
		logger.Reason(string(r.Reason)),
		slog.String("detail", detail),
		slog.Int("status", r.Status),
	)
	return r
}

func (g *Guard) recordLogin(ctx context.Context, p Principal) {
	if g.recorder == nil {
		return
	}
	now := g.now()
	if g.recordEvery > 0 {
		if last, ok := g.lastRecorded.Load(p.ID); ok && now.Sub(last.(time.Time)) < g.recordEvery {
			return
		}
	}
	g.lastRecorded.Store(p.ID, now)

	g.pendingRecords.Add(1)
	go func() {
		defer g.pendingRecords.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.recordTimeout)
		defer cancel()
		if err := g.recorder.RecordLogin(ctx, p.Kind, p.ID, now); err != nil {
			g.logger.WarnContext(ctx, "failed to record last login",
				logger.Component("guard"),
				logger.PrincipalID(p.ID),
				logger.Error(err),
			)
		}
	}()
}

func (g *Guard) observe(outcome string) {
	if g.observer != nil {
		g.observer.ObserveDecision(outcome)
	}
}

func sameTenant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

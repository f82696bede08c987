package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/trainkit/pkg/logger"
)

const (
	// DefaultCacheTTL is how long a found tenant stays cached.
	DefaultCacheTTL = 5 * time.Minute
	// DefaultNegativeCacheTTL is how long a miss stays cached.
	DefaultNegativeCacheTTL = 30 * time.Second

	domainKeyPrefix = "domain:"
)

// LookupOutcome classifies a single resolution for observers.
type LookupOutcome string

const (
	OutcomeHit         LookupOutcome = "hit"
	OutcomeNegativeHit LookupOutcome = "negative_hit"
	OutcomeMiss        LookupOutcome = "miss"
	OutcomeNotFound    LookupOutcome = "not_found"
	OutcomeError       LookupOutcome = "error"
)

// Observer receives one call per resolution and one per cache clear.
type Observer interface {
	ObserveLookup(outcome LookupOutcome)
	ObserveClear()
}

// Resolver maps tenant slugs and custom domains to active tenants.
//
// Found tenants and misses are cached separately. Storage failures are
// returned wrapped in ErrStorage and never cached. A tenant that does not
// exist or is inactive resolves to nil without an error.
type Resolver struct {
	store       Store
	cache       Cache
	ttl         time.Duration
	negativeTTL time.Duration
	broadcaster Broadcaster
	observer    Observer
	logger      *slog.Logger

	// mu orders cache writes against clears; generation tells a lookup
	// that started before a clear not to write its result back.
	mu         sync.RWMutex
	generation atomic.Uint64
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCache replaces the default memory cache.
func WithCache(c Cache) ResolverOption {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithCacheTTL sets the lifetime of cached tenants.
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithNegativeCacheTTL sets the lifetime of cached misses. Zero disables negative caching.
func WithNegativeCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl >= 0 {
			r.negativeTTL = ttl
		}
	}
}

// WithBroadcaster makes Clear notify other instances.
func WithBroadcaster(b Broadcaster) ResolverOption {
	return func(r *Resolver) { r.broadcaster = b }
}

// WithObserver reports lookup outcomes, typically to metrics.
func WithObserver(o Observer) ResolverOption {
	return func(r *Resolver) { r.observer = o }
}

// WithResolverLogger sets the logger used for clears and storage failures.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver backed by store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:       store,
		ttl:         DefaultCacheTTL,
		negativeTTL: DefaultNegativeCacheTTL,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewMemoryCache(DefaultCacheSize)
	}
	return r
}

// Resolve returns the active tenant with the given slug, or nil if there is none.
func (r *Resolver) Resolve(ctx context.Context, slug string) (*Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !ValidSlug(slug) {
		return nil, nil
	}
	return r.lookup(ctx, slug, func(ctx context.Context) (*Tenant, error) {
		return r.store.GetActiveBySlug(ctx, slug)
	})
}

// ResolveDomain returns the active tenant owning the given custom domain,
// or nil if there is none.
func (r *Resolver) ResolveDomain(ctx context.Context, domain string) (*Tenant, error) {
	domain = normalizeHost(domain)
	if domain == "" {
		return nil, nil
	}
	return r.lookup(ctx, domainKeyPrefix+domain, func(ctx context.Context) (*Tenant, error) {
		return r.store.GetActiveByDomain(ctx, domain)
	})
}

func (r *Resolver) lookup(ctx context.Context, key string, fetch func(context.Context) (*Tenant, error)) (*Tenant, error) {
	if t, ok := r.cache.Get(ctx, key); ok {
		if t == nil {
			r.observe(OutcomeNegativeHit)
			return nil, nil
		}
		r.observe(OutcomeHit)
		return t.clone(), nil
	}

	gen := r.generation.Load()
	t, err := fetch(ctx)
	if err != nil && !errors.Is(err, ErrTenantNotFound) {
		r.observe(OutcomeError)
		r.logger.ErrorContext(ctx, "tenant lookup failed",
			logger.Component("tenant"),
			slog.String("key", key),
			logger.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if t != nil && !t.Active {
		t = nil
	}

	ttl := r.ttl
	outcome := OutcomeMiss
	if t == nil {
		ttl = r.negativeTTL
		outcome = OutcomeNotFound
	}
	r.remember(ctx, gen, key, t.clone(), ttl)
	r.observe(outcome)
	return t.clone(), nil
}

// remember writes the lookup result unless a clear happened since gen was read.
func (r *Resolver) remember(ctx context.Context, gen uint64, key string, t *Tenant, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.generation.Load() != gen {
		return
	}
	r.cache.Set(ctx, key, t, ttl)
}

// Clear empties the local cache and, when a Broadcaster is configured,
// asks every other instance to do the same. The local cache is cleared
// even if the broadcast fails.
func (r *Resolver) Clear(ctx context.Context) error {
	r.ClearLocal(ctx)
	if r.broadcaster == nil {
		return nil
	}
	if err := r.broadcaster.Broadcast(ctx); err != nil {
		r.logger.ErrorContext(ctx, "tenant cache clear broadcast failed",
			logger.Component("tenant"),
			logger.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrBroadcast, err)
	}
	return nil
}

// ClearLocal empties this instance's cache only.
func (r *Resolver) ClearLocal(ctx context.Context) {
	r.mu.Lock()
	r.generation.Add(1)
	r.cache.Clear(ctx)
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.ObserveClear()
	}
	r.logger.DebugContext(ctx, "tenant cache cleared", logger.Component("tenant"))
}

// Close releases the cache.
func (r *Resolver) Close() error {
	return r.cache.Close()
}

func (r *Resolver) observe(o LookupOutcome) {
	if r.observer != nil {
		r.observer.ObserveLookup(o)
	}
}

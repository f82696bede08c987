package tenant

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Cache stores resolved tenants keyed by slug or domain.
//
// A stored nil tenant is a negative entry: Get returns (nil, true) for it,
// which tells the caller the tenant is known not to exist. Clear must
// drop every entry at once.
type Cache interface {
	Get(ctx context.Context, key string) (*Tenant, bool)
	Set(ctx context.Context, key string, tenant *Tenant, ttl time.Duration)
	Clear(ctx context.Context)
	Close() error
}

// DefaultCacheSize is the default maximum number of entries in the memory cache.
const DefaultCacheSize = 1000

type cacheItem struct {
	tenant    *Tenant
	expiresAt time.Time
}

func (i cacheItem) expired(now time.Time) bool {
	return !now.Before(i.expiresAt)
}

// memoryCache publishes immutable maps through an atomic pointer.
// Readers never lock; writers build a new map under mu and swap it in.
type memoryCache struct {
	entries atomic.Pointer[map[string]cacheItem]
	mu      sync.Mutex
	maxSize int
}

// NewMemoryCache creates a copy-on-write in-memory cache holding at most
// maxSize entries. Non-positive sizes fall back to DefaultCacheSize.
func NewMemoryCache(maxSize int) Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	c := &memoryCache{maxSize: maxSize}
	empty := make(map[string]cacheItem)
	c.entries.Store(&empty)
	return c
}

func (c *memoryCache) Get(_ context.Context, key string) (*Tenant, bool) {
	item, ok := (*c.entries.Load())[key]
	if !ok || item.expired(time.Now()) {
		return nil, false
	}
	return item.tenant, true
}

func (c *memoryCache) Set(_ context.Context, key string, tenant *Tenant, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	current := *c.entries.Load()
	next := make(map[string]cacheItem, len(current)+1)
	for k, v := range current {
		if !v.expired(now) {
			next[k] = v
		}
	}
	if _, exists := next[key]; !exists && len(next) >= c.maxSize {
		evictSoonest(next)
	}
	next[key] = cacheItem{tenant: tenant, expiresAt: now.Add(ttl)}
	c.entries.Store(&next)
}

func (c *memoryCache) Clear(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	empty := make(map[string]cacheItem)
	c.entries.Store(&empty)
}

func (c *memoryCache) Close() error {
	c.Clear(context.Background())
	return nil
}

// evictSoonest drops the entry closest to expiry.
func evictSoonest(m map[string]cacheItem) {
	var (
		victim string
		first  = true
		at     time.Time
	)
	for k, v := range m {
		if first || v.expiresAt.Before(at) {
			victim, at, first = k, v.expiresAt, false
		}
	}
	if !first {
		delete(m, victim)
	}
}

// noopCache disables caching; every lookup goes to the store.
type noopCache struct{}

// NewNoopCache returns a cache that never stores anything.
func NewNoopCache() Cache { return noopCache{} }

func (noopCache) Get(context.Context, string) (*Tenant, bool) { return nil, false }

func (noopCache) Set(context.Context, string, *Tenant, time.Duration) {}

func (noopCache) Clear(context.Context) {}

func (noopCache) Close() error { return nil }

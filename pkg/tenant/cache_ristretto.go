package tenant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// ristrettoCache keeps tenants in a dgraph-io/ristretto cache. Every entry
// costs 1, so maxSize bounds the entry count like the memory cache does.
// Clear is not atomic in ristretto, so mu keeps reads and writes out while it runs.
type ristrettoCache struct {
	mu sync.RWMutex
	c  *ristretto.Cache[string, cacheItem]
}

// NewRistrettoCache creates a ristretto-backed cache holding about maxSize entries.
func NewRistrettoCache(maxSize int) (Cache, error) {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, cacheItem]{
		NumCounters:        int64(maxSize) * 10, // ~10x expected items
		MaxCost:            int64(maxSize),
		BufferItems:        64,
		IgnoreInternalCost: true, // cost counts entries, not bytes
	})
	if err != nil {
		return nil, fmt.Errorf("tenant: create ristretto cache: %w", err)
	}
	return &ristrettoCache{c: c}, nil
}

func (r *ristrettoCache) Get(_ context.Context, key string) (*Tenant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, found := r.c.Get(key)
	if !found || item.expired(time.Now()) {
		return nil, false
	}
	return item.tenant, true
}

// Set waits for the write buffer to drain so a read right after Set sees the entry.
func (r *ristrettoCache) Set(_ context.Context, key string, tenant *Tenant, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.c.SetWithTTL(key, cacheItem{tenant: tenant, expiresAt: time.Now().Add(ttl)}, 1, ttl)
	r.c.Wait()
}

func (r *ristrettoCache) Clear(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.c.Clear()
}

func (r *ristrettoCache) Close() error {
	r.c.Close()
	return nil
}

// Package tenant resolves which training company an HTTP request belongs to.
//
// Every request passes through four steps before a handler sees it:
//
//  1. ParseHost / ParseRequest derive a Target from the host (X-Forwarded-Host
//     first), path and query: the candidate slug plus the main-domain, demo and
//     admin-route flags.
//  2. Resolver maps the slug (or a custom domain) to an active Tenant through an
//     injectable Cache. Misses are cached briefly; storage failures are returned
//     as ErrStorage and never cached.
//  3. InjectHeaders builds a fresh header set whose X-Tenant-Slug,
//     X-Tenant-Subdomain and X-Demo-Mode values come only from the Target.
//     Client-supplied copies of these headers are discarded.
//  4. Target.NeedsTenantNotFoundRedirect decides whether to send the client to
//     the tenant-not-found page.
//
// Middleware wires the steps together:
//
//	tenants := store.NewTenants(pool)
//	resolver := tenant.NewResolver(tenants,
//		tenant.WithCache(tenant.NewMemoryCache(1000)),
//		tenant.WithCacheTTL(5*time.Minute),
//	)
//	r := chi.NewRouter()
//	r.Use(tenant.Middleware(resolver, "trainkit.co.uk"))
//
// Handlers read the tenant back with FromContext.
//
// # Cache invalidation
//
// Any change to a tenant's attributes must be followed by Resolver.Clear.
// Clear empties the local cache before returning, so the next Resolve on
// this instance reads the store. With a RedisBroadcaster configured the clear
// is published to every other instance, each of which runs Listen.
//
// The memory cache swaps whole immutable maps, so a read racing a clear sees
// either the old or the new map and never a partial record.
package tenant

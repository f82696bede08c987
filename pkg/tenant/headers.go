package tenant

import (
	"net/http"
	"strings"
)

var tenantHeaders = [...]string{HeaderTenantSlug, HeaderTenantSubdomain, HeaderDemoMode}

// InjectHeaders returns a copy of inbound in which every tenant marker
// comes from t. Markers sent by the client are dropped, never merged,
// and inbound itself is left untouched.
func InjectHeaders(inbound http.Header, t Target) http.Header {
	out := inbound.Clone()
	if out == nil {
		out = make(http.Header)
	}
	for k := range out {
		if isTenantHeader(k) {
			delete(out, k)
		}
	}

	if t.Slug != "" {
		out.Set(HeaderTenantSlug, t.Slug)
		out.Set(HeaderTenantSubdomain, t.Slug)
	}
	if t.DemoMode {
		out.Set(HeaderDemoMode, "true")
	}
	return out
}

// isTenantHeader also catches keys stored without canonicalization.
func isTenantHeader(key string) bool {
	for _, h := range tenantHeaders {
		if strings.EqualFold(key, h) {
			return true
		}
	}
	return false
}

// SlugFromHeaders reads the injected tenant slug. Only meaningful on
// requests that went through Middleware.
func SlugFromHeaders(h http.Header) string {
	return h.Get(HeaderTenantSlug)
}

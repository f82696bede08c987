package tenant

import (
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Header names carrying the server-derived tenant identity downstream.
// Slug and Subdomain hold the same value under two names kept for older handlers.
const (
	HeaderTenantSlug      = "X-Tenant-Slug"
	HeaderTenantSubdomain = "X-Tenant-Subdomain"
	HeaderDemoMode        = "X-Demo-Mode"
	HeaderForwardedHost   = "X-Forwarded-Host"
)

const localhost = "localhost"

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

// Labels that never address a tenant.
var reservedSlugs = map[string]bool{"www": true, localhost: true}

// ValidSlug reports whether s can be used as a tenant slug. Reserved
// labels are not valid since no host would ever route to them.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s) && !reservedSlugs[s]
}

// Target is the parsed view of a request: which tenant it addresses
// and which routing flags apply. It lives for one request only.
type Target struct {
	Host         string `json:"host"`
	Slug         string `json:"slug,omitempty"`
	MainDomain   bool   `json:"main_domain"`
	DemoMode     bool   `json:"demo_mode"`
	AdminRoute   bool   `json:"admin_route"`
	CustomDomain bool   `json:"custom_domain"`
}

// NeedsTenantNotFoundRedirect reports whether the caller must send the
// client to the tenant-not-found page. resolved tells whether a tenant
// record was found for the target.
func (t Target) NeedsTenantNotFoundRedirect(resolved bool) bool {
	return !resolved && !t.DemoMode && !t.MainDomain && !t.AdminRoute
}

// ParseRequest parses r the same way as ParseHost. X-Forwarded-Host wins
// over the Host header; only its first entry is used.
func ParseRequest(r *http.Request, mainDomain string) Target {
	host := r.Host
	if fwd := r.Header.Get(HeaderForwardedHost); fwd != "" {
		if first, _, _ := strings.Cut(fwd, ","); strings.TrimSpace(first) != "" {
			host = strings.TrimSpace(first)
		}
	}
	return ParseHost(host, r.URL.Path, r.URL.Query(), mainDomain)
}

// ParseHost derives the tenant target from a hostname, path and query.
// It has no side effects and never fails: anything it cannot make sense of
// yields a target without a slug.
func ParseHost(host, path string, query url.Values, mainDomain string) Target {
	t := Target{
		AdminRoute: strings.HasPrefix(path, "/admin") || strings.HasPrefix(path, "/api"),
		DemoMode:   strings.HasPrefix(path, "/demo") || isTruthy(query.Get("demo")),
	}

	h := normalizeHost(host)
	t.Host = h
	if h == "" {
		return t
	}

	main := normalizeHost(mainDomain)
	if main != "" && (h == main || h == "www."+main) {
		t.MainDomain = true
		return t
	}

	if h == localhost {
		t.MainDomain = true
		return t
	}

	if label, ok := strings.CutSuffix(h, "."+localhost); ok {
		if i := strings.LastIndex(label, "."); i >= 0 {
			label = label[i+1:]
		}
		t.Slug = candidate(label)
		return t
	}

	if main == "" || !strings.HasSuffix(h, "."+main) {
		t.CustomDomain = true
	}

	label, _, _ := strings.Cut(h, ".")
	t.Slug = candidate(label)
	return t
}

func candidate(label string) string {
	if !ValidSlug(label) {
		return ""
	}
	return label
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else if strings.Count(host, ":") == 1 {
		host, _, _ = strings.Cut(host, ":")
	}
	host = strings.TrimSuffix(host, ".")
	if strings.ContainsAny(host, "/ @[]") {
		return ""
	}
	return host
}

func isTruthy(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

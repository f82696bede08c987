package tenant_test

import (
	"fmt"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

const mainDomain = "trainkit.co.uk"

func TestParseHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		host string
		path string
		want tenant.Target
	}{
		{
			name: "tenant subdomain",
			host: "bristol.trainkit.co.uk",
			path: "/courses",
			want: tenant.Target{Host: "bristol.trainkit.co.uk", Slug: "bristol"},
		},
		{
			name: "bare main domain",
			host: "trainkit.co.uk",
			path: "/pricing",
			want: tenant.Target{Host: "trainkit.co.uk", MainDomain: true},
		},
		{
			name: "www main domain",
			host: "www.trainkit.co.uk",
			path: "/",
			want: tenant.Target{Host: "www.trainkit.co.uk", MainDomain: true},
		},
		{
			name: "main domain with port and upper case",
			host: "TrainKit.co.uk:443",
			path: "/",
			want: tenant.Target{Host: "trainkit.co.uk", MainDomain: true},
		},
		{
			name: "trailing dot",
			host: "bristol.trainkit.co.uk.",
			path: "/",
			want: tenant.Target{Host: "bristol.trainkit.co.uk", Slug: "bristol"},
		},
		{
			name: "localhost subdomain with port",
			host: "victim.localhost:3001",
			path: "/",
			want: tenant.Target{Host: "victim.localhost", Slug: "victim"},
		},
		{
			name: "nested localhost takes label before localhost",
			host: "a.bristol.localhost:3000",
			path: "/",
			want: tenant.Target{Host: "a.bristol.localhost", Slug: "bristol"},
		},
		{
			name: "www localhost yields no slug",
			host: "www.localhost:3000",
			path: "/",
			want: tenant.Target{Host: "www.localhost"},
		},
		{
			name: "bare localhost is the platform",
			host: "localhost:3000",
			path: "/",
			want: tenant.Target{Host: "localhost", MainDomain: true},
		},
		{
			name: "empty host",
			host: "",
			path: "/",
			want: tenant.Target{},
		},
		{
			name: "malformed host",
			host: "bad host/..",
			path: "/",
			want: tenant.Target{},
		},
		{
			name: "invalid slug label",
			host: "-bad.trainkit.co.uk",
			path: "/",
			want: tenant.Target{Host: "-bad.trainkit.co.uk"},
		},
		{
			name: "admin route",
			host: "trainkit.co.uk",
			path: "/admin/tenants",
			want: tenant.Target{Host: "trainkit.co.uk", MainDomain: true, AdminRoute: true},
		},
		{
			name: "api route on unknown subdomain",
			host: "ghost.trainkit.co.uk",
			path: "/api/me",
			want: tenant.Target{Host: "ghost.trainkit.co.uk", Slug: "ghost", AdminRoute: true},
		},
		{
			name: "demo path",
			host: "bristol.trainkit.co.uk",
			path: "/demo/courses",
			want: tenant.Target{Host: "bristol.trainkit.co.uk", Slug: "bristol", DemoMode: true},
		},
		{
			name: "custom domain",
			host: "courses.acme-training.com",
			path: "/",
			want: tenant.Target{Host: "courses.acme-training.com", Slug: "courses", CustomDomain: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tenant.ParseHost(tt.host, tt.path, nil, mainDomain)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHost_LocalhostSlugs(t *testing.T) {
	t.Parallel()

	for _, slug := range []string{"a", "bristol", "acme-training", "t0", "9lives"} {
		for _, port := range []string{"", ":80", ":3001", ":65535"} {
			host := slug + ".localhost" + port
			got := tenant.ParseHost(host, "/", nil, mainDomain)
			assert.Equal(t, slug, got.Slug, host)
			assert.False(t, got.MainDomain, host)
		}
	}
}

func TestParseHost_AdminAndAPIPaths(t *testing.T) {
	t.Parallel()

	hosts := []string{"", "trainkit.co.uk", "ghost.trainkit.co.uk", "x.localhost:3000", "other.example.com"}
	paths := []string{"/admin", "/admin/", "/admin/tenants/1", "/api", "/api/me", "/api/auth/admin/login"}

	for _, h := range hosts {
		for _, p := range paths {
			got := tenant.ParseHost(h, p, nil, mainDomain)
			assert.True(t, got.AdminRoute, "%s%s", h, p)
			assert.False(t, got.NeedsTenantNotFoundRedirect(false), "%s%s", h, p)
		}
	}
}

func TestParseHost_DemoQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		demo  bool
	}{
		{"demo=true", true},
		{"demo=1", true},
		{"demo=TRUE", true},
		{"demo=false", false},
		{"demo=yes", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()
			q, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)
			got := tenant.ParseHost("ghost.trainkit.co.uk", "/", q, mainDomain)
			assert.Equal(t, tt.demo, got.DemoMode)
		})
	}
}

func TestParseRequest(t *testing.T) {
	t.Parallel()

	t.Run("prefers forwarded host", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest("GET", "http://internal:8080/courses", nil)
		req.Header.Set(tenant.HeaderForwardedHost, "bristol.trainkit.co.uk, proxy.local")

		got := tenant.ParseRequest(req, mainDomain)
		assert.Equal(t, "bristol", got.Slug)
		assert.Equal(t, "bristol.trainkit.co.uk", got.Host)
	})

	t.Run("falls back to host", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest("GET", "http://leeds.trainkit.co.uk/courses?demo=1", nil)

		got := tenant.ParseRequest(req, mainDomain)
		assert.Equal(t, "leeds", got.Slug)
		assert.True(t, got.DemoMode)
	})
}

func TestTarget_NeedsTenantNotFoundRedirect(t *testing.T) {
	t.Parallel()

	for _, resolved := range []bool{false, true} {
		for _, demo := range []bool{false, true} {
			for _, main := range []bool{false, true} {
				for _, admin := range []bool{false, true} {
					target := tenant.Target{DemoMode: demo, MainDomain: main, AdminRoute: admin}
					want := !resolved && !demo && !main && !admin
					assert.Equal(t, want, target.NeedsTenantNotFoundRedirect(resolved),
						fmt.Sprintf("resolved=%v demo=%v main=%v admin=%v", resolved, demo, main, admin))
				}
			}
		}
	}
}

func TestValidSlug(t *testing.T) {
	t.Parallel()

	assert.True(t, tenant.ValidSlug("bristol"))
	assert.True(t, tenant.ValidSlug("a1-b2"))
	assert.False(t, tenant.ValidSlug(""))
	assert.False(t, tenant.ValidSlug("-lead"))
	assert.False(t, tenant.ValidSlug("Upper"))
	assert.False(t, tenant.ValidSlug("under_score"))
	assert.False(t, tenant.ValidSlug("www"))
	assert.False(t, tenant.ValidSlug("localhost"))
}

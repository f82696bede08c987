package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/trainkit/internal/api"
	"github.com/dmitrymomot/trainkit/internal/auth"
	"github.com/dmitrymomot/trainkit/internal/store"
	"github.com/dmitrymomot/trainkit/pkg/guard"
	"github.com/dmitrymomot/trainkit/pkg/jwt"
	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

const (
	mainDomain = "trainkit.co.uk"
	password   = "correct horse battery"
)

// memTenants is an in-memory tenant table serving both the resolver and
// the administration endpoints, so cache clears are observable.
type memTenants struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*tenant.Tenant
	lookups int
}

func newMemTenants() *memTenants {
	return &memTenants{byID: map[uuid.UUID]*tenant.Tenant{}}
}

func (m *memTenants) GetActiveBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	for _, t := range m.byID {
		if t.Slug == slug && t.Active {
			c := *t
			return &c, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (m *memTenants) GetActiveByDomain(_ context.Context, domain string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	for _, t := range m.byID {
		if t.CustomDomain != "" && t.CustomDomain == domain && t.Active {
			c := *t
			return &c, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (m *memTenants) List(_ context.Context, p store.ListParams) ([]*tenant.Tenant, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*tenant.Tenant
	for _, t := range m.byID {
		if t.Active || p.IncludeInactive {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	total := len(out)
	if p.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[p.Offset:]
	if len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, total, nil
}

func (m *memTenants) GetByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (m *memTenants) Create(_ context.Context, in store.NewTenant) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byID {
		if t.Slug == in.Slug {
			return nil, store.ErrSlugTaken
		}
	}
	if in.Plan == "" {
		in.Plan = tenant.PlanStarter
	}
	now := time.Now()
	t := &tenant.Tenant{
		ID:           uuid.New(),
		Slug:         in.Slug,
		Name:         in.Name,
		ContactEmail: in.ContactEmail,
		Active:       true,
		CustomDomain: in.CustomDomain,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	t.ApplyPlan(in.Plan)
	m.byID[t.ID] = t
	c := *t
	return &c, nil
}

func (m *memTenants) Update(_ context.Context, id uuid.UUID, p store.TenantPatch) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.ContactEmail != nil {
		t.ContactEmail = *p.ContactEmail
	}
	if p.Plan != nil {
		t.ApplyPlan(*p.Plan)
	}
	if p.CustomDomain != nil {
		t.CustomDomain = *p.CustomDomain
	}
	if p.Active != nil {
		t.Active = *p.Active
	}
	t.UpdatedAt = time.Now()
	c := *t
	return &c, nil
}

func (m *memTenants) Deactivate(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	inactive := false
	return m.Update(ctx, id, store.TenantPatch{Active: &inactive})
}

func (m *memTenants) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memTenants) mustCreate(t *testing.T, slug string) *tenant.Tenant {
	t.Helper()
	tn, err := m.Create(context.Background(), store.NewTenant{Slug: slug, Name: strings.ToUpper(slug), ContactEmail: "office@" + slug + ".test"})
	require.NoError(t, err)
	return tn
}

// memPrincipals serves the guard and the login service.
type memPrincipals struct {
	mu    sync.Mutex
	creds map[uuid.UUID]*store.Credentials
}

func newMemPrincipals() *memPrincipals {
	return &memPrincipals{creds: map[uuid.UUID]*store.Credentials{}}
}

var passwordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

func (m *memPrincipals) add(kind guard.Kind, email string, role guard.Role, tid *uuid.UUID) guard.Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := guard.Principal{ID: uuid.New(), Kind: kind, Email: email, Role: role, TenantID: tid, Active: true}
	m.creds[p.ID] = &store.Credentials{Principal: p, PasswordHash: passwordHash}
	return p
}

func (m *memPrincipals) GetPrincipal(_ context.Context, kind guard.Kind, id uuid.UUID) (*guard.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[id]
	if !ok || c.Principal.Kind != kind {
		return nil, guard.ErrPrincipalNotFound
	}
	p := c.Principal
	return &p, nil
}

func (m *memPrincipals) FindAdminByEmail(_ context.Context, email string) (*store.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.creds {
		if c.Principal.Kind == guard.KindAdmin && c.Principal.Email == strings.ToLower(email) {
			cc := *c
			return &cc, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memPrincipals) FindStudentByEmail(_ context.Context, tenantID uuid.UUID, email string) (*store.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.creds {
		p := c.Principal
		if p.Kind == guard.KindStudent && p.AffiliatedWith(tenantID) && p.Email == strings.ToLower(email) {
			cc := *c
			return &cc, nil
		}
	}
	return nil, store.ErrNotFound
}

type fixture struct {
	server     *api.Server
	tenants    *memTenants
	principals *memPrincipals
	resolver   *tenant.Resolver
	jwt        *jwt.Service
}

func newFixture(t *testing.T, mutate ...func(*api.Deps)) *fixture {
	t.Helper()

	tenants := newMemTenants()
	principals := newMemPrincipals()
	svc, err := jwt.NewFromString("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	resolver := tenant.NewResolver(tenants)
	t.Cleanup(func() { _ = resolver.Close() })

	deps := api.Deps{
		MainDomain: mainDomain,
		Resolver:   resolver,
		Tenants:    tenants,
		Auth:       auth.NewService(principals, svc),
		Guard:      guard.New(svc, principals),
		LoginRate:  60,
		LoginBurst: 20,
	}
	for _, m := range mutate {
		m(&deps)
	}
	return &fixture{
		server:     api.New(deps),
		tenants:    tenants,
		principals: principals,
		resolver:   resolver,
		jwt:        svc,
	}
}

func (f *fixture) token(t *testing.T, p guard.Principal) string {
	t.Helper()
	tok, err := f.jwt.Generate(guard.NewClaims(p, time.Now(), time.Hour))
	require.NoError(t, err)
	return tok
}

type call struct {
	method  string
	host    string
	path    string
	body    any
	token   string
	remote  string
	headers map[string]string
}

func (f *fixture) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	if c.method == "" {
		c.method = http.MethodGet
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Host = c.host
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.remote != "" {
		req.RemoteAddr = c.remote
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error *struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Reason  string              `json:"reason"`
		Details map[string][]string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func jsonUnmarshal(raw json.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}

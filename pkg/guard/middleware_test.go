package guard_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/trainkit/pkg/guard"
	"github.com/dmitrymomot/trainkit/pkg/jwt"
	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// withTenant plays the part of tenant.Middleware.
func withTenant(tn *tenant.Tenant, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tn != nil {
			r = r.WithContext(tenant.WithTenant(r.Context(), tn))
		}
		next.ServeHTTP(w, r)
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	bristol := newTenant("bristol")
	manager := admin(guard.RoleManager, ptr(bristol.ID))
	store := newFakePrincipals(manager)
	g := guard.New(svc, store)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, found := guard.FromContext(r.Context())
		require.True(t, found)
		assert.Equal(t, manager.ID, a.Principal.ID)
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("allowed", func(t *testing.T) {
		t.Parallel()
		h := withTenant(bristol, guard.Middleware(g)(ok))
		req := httptest.NewRequest("GET", "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, svc, manager, time.Hour))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("missing credential", func(t *testing.T) {
		t.Parallel()
		h := withTenant(bristol, guard.Middleware(g)(ok))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/api/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
		env := decodeError(t, w)
		assert.Equal(t, "unauthorized", env.Error.Code)
		assert.Equal(t, "unauthenticated", env.Error.Reason)
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		t.Parallel()
		h := withTenant(bristol, guard.Middleware(g)(ok))
		req := httptest.NewRequest("GET", "/api/me", nil)
		req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_credential", decodeError(t, w).Error.Reason)
	})

	t.Run("cross tenant", func(t *testing.T) {
		t.Parallel()
		h := withTenant(newTenant("leeds"), guard.Middleware(g)(ok))
		req := httptest.NewRequest("GET", "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, svc, manager, time.Hour))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		env := decodeError(t, w)
		assert.Equal(t, "forbidden", env.Error.Code)
		assert.Equal(t, "tenant_mismatch", env.Error.Reason)
	})

	t.Run("cookie extractor", func(t *testing.T) {
		t.Parallel()
		h := withTenant(bristol, guard.Middleware(g, guard.WithExtractor(jwt.CookieTokenExtractor("tk_session")))(ok))
		req := httptest.NewRequest("GET", "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: "tk_session", Value: token(t, svc, manager, time.Hour)})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestMiddleware_StorageError(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	bristol := newTenant("bristol")
	manager := admin(guard.RoleManager, ptr(bristol.ID))
	store := newFakePrincipals(manager)
	store.err = errors.New("pool exhausted")

	var handled error
	g := guard.New(svc, store)
	h := withTenant(bristol, guard.Middleware(g, guard.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		handled = err
		w.WriteHeader(http.StatusInternalServerError)
	}))(http.NotFoundHandler()))

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, svc, manager, time.Hour))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.ErrorIs(t, handled, guard.ErrPrincipalLookup)
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	root := admin(guard.RoleSuperAdmin, nil)
	staff := admin(guard.RoleStaff, nil)
	g := guard.New(svc, newFakePrincipals(root, staff))

	h := guard.Middleware(g)(guard.RequireRole(guard.RoleSuperAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
	))

	req := httptest.NewRequest("POST", "/api/admin/cache/clear", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, svc, root, time.Hour))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// platform staff never reach RequireRole: the guard rejects them first
	req = httptest.NewRequest("POST", "/api/admin/cache/clear", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, svc, staff, time.Hour))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "platform_admin_required", decodeError(t, w).Error.Reason)

	// without Middleware there is no principal
	w = httptest.NewRecorder()
	guard.RequireRole(guard.RoleSuperAdmin)(http.NotFoundHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_InsufficientRole(t *testing.T) {
	t.Parallel()

	bristol := newTenant("bristol")
	instructor := admin(guard.RoleInstructor, ptr(bristol.ID))
	ctx := guard.WithAllowed(context.Background(), guard.Allowed{Principal: instructor, TenantScope: ptr(bristol.ID)})

	w := httptest.NewRecorder()
	guard.RequireRole(guard.RoleManager, guard.RoleSuperAdmin)(http.NotFoundHandler()).
		ServeHTTP(w, httptest.NewRequest("GET", "/", nil).WithContext(ctx))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "insufficient_role", decodeError(t, w).Error.Reason)
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := guard.LoggerExtractor()
	_, ok := extract(context.Background())
	assert.False(t, ok)

	p := admin(guard.RoleManager, nil)
	attr, ok := extract(guard.WithAllowed(context.Background(), guard.Allowed{Principal: p}))
	require.True(t, ok)
	assert.Equal(t, "principal_id", attr.Key)
	assert.Equal(t, p.ID.String(), attr.Value.String())
}

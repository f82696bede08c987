package store_test

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/trainkit/internal/store"
	"github.com/dmitrymomot/trainkit/pkg/guard"
	"github.com/dmitrymomot/trainkit/pkg/pg"
	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

func TestMigrationsEmbedded(t *testing.T) {
	t.Parallel()

	files, err := fs.Glob(store.Migrations, store.MigrationsDir+"/*.sql")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	for _, f := range files {
		body, err := fs.ReadFile(store.Migrations, f)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", f)
		assert.Contains(t, string(body), "-- +goose Down", f)
	}
}

// testPool connects to TRAINKIT_TEST_DATABASE_URL and applies the
// migrations. Tests that need it are skipped without the variable.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TRAINKIT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TRAINKIT_TEST_DATABASE_URL is not set")
	}
	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString:  url,
		MaxOpenConns:      4,
		MaxIdleConns:      1,
		HealthCheckPeriod: time.Minute,
		MaxConnIdleTime:   time.Minute,
		MaxConnLifetime:   time.Minute,
		RetryAttempts:     1,
		MigrationsTable:   "schema_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, store.Migrations, store.MigrationsDir, cfg, slog.New(slog.DiscardHandler)))
	_, err = pool.Exec(ctx, `TRUNCATE tenants, admins CASCADE`)
	require.NoError(t, err)
	return pool
}

func TestTenants(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	tenants := store.NewTenants(pool)

	bristol, err := tenants.Create(ctx, store.NewTenant{
		Slug:         "bristol",
		Name:         "Bristol First Aid",
		ContactEmail: "Office@Bristol.test",
		Plan:         tenant.PlanProfessional,
	})
	require.NoError(t, err)
	assert.True(t, bristol.Active)
	assert.Equal(t, 500, bristol.MaxStudents)
	assert.Equal(t, "office@bristol.test", bristol.ContactEmail)

	_, err = tenants.Create(ctx, store.NewTenant{Slug: "bristol", Name: "dup"})
	assert.ErrorIs(t, err, store.ErrSlugTaken)
	_, err = tenants.Create(ctx, store.NewTenant{Slug: "Not Valid", Name: "x"})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	got, err := tenants.GetActiveBySlug(ctx, "bristol")
	require.NoError(t, err)
	assert.Equal(t, bristol.ID, got.ID)

	domain := "learn.bristol-aid.test"
	enterprise := tenant.PlanEnterprise
	got, err = tenants.Update(ctx, bristol.ID, store.TenantPatch{CustomDomain: &domain, Plan: &enterprise})
	require.NoError(t, err)
	assert.Equal(t, tenant.Unlimited, got.MaxCourses)

	got, err = tenants.GetActiveByDomain(ctx, domain)
	require.NoError(t, err)
	assert.Equal(t, bristol.ID, got.ID)

	_, err = tenants.Deactivate(ctx, bristol.ID)
	require.NoError(t, err)
	_, err = tenants.GetActiveBySlug(ctx, "bristol")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)

	list, total, err := tenants.List(ctx, store.ListParams{IncludeInactive: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)

	require.NoError(t, tenants.Delete(ctx, bristol.ID))
	assert.ErrorIs(t, tenants.Delete(ctx, bristol.ID), store.ErrNotFound)
	_, err = tenants.GetByID(ctx, bristol.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPrincipals(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	tenants := store.NewTenants(pool)
	principals := store.NewPrincipals(pool)

	leeds, err := tenants.Create(ctx, store.NewTenant{Slug: "leeds", Name: "Leeds Safety"})
	require.NoError(t, err)

	root, err := principals.CreateAdmin(ctx, store.NewAdmin{Email: "root@trainkit.test", PasswordHash: "x", Role: guard.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Nil(t, root.TenantID)

	manager, err := principals.CreateAdmin(ctx, store.NewAdmin{Email: "m@leeds.test", PasswordHash: "x", Role: guard.RoleManager, TenantID: &leeds.ID})
	require.NoError(t, err)
	_, err = principals.CreateAdmin(ctx, store.NewAdmin{Email: "M@leeds.test", PasswordHash: "x", Role: guard.RoleStaff})
	assert.ErrorIs(t, err, store.ErrEmailTaken)

	student, err := principals.CreateStudent(ctx, store.NewStudent{TenantID: leeds.ID, Email: "s@example.test", PasswordHash: "x"})
	require.NoError(t, err)

	p, err := principals.GetPrincipal(ctx, guard.KindAdmin, manager.ID)
	require.NoError(t, err)
	require.NotNil(t, p.TenantID)
	assert.Equal(t, leeds.ID, *p.TenantID)

	_, err = principals.GetPrincipal(ctx, guard.KindStudent, uuid.New())
	assert.ErrorIs(t, err, guard.ErrPrincipalNotFound)

	c, err := principals.FindStudentByEmail(ctx, leeds.ID, "S@Example.test")
	require.NoError(t, err)
	assert.Equal(t, student.ID, c.Principal.ID)
	assert.Equal(t, "x", c.PasswordHash)

	require.NoError(t, principals.RecordLogin(ctx, guard.KindAdmin, root.ID, time.Now()))

	// deleting the tenant cascades to its principals
	require.NoError(t, tenants.Delete(ctx, leeds.ID))
	_, err = principals.GetPrincipal(ctx, guard.KindAdmin, manager.ID)
	assert.ErrorIs(t, err, guard.ErrPrincipalNotFound)
	_, err = principals.FindAdminByEmail(ctx, "root@trainkit.test")
	assert.NoError(t, err)
}

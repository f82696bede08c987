package tenant_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

func TestContext(t *testing.T) {
	t.Parallel()

	t.Run("tenant round trip", func(t *testing.T) {
		t.Parallel()
		tn := createTestTenant("bristol", true)
		ctx := tenant.WithTenant(context.Background(), tn)

		got, ok := tenant.FromContext(ctx)
		require.True(t, ok)
		assert.Same(t, tn, got)

		id, ok := tenant.IDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, tn.ID, id)
	})

	t.Run("nil tenant counts as absent", func(t *testing.T) {
		t.Parallel()
		ctx := tenant.WithTenant(context.Background(), nil)

		_, ok := tenant.FromContext(ctx)
		assert.False(t, ok)
		id, ok := tenant.IDFromContext(ctx)
		assert.False(t, ok)
		assert.Equal(t, uuid.Nil, id)
	})

	t.Run("target round trip", func(t *testing.T) {
		t.Parallel()
		target := tenant.Target{Host: "bristol.localhost", Slug: "bristol", DemoMode: true}
		ctx := tenant.WithTarget(context.Background(), target)

		got, ok := tenant.TargetFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, target, got)

		_, ok = tenant.TargetFromContext(context.Background())
		assert.False(t, ok)
	})

	t.Run("logger extractor", func(t *testing.T) {
		t.Parallel()
		extract := tenant.LoggerExtractor()

		_, ok := extract(context.Background())
		assert.False(t, ok)

		attr, ok := extract(tenant.WithTenant(context.Background(), createTestTenant("leeds", true)))
		require.True(t, ok)
		assert.Equal(t, "tenant_slug", attr.Key)
		assert.Equal(t, "leeds", attr.Value.String())
	})
}

package guard_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/trainkit/pkg/guard"
)

func TestRole_ValidFor(t *testing.T) {
	t.Parallel()

	assert.True(t, guard.RoleSuperAdmin.ValidFor(guard.KindAdmin))
	assert.True(t, guard.RoleInstructor.ValidFor(guard.KindAdmin))
	assert.False(t, guard.RoleStudent.ValidFor(guard.KindAdmin))
	assert.True(t, guard.RoleStudent.ValidFor(guard.KindStudent))
	assert.False(t, guard.RoleManager.ValidFor(guard.KindStudent))
	assert.False(t, guard.RoleManager.ValidFor(guard.Kind("robot")))
}

func TestNewClaims(t *testing.T) {
	t.Parallel()

	tid := uuid.New()
	p := admin(guard.RoleManager, &tid)
	now := time.Now().Truncate(time.Second)

	c := guard.NewClaims(p, now, time.Hour)
	assert.Equal(t, p.ID.String(), c.Subject)
	assert.Equal(t, guard.KindAdmin, c.Kind)
	assert.Equal(t, guard.RoleManager, c.Role)
	require.NotNil(t, c.TenantID)
	assert.Equal(t, tid, *c.TenantID)
	assert.WithinDuration(t, now.Add(time.Hour), c.ExpiresAt.Time, time.Second)

	svc := newService(t)
	tok, err := svc.Generate(c)
	require.NoError(t, err)

	var parsed guard.Claims
	require.NoError(t, svc.Parse(tok, &parsed))
	assert.Equal(t, c.Subject, parsed.Subject)
	assert.Equal(t, tid, *parsed.TenantID)

	platform := guard.NewClaims(admin(guard.RoleSuperAdmin, nil), now, time.Hour)
	tok, err = svc.Generate(platform)
	require.NoError(t, err)
	var parsedPlatform guard.Claims
	require.NoError(t, svc.Parse(tok, &parsedPlatform))
	assert.Nil(t, parsedPlatform.TenantID)
}

package role

import (
	"context"
	"testing"

	"github.com/goconsole/pkg/auth"
	"github.com/goconsole/pkg/config"
	"github.com/goconsole/pkg/database"
	"github.com/goconsole/pkg/errors"
	"github.com/goconsole/services/authz/internal/catalog"
	"github.com/goconsole/services/authz/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver:       "sqlite",
		Database:     "file:" + t.Name() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, db.AutoMigrate(model.All()...))
	require.NoError(t, catalog.Seed(context.Background(), db, catalog.DefaultCatalog()))

	enforcer, err := auth.NewEnforcer(nil, nil)
	require.NoError(t, err)
	svc := NewService(db, catalog.NewRepository(db), auth.NewCasbinService(enforcer))
	require.NoError(t, svc.SyncPolicies(context.Background()))
	return svc, db
}

func TestUpdateRoleBumpsVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	updated, err := svc.UpdateRole(ctx, "viewer", []string{"weekly-report:read", "defects:read", "defects:read", "theme:manage"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"defects:read", "theme:manage", "weekly-report:read"}, updated.Permissions)
	assert.Equal(t, int64(2), updated.Version)

	stored, err := svc.Role(ctx, "viewer")
	require.NoError(t, err)
	assert.Equal(t, updated, stored)

	ok, err := svc.Check(ctx, "viewer", "theme", "theme:manage")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateRoleVersionConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateRole(ctx, "viewer", []string{"defects:read"}, 1)
	require.NoError(t, err)

	_, err = svc.UpdateRole(ctx, "viewer", []string{"theme:manage"}, 1)
	assert.ErrorIs(t, err, errors.ErrVersionConflict)
	assert.Equal(t, 409, errors.GetCode(err))

	stored, err := svc.Role(ctx, "viewer")
	require.NoError(t, err)
	assert.Equal(t, []string{"defects:read"}, stored.Permissions)

	// 版本为 0 时后写覆盖
	_, err = svc.UpdateRole(ctx, "viewer", []string{"theme:manage"}, 0)
	require.NoError(t, err)
}

func TestUpdateRoleRejections(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateRole(ctx, catalog.SuperAdminKey, nil, 0)
	assert.ErrorIs(t, err, errors.ErrBuiltInRole)

	_, err = svc.UpdateRole(ctx, "nobody", nil, 0)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = svc.UpdateRole(ctx, "viewer", []string{"ghost:perm"}, 0)
	assert.ErrorIs(t, err, errors.ErrValidation)

	var role model.Role
	require.NoError(t, db.Where("code = ?", "viewer").First(&role).Error)
	assert.Equal(t, int64(1), role.Version, "rejected updates leave the version untouched")
}

func TestSaveMenuSelectionKeepsOtherMenus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	updated, err := svc.SaveMenuSelection(ctx, "developer", "defects", []string{"defects:manage"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"ai-toolbox:use", "defects:manage", "weekly-report:read", "weekly-report:write"}, updated.Permissions)

	ok, err := svc.Check(ctx, "developer", "defects", "defects:read")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.Check(ctx, "developer", "defects", "defects:manage")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.SaveMenuSelection(ctx, "developer", "defects", []string{"theme:manage"}, 0)
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = svc.SaveMenuSelection(ctx, "developer", "defects", nil, 1)
	assert.ErrorIs(t, err, errors.ErrVersionConflict)
}

func TestCheckWithoutEnforcer(t *testing.T) {
	svc, db := newTestService(t)
	plain := NewService(db, catalog.NewRepository(db), nil)
	ctx := context.Background()

	ok, err := plain.Check(ctx, "viewer", "defects", "defects:read")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = plain.Check(ctx, "viewer", "defects", "defects:write")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Check(ctx, catalog.SuperAdminKey, "system", "system:super")
	require.NoError(t, err)
	assert.True(t, ok)
}

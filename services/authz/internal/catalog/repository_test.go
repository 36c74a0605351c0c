package catalog

import (
	"context"
	"testing"

	"github.com/goconsole/pkg/config"
	"github.com/goconsole/pkg/database"
	"github.com/goconsole/services/authz/internal/matrix"
	"github.com/goconsole/services/authz/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func TestSeedAndLoad(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, Seed(ctx, db, DefaultCatalog()))

	catalog, err := NewRepository(db).Load(ctx)
	require.NoError(t, err)

	want := DefaultCatalog()
	assert.Len(t, catalog.Roles, len(want.Roles))
	assert.Len(t, catalog.Permissions, len(want.Permissions))
	require.Len(t, catalog.Menus, len(want.Menus))
	for i, m := range want.Menus {
		assert.Equal(t, m.AppKey, catalog.Menus[i].AppKey)
		assert.Equal(t, m.Permissions, catalog.Menus[i].Permissions)
	}

	super, ok := catalog.FindRole(SuperAdminKey)
	require.True(t, ok)
	assert.True(t, super.BuiltIn)
	for _, m := range catalog.Menus {
		assert.Equal(t, matrix.StatusFull, matrix.ComputeCellStatus(super, m))
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, Seed(ctx, db, DefaultCatalog()))

	require.NoError(t, db.Where("role_key = ?", "viewer").Delete(&model.RolePermission{}).Error)
	require.NoError(t, Seed(ctx, db, DefaultCatalog()))

	role, err := NewRepository(db).FindRole(ctx, "viewer")
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.Empty(t, role.Permissions, "existing roles are not re-seeded")

	var count int64
	require.NoError(t, db.Model(&model.Permission{}).Count(&count).Error)
	assert.Equal(t, int64(len(DefaultCatalog().Permissions)), count)
}

func TestFindRoleAndMenu(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, Seed(ctx, db, DefaultCatalog()))
	repo := NewRepository(db)

	role, err := repo.FindRole(ctx, "developer")
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.Equal(t, []string{"ai-toolbox:use", "defects:read", "defects:write", "weekly-report:read", "weekly-report:write"}, role.Permissions)
	assert.Equal(t, int64(1), role.Version)

	menu, err := repo.FindMenu(ctx, "defects")
	require.NoError(t, err)
	require.NotNil(t, menu)
	assert.Equal(t, []string{"defects:read", "defects:write", "defects:manage"}, menu.Permissions)

	missing, err := repo.FindRole(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	missingMenu, err := repo.FindMenu(ctx, "nowhere")
	require.NoError(t, err)
	assert.Nil(t, missingMenu)
}

func TestReplaceRolePermissionsInTransaction(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, Seed(ctx, db, DefaultCatalog()))
	repo := NewRepository(db)

	count, err := repo.CountPermissions(ctx, []string{"defects:read", "theme:manage", "ghost:read"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	err = db.Transaction(func(tx *gorm.DB) error {
		return repo.WithTx(tx).ReplaceRolePermissions(ctx, "viewer", []string{"theme:manage"})
	})
	require.NoError(t, err)

	role, err := repo.FindRole(ctx, "viewer")
	require.NoError(t, err)
	assert.Equal(t, []string{"theme:manage"}, role.Permissions)

	require.NoError(t, repo.ReplaceRolePermissions(ctx, "viewer", nil))
	role, err = repo.FindRole(ctx, "viewer")
	require.NoError(t, err)
	assert.Empty(t, role.Permissions)
}

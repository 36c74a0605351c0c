// Package role 角色权限的写入与校验
package role

import (
	"context"

	"github.com/goconsole/pkg/auth"
	"github.com/goconsole/pkg/errors"
	"github.com/goconsole/pkg/logger"
	"github.com/goconsole/services/authz/internal/catalog"
	"github.com/goconsole/services/authz/internal/matrix"
	"github.com/goconsole/services/authz/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 角色权限服务，实现 editor.RoleUpdater
type Service struct {
	db     *gorm.DB
	repo   catalog.Repository
	casbin *auth.CasbinService
	log    *zap.Logger
}

// NewService 创建角色权限服务
func NewService(db *gorm.DB, repo catalog.Repository, casbin *auth.CasbinService) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		casbin: casbin,
		log:    logger.Named("authz.role"),
	}
}

// Catalog 当前目录
func (s *Service) Catalog(ctx context.Context) (matrix.Catalog, error) {
	return s.repo.Load(ctx)
}

// Role 查找角色
func (s *Service) Role(ctx context.Context, key string) (matrix.Role, error) {
	role, err := s.repo.FindRole(ctx, key)
	if err != nil {
		return matrix.Role{}, errors.Internal(err)
	}
	if role == nil {
		return matrix.Role{}, errors.NotFound("角色 " + key)
	}
	return *role, nil
}

// Menu 查找菜单
func (s *Service) Menu(ctx context.Context, appKey string) (matrix.Menu, error) {
	menu, err := s.repo.FindMenu(ctx, appKey)
	if err != nil {
		return matrix.Menu{}, errors.Internal(err)
	}
	if menu == nil {
		return matrix.Menu{}, errors.NotFound("菜单 " + appKey)
	}
	return *menu, nil
}

// UpdateRole 整体替换角色权限。expectedVersion 非 0 时与当前版本不一致返回 ErrVersionConflict
func (s *Service) UpdateRole(ctx context.Context, roleKey string, permissions []string, expectedVersion int64) (matrix.Role, error) {
	var updated matrix.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindRole(ctx, roleKey)
		if err != nil {
			return err
		}
		if current == nil {
			return errors.NotFound("角色 " + roleKey)
		}
		if current.BuiltIn {
			return errors.ErrBuiltInRole
		}
		if expectedVersion != 0 && current.Version != expectedVersion {
			return errors.ErrVersionConflict
		}

		keys := matrix.NewKeySet(permissions).Sorted()
		if err := validateKeys(ctx, repo, keys); err != nil {
			return err
		}

		res := tx.Model(&model.Role{}).
			Where("code = ? AND version = ?", roleKey, current.Version).
			Update("version", gorm.Expr("version + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.ErrVersionConflict
		}

		if err := repo.ReplaceRolePermissions(ctx, roleKey, keys); err != nil {
			return err
		}

		updated = *current
		updated.Permissions = keys
		updated.Version = current.Version + 1
		return nil
	})
	if err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			return matrix.Role{}, err
		}
		return matrix.Role{}, errors.Internal(err)
	}

	s.log.Info("角色权限已更新",
		zap.String("role", roleKey),
		zap.Int("permissions", len(updated.Permissions)),
		zap.Int64("version", updated.Version))
	s.syncRole(ctx, updated)
	return updated, nil
}

// SaveMenuSelection 用选择替换角色在某菜单下的权限，其余菜单不变
func (s *Service) SaveMenuSelection(ctx context.Context, roleKey, appKey string, selection []string, expectedVersion int64) (matrix.Role, error) {
	role, err := s.Role(ctx, roleKey)
	if err != nil {
		return matrix.Role{}, err
	}
	menu, err := s.Menu(ctx, appKey)
	if err != nil {
		return matrix.Role{}, err
	}

	merged, err := matrix.MergeMenuPermissions(role, menu, selection)
	if err != nil {
		return matrix.Role{}, err
	}
	if expectedVersion == 0 {
		expectedVersion = role.Version
	}
	return s.UpdateRole(ctx, roleKey, merged, expectedVersion)
}

// Check 校验角色是否持有菜单下的某权限
func (s *Service) Check(ctx context.Context, roleKey, appKey, permissionKey string) (bool, error) {
	if s.casbin != nil {
		return s.casbin.CheckRolePermission(roleKey, appKey, permissionKey)
	}
	role, err := s.Role(ctx, roleKey)
	if err != nil {
		return false, err
	}
	menu, err := s.Menu(ctx, appKey)
	if err != nil {
		return false, err
	}
	return matrix.NewKeySet(matrix.SelectionFor(role, menu)).Has(permissionKey), nil
}

// SyncPolicies 以数据库为准重建所有角色的策略
func (s *Service) SyncPolicies(ctx context.Context) error {
	if s.casbin == nil {
		return nil
	}
	cat, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	for _, role := range cat.Roles {
		if err := s.casbin.SetRolePermissions(role.Key, grantsOf(cat, role)); err != nil {
			return err
		}
	}
	s.log.Info("角色策略已同步", zap.Int("roles", len(cat.Roles)))
	return nil
}

// syncRole 同步单个角色的策略，失败只记录日志
func (s *Service) syncRole(ctx context.Context, role matrix.Role) {
	if s.casbin == nil {
		return
	}
	cat, err := s.repo.Load(ctx)
	if err == nil {
		err = s.casbin.SetRolePermissions(role.Key, grantsOf(cat, role))
	}
	if err != nil {
		s.log.Warn("同步角色策略失败", zap.String("role", role.Key), zap.Error(err))
	}
}

// grantsOf 角色持有的菜单内权限，未挂在任何菜单下的键不生成策略
func grantsOf(cat matrix.Catalog, role matrix.Role) []auth.Grant {
	grants := make([]auth.Grant, 0, len(role.Permissions))
	for _, key := range role.Permissions {
		if appKey, ok := cat.MenuOf(key); ok {
			grants = append(grants, auth.Grant{AppKey: appKey, PermissionKey: key})
		}
	}
	return grants
}

// validateKeys 所有键必须是已知权限
func validateKeys(ctx context.Context, repo catalog.Repository, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	count, err := repo.CountPermissions(ctx, keys)
	if err != nil {
		return err
	}
	if int(count) != len(keys) {
		return errors.Validation("包含未知的权限键")
	}
	return nil
}

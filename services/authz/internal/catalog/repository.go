// Package catalog 角色、菜单、权限目录的读取
package catalog

import (
	"context"

	"github.com/goconsole/pkg/dal"
	"github.com/goconsole/services/authz/internal/matrix"
	"github.com/goconsole/services/authz/internal/model"
	"gorm.io/gorm"
)

// Repository 目录仓储接口
type Repository interface {
	// Load 加载完整目录
	Load(ctx context.Context) (matrix.Catalog, error)
	// FindRole 查找角色，不存在时返回 nil, nil
	FindRole(ctx context.Context, key string) (*matrix.Role, error)
	// FindMenu 查找菜单，不存在时返回 nil, nil
	FindMenu(ctx context.Context, appKey string) (*matrix.Menu, error)
	// CountPermissions 统计已存在的权限键数量
	CountPermissions(ctx context.Context, keys []string) (int64, error)
	// ReplaceRolePermissions 整体替换角色持有的权限
	ReplaceRolePermissions(ctx context.Context, roleKey string, keys []string) error
	// WithTx 绑定事务
	WithTx(tx *gorm.DB) Repository
}

// repository 目录仓储实现
type repository struct {
	db        *gorm.DB
	roles     *dal.BaseRepository[model.Role]
	rolePerms *dal.BaseRepository[model.RolePermission]
	perms     *dal.BaseRepository[model.Permission]
	menus     *dal.BaseRepository[model.Menu]
	menuPerms *dal.BaseRepository[model.MenuPermission]
}

// NewRepository 创建目录仓储
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db:        db,
		roles:     dal.NewBaseRepository[model.Role](db),
		rolePerms: dal.NewBaseRepository[model.RolePermission](db),
		perms:     dal.NewBaseRepository[model.Permission](db),
		menus:     dal.NewBaseRepository[model.Menu](db),
		menuPerms: dal.NewBaseRepository[model.MenuPermission](db),
	}
}

// WithTx 绑定事务
func (r *repository) WithTx(tx *gorm.DB) Repository {
	return NewRepository(tx)
}

// Load 加载完整目录
func (r *repository) Load(ctx context.Context) (matrix.Catalog, error) {
	roles, err := r.roles.FindAll(ctx, nil, dal.WithOrder("id ASC"))
	if err != nil {
		return matrix.Catalog{}, err
	}
	rolePerms, err := r.rolePerms.FindAll(ctx, nil, dal.WithOrder("permission_key ASC"))
	if err != nil {
		return matrix.Catalog{}, err
	}
	perms, err := r.perms.FindAll(ctx, nil, dal.WithOrder("code ASC"))
	if err != nil {
		return matrix.Catalog{}, err
	}
	menus, err := r.menus.FindAll(ctx, nil, dal.WithOrder("sort ASC, id ASC"))
	if err != nil {
		return matrix.Catalog{}, err
	}
	menuPerms, err := r.menuPerms.FindAll(ctx, nil, dal.WithOrder("sort ASC, id ASC"))
	if err != nil {
		return matrix.Catalog{}, err
	}

	byRole := make(map[string][]string)
	for _, rp := range rolePerms {
		byRole[rp.RoleKey] = append(byRole[rp.RoleKey], rp.PermissionKey)
	}
	byMenu := make(map[string][]string)
	for _, mp := range menuPerms {
		byMenu[mp.AppKey] = append(byMenu[mp.AppKey], mp.PermissionKey)
	}

	catalog := matrix.Catalog{
		Roles:       make([]matrix.Role, 0, len(roles)),
		Menus:       make([]matrix.Menu, 0, len(menus)),
		Permissions: make([]matrix.Permission, 0, len(perms)),
	}
	for _, role := range roles {
		catalog.Roles = append(catalog.Roles, toRole(role, byRole[role.Key]))
	}
	for _, menu := range menus {
		catalog.Menus = append(catalog.Menus, toMenu(menu, byMenu[menu.AppKey]))
	}
	for _, p := range perms {
		catalog.Permissions = append(catalog.Permissions, matrix.Permission{
			Key:         p.Key,
			Label:       p.Label,
			Description: p.Description,
			Category:    matrix.Category(p.Category),
		})
	}
	return catalog, nil
}

// FindRole 查找角色
func (r *repository) FindRole(ctx context.Context, key string) (*matrix.Role, error) {
	role, err := r.roles.FindOne(ctx, map[string]any{"code": key})
	if err != nil || role == nil {
		return nil, err
	}

	rolePerms, err := r.rolePerms.FindAll(ctx, map[string]any{"role_key": key}, dal.WithOrder("permission_key ASC"))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(rolePerms))
	for _, rp := range rolePerms {
		keys = append(keys, rp.PermissionKey)
	}

	result := toRole(*role, keys)
	return &result, nil
}

// FindMenu 查找菜单
func (r *repository) FindMenu(ctx context.Context, appKey string) (*matrix.Menu, error) {
	menu, err := r.menus.FindOne(ctx, map[string]any{"app_key": appKey})
	if err != nil || menu == nil {
		return nil, err
	}

	menuPerms, err := r.menuPerms.FindAll(ctx, map[string]any{"app_key": appKey}, dal.WithOrder("sort ASC, id ASC"))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(menuPerms))
	for _, mp := range menuPerms {
		keys = append(keys, mp.PermissionKey)
	}

	result := toMenu(*menu, keys)
	return &result, nil
}

// CountPermissions 统计已存在的权限键数量
func (r *repository) CountPermissions(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return r.perms.Count(ctx, dal.WithWhere("code IN ?", keys))
}

// ReplaceRolePermissions 整体替换角色持有的权限
func (r *repository) ReplaceRolePermissions(ctx context.Context, roleKey string, keys []string) error {
	if err := r.rolePerms.DeleteWhere(ctx, map[string]any{"role_key": roleKey}); err != nil {
		return err
	}
	links := make([]model.RolePermission, 0, len(keys))
	for _, k := range keys {
		links = append(links, model.RolePermission{RoleKey: roleKey, PermissionKey: k})
	}
	return r.rolePerms.CreateBatch(ctx, links)
}

// toRole 模型转换
func toRole(role model.Role, perms []string) matrix.Role {
	if perms == nil {
		perms = []string{}
	}
	return matrix.Role{
		Key:         role.Key,
		Name:        role.Name,
		Permissions: perms,
		BuiltIn:     role.BuiltIn,
		Version:     role.Version,
	}
}

// toMenu 模型转换
func toMenu(menu model.Menu, perms []string) matrix.Menu {
	if perms == nil {
		perms = []string{}
	}
	return matrix.Menu{
		AppKey:      menu.AppKey,
		Label:       menu.Label,
		Icon:        menu.Icon,
		Permissions: perms,
	}
}

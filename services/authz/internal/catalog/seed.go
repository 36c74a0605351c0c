package catalog

import (
	"context"
	"fmt"

	"github.com/goconsole/services/authz/internal/matrix"
	"github.com/goconsole/services/authz/internal/model"
	"gorm.io/gorm"
)

// SuperAdminKey 内置超级管理员
const SuperAdminKey = "super_admin"

// DefaultCatalog 控制台默认目录
func DefaultCatalog() matrix.Catalog {
	permissions := []matrix.Permission{
		{Key: "authz:access", Label: "访问权限管理", Category: matrix.CategoryAccess},
		{Key: "authz:manage", Label: "编辑角色权限", Category: matrix.CategoryManage},
		{Key: "ai-toolbox:use", Label: "使用AI工具", Category: matrix.CategoryUse},
		{Key: "ai-toolbox:manage", Label: "配置AI工具箱", Category: matrix.CategoryManage},
		{Key: "defects:read", Label: "查看缺陷", Category: matrix.CategoryRead},
		{Key: "defects:write", Label: "提交与处理缺陷", Category: matrix.CategoryWrite},
		{Key: "defects:manage", Label: "管理缺陷流程", Category: matrix.CategoryManage},
		{Key: "weekly-report:read", Label: "查看周报", Category: matrix.CategoryRead},
		{Key: "weekly-report:write", Label: "填写周报", Category: matrix.CategoryWrite},
		{Key: "theme:manage", Label: "管理主题", Category: matrix.CategoryManage},
		{Key: "system:super", Label: "系统超级权限", Description: "绕过所有菜单级校验", Category: matrix.CategorySuper},
	}

	menus := []matrix.Menu{
		{AppKey: "authz", Label: "权限管理", Icon: "shield", Permissions: []string{"authz:access", "authz:manage"}},
		{AppKey: "ai-toolbox", Label: "AI 工具箱", Icon: "robot", Permissions: []string{"ai-toolbox:use", "ai-toolbox:manage"}},
		{AppKey: "defects", Label: "缺陷跟踪", Icon: "bug", Permissions: []string{"defects:read", "defects:write", "defects:manage"}},
		{AppKey: "weekly-report", Label: "周报", Icon: "calendar", Permissions: []string{"weekly-report:read", "weekly-report:write"}},
		{AppKey: "theme", Label: "主题设置", Icon: "palette", Permissions: []string{"theme:manage"}},
		{AppKey: "system", Label: "系统", Icon: "settings", Permissions: []string{"system:super"}},
	}

	all := make([]string, 0, len(permissions))
	for _, p := range permissions {
		all = append(all, p.Key)
	}

	roles := []matrix.Role{
		{Key: SuperAdminKey, Name: "超级管理员", BuiltIn: true, Permissions: all},
		{Key: "admin", Name: "管理员", Permissions: []string{
			"ai-toolbox:manage", "ai-toolbox:use", "authz:access", "authz:manage",
			"defects:manage", "defects:read", "defects:write", "theme:manage",
			"weekly-report:read", "weekly-report:write",
		}},
		{Key: "developer", Name: "开发", Permissions: []string{
			"ai-toolbox:use", "defects:read", "defects:write", "weekly-report:read", "weekly-report:write",
		}},
		{Key: "viewer", Name: "访客", Permissions: []string{"defects:read", "weekly-report:read"}},
	}

	return matrix.Catalog{Roles: roles, Menus: menus, Permissions: permissions}
}

// Seed 写入目录，已存在的记录保持不变
func Seed(ctx context.Context, db *gorm.DB, catalog matrix.Catalog) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range catalog.Permissions {
			perm := model.Permission{Key: p.Key, Label: p.Label, Description: p.Description, Category: string(p.Category)}
			if err := tx.Where(model.Permission{Key: p.Key}).FirstOrCreate(&perm).Error; err != nil {
				return fmt.Errorf("seed permission %s: %w", p.Key, err)
			}
		}

		for i, m := range catalog.Menus {
			menu := model.Menu{AppKey: m.AppKey, Label: m.Label, Icon: m.Icon, Sort: i}
			if err := tx.Where(model.Menu{AppKey: m.AppKey}).FirstOrCreate(&menu).Error; err != nil {
				return fmt.Errorf("seed menu %s: %w", m.AppKey, err)
			}
			for j, key := range m.Permissions {
				link := model.MenuPermission{AppKey: m.AppKey, PermissionKey: key, Sort: j}
				if err := tx.Where(model.MenuPermission{PermissionKey: key}).FirstOrCreate(&link).Error; err != nil {
					return fmt.Errorf("seed menu permission %s: %w", key, err)
				}
			}
		}

		for _, r := range catalog.Roles {
			var count int64
			if err := tx.Model(&model.Role{}).Where("code = ?", r.Key).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			role := model.Role{Key: r.Key, Name: r.Name, BuiltIn: r.BuiltIn, Version: 1}
			if err := tx.Create(&role).Error; err != nil {
				return fmt.Errorf("seed role %s: %w", r.Key, err)
			}
			links := make([]model.RolePermission, 0, len(r.Permissions))
			for _, key := range matrix.NewKeySet(r.Permissions).Sorted() {
				links = append(links, model.RolePermission{RoleKey: r.Key, PermissionKey: key})
			}
			if len(links) > 0 {
				if err := tx.Create(&links).Error; err != nil {
					return fmt.Errorf("seed role permissions %s: %w", r.Key, err)
				}
			}
		}
		return nil
	})
}

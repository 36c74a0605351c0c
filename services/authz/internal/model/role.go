package model

import (
	"github.com/goconsole/pkg/dal"
)

// Role 角色模型
type Role struct {
	dal.Model
	Key         string `gorm:"column:code;size:64;uniqueIndex;not null" json:"key"`
	Name        string `gorm:"size:64;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
	BuiltIn     bool   `gorm:"default:false" json:"isBuiltIn"`
	Version     int64  `gorm:"default:1;not null" json:"version"` // 乐观锁版本号
}

// TableName 表名
func (Role) TableName() string {
	return "sys_role"
}

// RolePermission 角色权限关联
type RolePermission struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleKey       string `gorm:"size:64;index:idx_role_perm;not null" json:"roleKey"`
	PermissionKey string `gorm:"size:100;index:idx_role_perm;not null" json:"permissionKey"`
}

// TableName 表名
func (RolePermission) TableName() string {
	return "sys_role_permission"
}

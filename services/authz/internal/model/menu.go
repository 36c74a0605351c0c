package model

import (
	"github.com/goconsole/pkg/dal"
)

// Menu 菜单模型
type Menu struct {
	dal.Model
	AppKey string `gorm:"size:64;uniqueIndex;not null" json:"appKey"`
	Label  string `gorm:"size:64;not null" json:"label"`
	Icon   string `gorm:"size:64" json:"icon"`
	Sort   int    `gorm:"default:0" json:"sort"`
}

// TableName 表名
func (Menu) TableName() string {
	return "sys_menu"
}

// MenuPermission 菜单权限关联，一个权限只属于一个菜单
type MenuPermission struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	AppKey        string `gorm:"size:64;index;not null" json:"appKey"`
	PermissionKey string `gorm:"size:100;uniqueIndex;not null" json:"permissionKey"`
	Sort          int    `gorm:"default:0" json:"sort"`
}

// TableName 表名
func (MenuPermission) TableName() string {
	return "sys_menu_permission"
}

// All 需要迁移的模型
func All() []interface{} {
	return []interface{}{
		&Role{},
		&RolePermission{},
		&Permission{},
		&Menu{},
		&MenuPermission{},
	}
}

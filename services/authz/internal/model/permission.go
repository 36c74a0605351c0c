package model

import (
	"github.com/goconsole/pkg/dal"
)

// Permission 权限模型
type Permission struct {
	dal.Model
	Key         string `gorm:"column:code;size:100;uniqueIndex;not null" json:"key"`
	Label       string `gorm:"size:64;not null" json:"label"`
	Description string `gorm:"size:255" json:"description"`
	Category    string `gorm:"size:16;not null" json:"category"` // access/read/write/manage/use/super
}

// TableName 表名
func (Permission) TableName() string {
	return "sys_permission"
}

// Package matrix 权限矩阵：角色 × 菜单的授权状态计算与菜单范围内的权限合并
package matrix

import (
	"sort"

	"github.com/goconsole/pkg/errors"
)

// CellStatus 单元格状态
type CellStatus string

const (
	StatusFull    CellStatus = "full"
	StatusPartial CellStatus = "partial"
	StatusNone    CellStatus = "none"
)

// Category 权限类别，仅用于展示分组
type Category string

const (
	CategoryAccess Category = "access"
	CategoryRead   Category = "read"
	CategoryWrite  Category = "write"
	CategoryManage Category = "manage"
	CategoryUse    Category = "use"
	CategorySuper  Category = "super"
)

// Valid 是否为已知类别
func (c Category) Valid() bool {
	switch c {
	case CategoryAccess, CategoryRead, CategoryWrite, CategoryManage, CategoryUse, CategorySuper:
		return true
	}
	return false
}

// Role 角色
type Role struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	BuiltIn     bool     `json:"isBuiltIn"`
	Version     int64    `json:"version"`
}

// Permission 权限
type Permission struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Category    Category `json:"category"`
}

// Menu 菜单及其权限键
type Menu struct {
	AppKey      string   `json:"appKey"`
	Label       string   `json:"label"`
	Icon        string   `json:"icon"`
	Permissions []string `json:"permissions"`
}

// Catalog 只读目录
type Catalog struct {
	Roles       []Role       `json:"roles"`
	Menus       []Menu       `json:"menus"`
	Permissions []Permission `json:"permissions"`
}

// KeySet 权限键集合
type KeySet map[string]struct{}

// NewKeySet 从列表构建集合，重复项无意义
func NewKeySet(keys []string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has 是否包含
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Equal 集合相等
func (s KeySet) Equal(other KeySet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

// Sorted 字典序排列的键
func (s KeySet) Sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ComputeCellStatus 计算角色在菜单上的授权状态
func ComputeCellStatus(role Role, menu Menu) CellStatus {
	menuKeys := NewKeySet(menu.Permissions)
	if len(menuKeys) == 0 {
		return StatusNone
	}

	held := NewKeySet(role.Permissions)
	count := 0
	for k := range menuKeys {
		if held.Has(k) {
			count++
		}
	}

	switch count {
	case 0:
		return StatusNone
	case len(menuKeys):
		return StatusFull
	default:
		return StatusPartial
	}
}

// SelectionFor 角色在该菜单下已持有的权限，作为编辑的初始选择
func SelectionFor(role Role, menu Menu) []string {
	held := NewKeySet(role.Permissions)
	selection := make(KeySet)
	for _, k := range menu.Permissions {
		if held.Has(k) {
			selection[k] = struct{}{}
		}
	}
	return selection.Sorted()
}

// MergeMenuPermissions 只替换该菜单范围内的权限，其他菜单的权限保持不变。
// 内置角色返回原列表及 ErrBuiltInRole；选择中包含菜单外的键时返回验证错误。
func MergeMenuPermissions(role Role, menu Menu, selection []string) ([]string, error) {
	if role.BuiltIn {
		return append([]string(nil), role.Permissions...), errors.ErrBuiltInRole
	}

	menuKeys := NewKeySet(menu.Permissions)
	for _, k := range selection {
		if !menuKeys.Has(k) {
			return append([]string(nil), role.Permissions...),
				errors.Validation("权限 " + k + " 不属于菜单 " + menu.AppKey)
		}
	}

	merged := NewKeySet(role.Permissions)
	for k := range menuKeys {
		delete(merged, k)
	}
	for _, k := range selection {
		merged[k] = struct{}{}
	}
	return merged.Sorted(), nil
}

// ToggleSelection 切换选择中的某个键，内置角色时不做任何修改
func ToggleSelection(selection []string, key string, builtIn bool) []string {
	set := NewKeySet(selection)
	if builtIn {
		return set.Sorted()
	}
	if set.Has(key) {
		delete(set, key)
	} else {
		set[key] = struct{}{}
	}
	return set.Sorted()
}

// HasChanges 选择与基线是否不同（集合比较）
func HasChanges(selection, baseline []string) bool {
	return !NewKeySet(selection).Equal(NewKeySet(baseline))
}

// Row 矩阵中的一行
type Row struct {
	RoleKey string                `json:"roleKey"`
	Name    string                `json:"name"`
	BuiltIn bool                  `json:"isBuiltIn"`
	Cells   map[string]CellStatus `json:"cells"`
}

// BuildMatrix 计算所有角色在所有菜单上的状态
func BuildMatrix(catalog Catalog) []Row {
	rows := make([]Row, 0, len(catalog.Roles))
	for _, role := range catalog.Roles {
		cells := make(map[string]CellStatus, len(catalog.Menus))
		for _, menu := range catalog.Menus {
			cells[menu.AppKey] = ComputeCellStatus(role, menu)
		}
		rows = append(rows, Row{
			RoleKey: role.Key,
			Name:    role.Name,
			BuiltIn: role.BuiltIn,
			Cells:   cells,
		})
	}
	return rows
}

// FindMenu 按 appKey 查找菜单
func (c Catalog) FindMenu(appKey string) (Menu, bool) {
	for _, m := range c.Menus {
		if m.AppKey == appKey {
			return m, true
		}
	}
	return Menu{}, false
}

// FindRole 按 key 查找角色
func (c Catalog) FindRole(key string) (Role, bool) {
	for _, r := range c.Roles {
		if r.Key == key {
			return r, true
		}
	}
	return Role{}, false
}

// MenuOf 权限键所属菜单
func (c Catalog) MenuOf(permissionKey string) (string, bool) {
	for _, m := range c.Menus {
		for _, k := range m.Permissions {
			if k == permissionKey {
				return m.AppKey, true
			}
		}
	}
	return "", false
}

package role

// UpdateRequest 整体替换角色权限
type UpdateRequest struct {
	Permissions []string `json:"permissions"`
	Version     int64    `json:"version"` // 0 表示不校验版本
}

// MenuSelectionRequest 替换角色在某菜单下的权限
type MenuSelectionRequest struct {
	Permissions []string `json:"permissions"`
	Version     int64    `json:"version"`
}

// OpenSessionRequest 打开单元格
type OpenSessionRequest struct {
	RoleKey string `json:"roleKey"`
	AppKey  string `json:"appKey"`
}

// ToggleRequest 切换权限
type ToggleRequest struct {
	Key string `json:"key"`
}

// CheckResponse 权限校验结果
type CheckResponse struct {
	RoleKey       string `json:"roleKey"`
	AppKey        string `json:"appKey"`
	PermissionKey string `json:"permissionKey"`
	Allowed       bool   `json:"allowed"`
}

// CellView 单元格详情
type CellView struct {
	RoleKey   string   `json:"roleKey"`
	AppKey    string   `json:"appKey"`
	Status    string   `json:"status"`
	Selection []string `json:"selection"`
}

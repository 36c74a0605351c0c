package auth

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/goconsole/pkg/config"
	"gorm.io/gorm"
)

// DefaultModel 内置模型：角色对菜单下的权限键授权
const DefaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// NewEnforcer 创建Enforcer，db 为 nil 时策略只保存在内存
func NewEnforcer(db *gorm.DB, cfg *config.CasbinConfig) (*casbin.Enforcer, error) {
	var (
		m   model.Model
		err error
	)
	if cfg != nil && cfg.ModelPath != "" {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(DefaultModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	if db == nil {
		return casbin.NewEnforcer(m)
	}

	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load casbin policy: %w", err)
	}
	return enforcer, nil
}

// Grant 一条授权：菜单 + 权限键
type Grant struct {
	AppKey        string `json:"appKey"`
	PermissionKey string `json:"permissionKey"`
}

// CasbinService Casbin服务
type CasbinService struct {
	mu       sync.Mutex
	enforcer *casbin.Enforcer
}

// NewCasbinService 创建Casbin服务
func NewCasbinService(enforcer *casbin.Enforcer) *CasbinService {
	return &CasbinService{enforcer: enforcer}
}

// roleSubject 角色主体
func roleSubject(roleKey string) string {
	return fmt.Sprintf("role:%s", roleKey)
}

// SetRolePermissions 用授权列表整体替换角色的策略
func (s *CasbinService) SetRolePermissions(roleKey string, grants []Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	role := roleSubject(roleKey)
	if _, err := s.enforcer.DeletePermissionsForUser(role); err != nil {
		return fmt.Errorf("delete policies for %s: %w", role, err)
	}
	if len(grants) == 0 {
		return nil
	}

	rules := make([][]string, 0, len(grants))
	for _, g := range grants {
		rules = append(rules, []string{role, g.AppKey, g.PermissionKey})
	}
	if _, err := s.enforcer.AddPolicies(rules); err != nil {
		return fmt.Errorf("add policies for %s: %w", role, err)
	}
	return nil
}

// CheckRolePermission 检查角色权限
func (s *CasbinService) CheckRolePermission(roleKey, appKey, permissionKey string) (bool, error) {
	return s.enforcer.Enforce(roleSubject(roleKey), appKey, permissionKey)
}

// GetRoleGrants 获取角色当前的授权
func (s *CasbinService) GetRoleGrants(roleKey string) ([]Grant, error) {
	policies, err := s.enforcer.GetFilteredPolicy(0, roleSubject(roleKey))
	if err != nil {
		return nil, err
	}
	grants := make([]Grant, 0, len(policies))
	for _, p := range policies {
		if len(p) >= 3 {
			grants = append(grants, Grant{AppKey: p[1], PermissionKey: p[2]})
		}
	}
	return grants, nil
}

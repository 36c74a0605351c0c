package role

import (
	"github.com/goconsole/pkg/errors"
	"github.com/goconsole/pkg/response"
	"github.com/goconsole/pkg/router"
	"github.com/goconsole/services/authz/internal/editor"
	"github.com/goconsole/services/authz/internal/matrix"
	"github.com/gofiber/fiber/v2"
)

// Controller 权限矩阵控制器
type Controller struct {
	svc      *Service
	sessions *editor.Manager
}

// NewController 创建权限矩阵控制器
func NewController(svc *Service, sessions *editor.Manager) *Controller {
	return &Controller{svc: svc, sessions: sessions}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string {
	return "/authz"
}

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "/matrix", Handler: c.Matrix},
		{Method: fiber.MethodGet, Path: "/roles", Handler: c.ListRoles},
		{Method: fiber.MethodGet, Path: "/roles/:key", Handler: c.GetRole},
		{Method: fiber.MethodPut, Path: "/roles/:key", Handler: c.UpdateRole},
		{Method: fiber.MethodGet, Path: "/roles/:key/menus/:appKey", Handler: c.GetCell},
		{Method: fiber.MethodPut, Path: "/roles/:key/menus/:appKey", Handler: c.SaveCell},
		{Method: fiber.MethodGet, Path: "/roles/:key/check", Handler: c.Check},
		{Method: fiber.MethodGet, Path: "/menus", Handler: c.ListMenus},
		{Method: fiber.MethodGet, Path: "/permissions", Handler: c.ListPermissions},
		{Method: fiber.MethodPost, Path: "/sessions", Handler: c.CreateSession},
		{Method: fiber.MethodGet, Path: "/sessions/:id", Handler: c.GetSession},
		{Method: fiber.MethodPost, Path: "/sessions/:id/open", Handler: c.OpenSession},
		{Method: fiber.MethodPost, Path: "/sessions/:id/toggle", Handler: c.ToggleSession},
		{Method: fiber.MethodPost, Path: "/sessions/:id/save", Handler: c.SaveSession},
		{Method: fiber.MethodPost, Path: "/sessions/:id/close", Handler: c.CloseSession},
		{Method: fiber.MethodDelete, Path: "/sessions/:id", Handler: c.DeleteSession},
	}
}

// Matrix 角色 × 菜单 状态矩阵
// @Summary 获取权限矩阵
// @Tags 权限矩阵
// @Success 200 {object} response.Response
// @Router /authz/matrix [get]
func (c *Controller) Matrix(ctx *fiber.Ctx) error {
	cat, err := c.svc.Catalog(ctx.UserContext())
	if err != nil {
		return response.Fail(ctx, errors.Internal(err))
	}
	return response.Success(ctx, fiber.Map{
		"menus": cat.Menus,
		"rows":  matrix.BuildMatrix(cat),
	})
}

// ListRoles 角色列表
func (c *Controller) ListRoles(ctx *fiber.Ctx) error {
	cat, err := c.svc.Catalog(ctx.UserContext())
	if err != nil {
		return response.Fail(ctx, errors.Internal(err))
	}
	return response.Success(ctx, cat.Roles)
}

// GetRole 角色详情
func (c *Controller) GetRole(ctx *fiber.Ctx) error {
	role, err := c.svc.Role(ctx.UserContext(), ctx.Params("key"))
	if err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, role)
}

// UpdateRole 整体替换角色权限
// @Summary 替换角色权限
// @Tags 权限矩阵
// @Accept json
// @Param key path string true "角色键"
// @Param request body UpdateRequest true "权限列表"
// @Success 200 {object} response.Response
// @Router /authz/roles/{key} [put]
func (c *Controller) UpdateRole(ctx *fiber.Ctx) error {
	var req UpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}

	role, err := c.svc.UpdateRole(ctx.UserContext(), ctx.Params("key"), req.Permissions, req.Version)
	if err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, role)
}

// GetCell 单元格详情
func (c *Controller) GetCell(ctx *fiber.Ctx) error {
	role, err := c.svc.Role(ctx.UserContext(), ctx.Params("key"))
	if err != nil {
		return response.Fail(ctx, err)
	}
	menu, err := c.svc.Menu(ctx.UserContext(), ctx.Params("appKey"))
	if err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, CellView{
		RoleKey:   role.Key,
		AppKey:    menu.AppKey,
		Status:    string(matrix.ComputeCellStatus(role, menu)),
		Selection: matrix.SelectionFor(role, menu),
	})
}

// SaveCell 替换角色在菜单下的权限
// @Summary 保存单元格
// @Tags 权限矩阵
// @Accept json
// @Param key path string true "角色键"
// @Param appKey path string true "菜单键"
// @Param request body MenuSelectionRequest true "菜单内选择"
// @Success 200 {object} response.Response
// @Router /authz/roles/{key}/menus/{appKey} [put]
func (c *Controller) SaveCell(ctx *fiber.Ctx) error {
	var req MenuSelectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}

	role, err := c.svc.SaveMenuSelection(ctx.UserContext(), ctx.Params("key"), ctx.Params("appKey"), req.Permissions, req.Version)
	if err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, role)
}

// Check 权限校验
func (c *Controller) Check(ctx *fiber.Ctx) error {
	roleKey := ctx.Params("key")
	appKey := ctx.Query("menu")
	perm := ctx.Query("perm")
	if appKey == "" || perm == "" {
		return response.BadRequest(ctx, "menu 和 perm 参数不能为空")
	}

	allowed, err := c.svc.Check(ctx.UserContext(), roleKey, appKey, perm)
	if err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, CheckResponse{
		RoleKey:       roleKey,
		AppKey:        appKey,
		PermissionKey: perm,
		Allowed:       allowed,
	})
}

// ListMenus 菜单列表
func (c *Controller) ListMenus(ctx *fiber.Ctx) error {
	cat, err := c.svc.Catalog(ctx.UserContext())
	if err != nil {
		return response.Fail(ctx, errors.Internal(err))
	}
	return response.Success(ctx, cat.Menus)
}

// ListPermissions 权限列表
func (c *Controller) ListPermissions(ctx *fiber.Ctx) error {
	cat, err := c.svc.Catalog(ctx.UserContext())
	if err != nil {
		return response.Fail(ctx, errors.Internal(err))
	}
	return response.Success(ctx, cat.Permissions)
}

// CreateSession 新建编辑会话
func (c *Controller) CreateSession(ctx *fiber.Ctx) error {
	s := c.sessions.Create()
	return response.Success(ctx, s.View())
}

// GetSession 会话详情
func (c *Controller) GetSession(ctx *fiber.Ctx) error {
	s, err := c.sessions.Get(ctx.Params("id"))
	if err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, s.View())
}

// OpenSession 在会话中打开单元格
// @Summary 打开单元格
// @Tags 编辑会话
// @Accept json
// @Param id path string true "会话ID"
// @Param request body OpenSessionRequest true "角色与菜单"
// @Success 200 {object} response.Response
// @Router /authz/sessions/{id}/open [post]
func (c *Controller) OpenSession(ctx *fiber.Ctx) error {
	var req OpenSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}

	s, err := c.sessions.Get(ctx.Params("id"))
	if err != nil {
		return response.Fail(ctx, err)
	}
	role, err := c.svc.Role(ctx.UserContext(), req.RoleKey)
	if err != nil {
		return response.Fail(ctx, err)
	}
	menu, err := c.svc.Menu(ctx.UserContext(), req.AppKey)
	if err != nil {
		return response.Fail(ctx, err)
	}
	if err := s.Open(role, menu); err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, s.View())
}

// ToggleSession 切换权限
func (c *Controller) ToggleSession(ctx *fiber.Ctx) error {
	var req ToggleRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}

	s, err := c.sessions.Get(ctx.Params("id"))
	if err != nil {
		return response.Fail(ctx, err)
	}
	if err := s.Toggle(req.Key); err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, s.View())
}

// SaveSession 保存会话中的选择
func (c *Controller) SaveSession(ctx *fiber.Ctx) error {
	s, err := c.sessions.Get(ctx.Params("id"))
	if err != nil {
		return response.Fail(ctx, err)
	}
	role, err := s.Save(ctx.UserContext())
	if err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, fiber.Map{
		"session": s.View(),
		"role":    role,
	})
}

// CloseSession 关闭单元格
func (c *Controller) CloseSession(ctx *fiber.Ctx) error {
	s, err := c.sessions.Get(ctx.Params("id"))
	if err != nil {
		return response.Fail(ctx, err)
	}
	if err := s.Close(); err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, s.View())
}

// DeleteSession 删除会话
func (c *Controller) DeleteSession(ctx *fiber.Ctx) error {
	if err := c.sessions.Remove(ctx.Params("id")); err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, nil)
}

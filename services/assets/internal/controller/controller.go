// Package controller 远程资源缓存的 HTTP 接口
package controller

import (
	"time"

	"github.com/goconsole/pkg/errors"
	"github.com/goconsole/pkg/response"
	"github.com/goconsole/pkg/router"
	"github.com/goconsole/services/assets/internal/asset"
	"github.com/goconsole/services/assets/internal/reconcile"
	"github.com/goconsole/services/assets/internal/state"
	"github.com/gofiber/fiber/v2"
)

// Controller 资源控制器
type Controller struct {
	store      *state.Store
	reconciler *reconcile.Reconciler
	now        func() time.Time
}

// NewController 创建资源控制器
func NewController(store *state.Store, reconciler *reconcile.Reconciler) *Controller {
	return &Controller{store: store, reconciler: reconciler, now: time.Now}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string {
	return "/assets"
}

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "", Handler: c.List},
		{Method: fiber.MethodGet, Path: "/state", Handler: c.State},
		{Method: fiber.MethodGet, Path: "/skins", Handler: c.Skins},
		{Method: fiber.MethodPut, Path: "/skin", Handler: c.SetSkin},
		{Method: fiber.MethodPost, Path: "/skins/refresh", Handler: c.RefreshSkins},
		{Method: fiber.MethodPost, Path: "/reconcile", Handler: c.Reconcile},
		{Method: fiber.MethodPost, Path: "/reset", Handler: c.Reset},
		{Method: fiber.MethodGet, Path: "/:id/url", Handler: c.URL},
		{Method: fiber.MethodPost, Path: "/:id/unavailable", Handler: c.MarkUnavailable},
	}
}

// List 资源列表
// @Summary 获取资源列表
// @Tags 远程资源
// @Success 200 {object} response.Response
// @Router /assets [get]
func (c *Controller) List(ctx *fiber.Ctx) error {
	specs := c.store.Catalog().Specs()
	views := make([]AssetView, 0, len(specs))
	for _, spec := range specs {
		u, err := c.store.ResolveURL(spec.ID)
		if err != nil {
			return response.Fail(ctx, err)
		}
		views = append(views, AssetView{ID: spec.ID, Kind: spec.Kind, Path: spec.Path, URL: u})
	}
	return response.Success(ctx, views)
}

// URL 资源地址，未指定变体时按当前皮肤解析
// @Summary 获取资源地址
// @Tags 远程资源
// @Param id path string true "资源ID"
// @Param variant query string false "变体，base 或 skin:<name>"
// @Success 200 {object} response.Response
// @Router /assets/{id}/url [get]
func (c *Controller) URL(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	raw := ctx.Query("variant")
	if raw == "" {
		u, err := c.store.ResolveURL(id)
		if err != nil {
			return response.Fail(ctx, err)
		}
		return response.Success(ctx, fiber.Map{"id": id, "url": u})
	}

	variant, ok := asset.ParseVariant(raw)
	if !ok {
		return response.BadRequest(ctx, "无效的变体: "+raw)
	}
	u, err := c.store.BuildAssetURL(id, variant)
	if err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, fiber.Map{"id": id, "variant": variant, "url": u})
}

// MarkUnavailable 上报皮肤变体加载失败
func (c *Controller) MarkUnavailable(ctx *fiber.Ctx) error {
	var req SkinRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}

	id := ctx.Params("id")
	if !c.store.Catalog().Has(id) {
		return response.Fail(ctx, errors.NotFound("资源 "+id))
	}
	if !c.store.MarkSkinVariantUnavailable(id, req.Skin, c.now().UnixMilli()) {
		return response.BadRequest(ctx, "皮肤不能为空")
	}
	u, err := c.store.ResolveURL(id)
	if err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, fiber.Map{"id": id, "url": u})
}

// Skins 当前皮肤与已知皮肤列表
func (c *Controller) Skins(ctx *fiber.Ctx) error {
	return response.Success(ctx, SkinsView{Current: c.store.Skin(), Skins: c.store.Skins()})
}

// SetSkin 切换皮肤
func (c *Controller) SetSkin(ctx *fiber.Ctx) error {
	var req SkinRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.BadRequest(ctx, err.Error())
	}
	c.store.SetSkin(req.Skin)
	return response.Success(ctx, SkinsView{Current: c.store.Skin(), Skins: c.store.Skins()})
}

// RefreshSkins 重新拉取远程皮肤列表
func (c *Controller) RefreshSkins(ctx *fiber.Ctx) error {
	skins, err := c.reconciler.RefreshSkins(ctx.UserContext())
	if err != nil {
		return response.Fail(ctx, errors.Wrap(err, fiber.StatusBadGateway, "拉取皮肤列表失败"))
	}
	return response.Success(ctx, SkinsView{Current: c.store.Skin(), Skins: skins})
}

// Reconcile 执行一轮冷启动校验，节流窗口内的变体会被跳过
// @Summary 冷启动校验
// @Tags 远程资源
// @Success 200 {object} response.Response
// @Router /assets/reconcile [post]
func (c *Controller) Reconcile(ctx *fiber.Ctx) error {
	return response.Success(ctx, c.reconciler.ReconcileOnColdStart(ctx.UserContext(), c.now()))
}

// Reset 清空缓存并重新校验
func (c *Controller) Reset(ctx *fiber.Ctx) error {
	return response.Success(ctx, c.reconciler.ResetCacheAndRefresh(ctx.UserContext(), c.now()))
}

// State 当前状态快照
func (c *Controller) State(ctx *fiber.Ctx) error {
	return response.Success(ctx, c.store.Snapshot())
}

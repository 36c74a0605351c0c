package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goconsole/pkg/broadcast"
	"github.com/goconsole/pkg/config"
	"github.com/goconsole/pkg/database"
	"github.com/goconsole/pkg/kv"
	"github.com/goconsole/pkg/lifecycle"
	"github.com/goconsole/pkg/logger"
	"github.com/goconsole/pkg/middleware"
	"github.com/goconsole/pkg/router"
	"github.com/goconsole/services/assets/internal/asset"
	"github.com/goconsole/services/assets/internal/controller"
	"github.com/goconsole/services/assets/internal/reconcile"
	"github.com/goconsole/services/assets/internal/remote"
	"github.com/goconsole/services/assets/internal/state"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const serviceName = "assets-service"

func main() {
	// 加载配置
	if err := config.Init(os.Getenv("CONFIG_PATH")); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 初始化Redis
	rdb, err := database.OpenRedis(&cfg.Redis)
	if err != nil {
		logger.Fatal("初始化Redis失败", zap.Error(err))
	}

	store := state.NewStore(asset.DefaultCatalog(), cfg.Assets.BaseURL)
	persister := state.NewPersister(kv.NewRedisStore(rdb.Client, cfg.App.Name), cfg.Assets.StateKey)

	loadCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if persister.Load(loadCtx, store) {
		logger.Info("已恢复资源缓存状态", zap.String("baseUrl", store.BaseURL()), zap.String("skin", store.Skin()))
	}
	cancel()
	// 配置中的基础地址优先于持久化的值
	if cfg.Assets.BaseURL != "" {
		store.SetBaseURL(cfg.Assets.BaseURL)
	}
	detach := persister.Attach(store)

	client := remote.NewClient(cfg.Assets.SkinListPath)
	reconciler := reconcile.New(store, client, client, reconcile.Options{
		MinCheckInterval: cfg.Assets.MinCheckInterval(),
		ProbeTimeout:     cfg.Assets.ProbeTimeout(),
		Concurrency:      cfg.Assets.ProbeConcurrency,
	})

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ErrorHandler:          middleware.ErrorHandler,
		ReadTimeout:           time.Duration(cfg.Server.HTTP.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.HTTP.WriteTimeout) * time.Second,
		DisableStartupMessage: !config.IsDev(),
	})
	app.Use(middleware.Recovery())
	app.Use(middleware.RequestID())
	app.Use(middleware.Cors())
	app.Use(middleware.AccessLog("/health"))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": serviceName,
			"time":    time.Now().Format(time.RFC3339),
		})
	})
	router.Register(app, controller.NewController(store, reconciler))

	bus := broadcast.New()
	lifecycle.Watch(bus, func(msg lifecycle.Message) {
		logger.Debug("生命周期事件", zap.String("service", msg.Service), zap.String("event", string(msg.Event)))
	})

	bg, stopBackground := context.WithCancel(context.Background())
	err = lifecycle.NewBuilder(serviceName).
		WithAddress(cfg.Server.HTTP.Addr()).
		WithBus(bus).
		WithApp(app).
		OnReady(func(context.Context) error {
			if !cfg.Assets.ColdStartOnBoot {
				return nil
			}
			// 冷启动校验在后台进行，不阻塞服务
			go func() {
				if _, err := reconciler.RefreshSkins(bg); err != nil {
					logger.Warn("拉取皮肤列表失败", zap.Error(err))
				}
				reconciler.ReconcileOnColdStart(bg, time.Now())
			}()
			return nil
		}).
		OnStop(func(context.Context) error {
			stopBackground()
			detach()
			return rdb.Close()
		}).
		Run(context.Background())
	if err != nil {
		logger.Fatal("服务运行失败", zap.Error(err))
	}
}

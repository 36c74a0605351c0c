package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goconsole/pkg/auth"
	"github.com/goconsole/pkg/broadcast"
	"github.com/goconsole/pkg/config"
	"github.com/goconsole/pkg/database"
	"github.com/goconsole/pkg/lifecycle"
	"github.com/goconsole/pkg/logger"
	"github.com/goconsole/pkg/middleware"
	"github.com/goconsole/pkg/router"
	"github.com/goconsole/services/authz/internal/catalog"
	"github.com/goconsole/services/authz/internal/editor"
	"github.com/goconsole/services/authz/internal/model"
	"github.com/goconsole/services/authz/internal/role"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const serviceName = "authz-service"

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

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}

	enforcer, err := auth.NewEnforcer(db, &cfg.Casbin)
	if err != nil {
		logger.Fatal("初始化Casbin失败", zap.Error(err))
	}

	repo := catalog.NewRepository(db)
	svc := role.NewService(db, repo, auth.NewCasbinService(enforcer))
	sessions := editor.NewManager(svc, cfg.Authz.ReadOnly)

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
	app.Use(middleware.ReadOnly(cfg.Authz.ReadOnly))
	router.Register(app, role.NewController(svc, sessions))

	bus := broadcast.New()
	lifecycle.Watch(bus, func(msg lifecycle.Message) {
		logger.Debug("生命周期事件", zap.String("service", msg.Service), zap.String("event", string(msg.Event)))
	})

	err = lifecycle.NewBuilder(serviceName).
		WithAddress(cfg.Server.HTTP.Addr()).
		WithBus(bus).
		WithApp(app).
		OnStart(func(ctx context.Context) error {
			// 数据库迁移
			if err := db.AutoMigrate(model.All()...); err != nil {
				return fmt.Errorf("数据库迁移失败: %w", err)
			}
			logger.Info("数据库迁移完成")

			if cfg.Authz.Seed {
				if err := catalog.Seed(ctx, db, catalog.DefaultCatalog()); err != nil {
					return fmt.Errorf("写入默认目录失败: %w", err)
				}
			}
			return nil
		}).
		OnReady(func(ctx context.Context) error {
			if err := svc.SyncPolicies(ctx); err != nil {
				logger.Warn("同步角色策略失败", zap.Error(err))
			}
			return nil
		}).
		OnStop(func(context.Context) error {
			return database.Close(db)
		}).
		Run(context.Background())
	if err != nil {
		logger.Fatal("服务运行失败", zap.Error(err))
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goconsole/pkg/broadcast"
	"github.com/goconsole/pkg/config"
	"github.com/goconsole/pkg/lifecycle"
	"github.com/goconsole/pkg/logger"
	"github.com/goconsole/pkg/middleware"
	"github.com/goconsole/services/gateway/internal/gateway"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const serviceName = "gateway-service"

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

	gw := gateway.NewGateway(&cfg.Gateway)

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
	app.Get("/health", gw.HealthCheck)
	app.Get("/services", gw.ServicesStatus)
	app.All(gateway.APIVersion+"/*", gw.Handler())

	bus := broadcast.New()
	lifecycle.Watch(bus, func(msg lifecycle.Message) {
		logger.Debug("生命周期事件", zap.String("service", msg.Service), zap.String("event", string(msg.Event)))
	})

	err := lifecycle.NewBuilder(serviceName).
		WithAddress(cfg.Server.HTTP.Addr()).
		WithBus(bus).
		WithApp(app).
		OnReady(func(context.Context) error {
			logger.Info("网关服务就绪", zap.String("addr", cfg.Server.HTTP.Addr()), zap.Int("routes", len(gw.Routes())))
			return nil
		}).
		Run(context.Background())
	if err != nil {
		logger.Fatal("服务运行失败", zap.Error(err))
	}
}

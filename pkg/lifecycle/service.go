package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/goconsole/pkg/broadcast"
	"github.com/goconsole/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ServiceOptions 服务配置选项
type ServiceOptions struct {
	Name            string                 // 服务名称
	Address         string                 // 监听地址
	Bus             *broadcast.Broadcaster // 生命周期事件总线，可为空
	ShutdownTimeout time.Duration          // 关闭等待时间
}

// Service 服务包装器
type Service struct {
	opts *ServiceOptions
	app  *fiber.App

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewService 创建服务
func NewService(opts *ServiceOptions) *Service {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Service{opts: opts}
}

// SetApp 设置Fiber应用
func (s *Service) SetApp(app *fiber.App) {
	s.app = app
}

// Name 服务名称
func (s *Service) Name() string {
	return s.opts.Name
}

// OnStart 注册启动钩子，在开始监听前执行
func (s *Service) OnStart(fn Hook) {
	s.onStart = append(s.onStart, fn)
}

// OnReady 注册就绪钩子，在开始监听后执行
func (s *Service) OnReady(fn Hook) {
	s.onReady = append(s.onReady, fn)
}

// OnStop 注册停止钩子，逆序执行
func (s *Service) OnStop(fn Hook) {
	s.onStop = append(s.onStop, fn)
}

// emit 发布生命周期事件
func (s *Service) emit(event Event) {
	if s.opts.Bus == nil {
		return
	}
	s.opts.Bus.Publish(Topic, Message{
		Service:   s.opts.Name,
		Event:     event,
		Timestamp: time.Now(),
	})
}

// Run 运行服务，直到 ctx 取消或收到退出信号
func (s *Service) Run(ctx context.Context) error {
	if s.app == nil {
		return errors.New("lifecycle: fiber app not set")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.emit(EventStarting)

	for _, fn := range s.onStart {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("start hook: %w", err)
		}
	}

	s.emit(EventStarted)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("服务启动",
			zap.String("service", s.opts.Name),
			zap.String("address", s.opts.Address),
		)
		if err := s.app.Listen(s.opts.Address); err != nil {
			errCh <- err
		}
	}()

	// 等待服务启动
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	for _, fn := range s.onReady {
		if err := fn(ctx); err != nil {
			s.Shutdown()
			return fmt.Errorf("ready hook: %w", err)
		}
	}

	s.emit(EventReady)

	select {
	case <-ctx.Done():
		logger.Info("收到退出信号，正在关闭服务...", zap.String("service", s.opts.Name))
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	return s.Shutdown()
}

// Shutdown 优雅关闭服务
func (s *Service) Shutdown() error {
	s.emit(EventStopping)

	if s.app != nil {
		if err := s.app.ShutdownWithTimeout(s.opts.ShutdownTimeout); err != nil {
			logger.Error("关闭HTTP服务失败", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	for i := len(s.onStop) - 1; i >= 0; i-- {
		if err := s.onStop[i](ctx); err != nil {
			logger.Error("停止钩子执行失败", zap.Error(err))
		}
	}

	s.emit(EventStopped)
	logger.Info("服务已关闭", zap.String("service", s.opts.Name))
	return nil
}

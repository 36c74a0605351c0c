// Package gateway 按路径前缀把 /api/v1 下的请求转发到后端服务，每条路由带独立熔断器
package gateway

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goconsole/pkg/config"
	"github.com/goconsole/pkg/logger"
	"github.com/goconsole/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	// APIVersion API版本前缀
	APIVersion = "/api/v1"
)

// ServiceRoute 服务路由配置
type ServiceRoute struct {
	ServiceName string // 服务名称
	PathPrefix  string // 去掉 APIVersion 后的路径前缀，如 /assets
	Target      string // 后端地址
	breaker     *CircuitBreaker
}

// Gateway API网关，按前缀把 /api/v1 下的请求转发到后端服务
type Gateway struct {
	mu      sync.RWMutex
	routes  map[string]*ServiceRoute // key: 路径前缀
	client  *fasthttp.Client
	timeout time.Duration

	breakerThreshold int
	breakerTimeout   time.Duration
}

// NewGateway 创建网关并注册配置中的路由
func NewGateway(cfg *config.GatewayConfig) *Gateway {
	g := &Gateway{
		routes:           make(map[string]*ServiceRoute),
		client:           &fasthttp.Client{NoDefaultUserAgentHeader: true},
		timeout:          cfg.Timeout(),
		breakerThreshold: cfg.BreakerThreshold,
		breakerTimeout:   cfg.BreakerTimeout(),
	}
	for _, r := range cfg.Routes {
		g.RegisterRoute(r.Service, r.Prefix, r.Target)
	}
	return g
}

// RegisterRoute 注册服务路由，同一前缀后注册的覆盖先注册的
func (g *Gateway) RegisterRoute(service, prefix, target string) {
	prefix = "/" + strings.Trim(prefix, "/")
	route := &ServiceRoute{
		ServiceName: service,
		PathPrefix:  prefix,
		Target:      strings.TrimRight(target, "/"),
		breaker:     NewCircuitBreaker(g.breakerThreshold, g.breakerTimeout),
	}

	g.mu.Lock()
	g.routes[prefix] = route
	g.mu.Unlock()

	logger.Info("注册路由",
		zap.String("service", service),
		zap.String("gateway_path", APIVersion+prefix),
		zap.String("target", route.Target),
	)
}

// UnregisterRoute 注销服务路由
func (g *Gateway) UnregisterRoute(prefix string) {
	prefix = "/" + strings.Trim(prefix, "/")
	g.mu.Lock()
	defer g.mu.Unlock()
	if route, exists := g.routes[prefix]; exists {
		delete(g.routes, prefix)
		logger.Info("注销路由", zap.String("service", route.ServiceName), zap.String("path", prefix))
	}
}

// match 最长前缀匹配，前缀必须落在路径段边界上
func (g *Gateway) match(path string) *ServiceRoute {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var matched *ServiceRoute
	for prefix, route := range g.routes {
		if path != prefix && !strings.HasPrefix(path, prefix+"/") {
			continue
		}
		if matched == nil || len(prefix) > len(matched.PathPrefix) {
			matched = route
		}
	}
	return matched
}

// Handler 转发处理器，挂载在 APIVersion 下
func (g *Gateway) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := strings.TrimPrefix(c.Path(), APIVersion)
		if path == "" {
			path = "/"
		}

		route := g.match(path)
		if route == nil {
			return c.Status(http.StatusNotFound).JSON(response.Response{Code: http.StatusNotFound, Message: "服务未找到"})
		}
		if !route.breaker.Allow() {
			return c.Status(http.StatusServiceUnavailable).JSON(response.Response{Code: http.StatusServiceUnavailable, Message: "服务暂不可用"})
		}

		target := route.Target + path
		if q := c.Request().URI().QueryString(); len(q) > 0 {
			target += "?" + string(q)
		}

		c.Request().Header.Set(fiber.HeaderXForwardedFor, c.IP())
		c.Request().Header.Set("X-Real-IP", c.IP())
		c.Request().Header.Set(fiber.HeaderXForwardedProto, c.Protocol())
		c.Request().Header.Set(fiber.HeaderXForwardedHost, c.Hostname())

		if err := proxy.DoTimeout(c, target, g.timeout, g.client); err != nil {
			route.breaker.Failure()
			logger.Error("代理请求失败", zap.String("target", target), zap.Error(err))
			return c.Status(http.StatusBadGateway).JSON(response.Response{Code: http.StatusBadGateway, Message: "服务不可用"})
		}
		if c.Response().StatusCode() >= http.StatusInternalServerError {
			route.breaker.Failure()
		} else {
			route.breaker.Success()
		}
		c.Response().Header.Del(fiber.HeaderServer)
		return nil
	}
}

// HealthCheck 健康检查
func (g *Gateway) HealthCheck(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "healthy", "service": "gateway", "time": time.Now().Format(time.RFC3339)})
}

// ServiceStatus 服务状态
type ServiceStatus struct {
	Name    string `json:"name"`
	Prefix  string `json:"prefix"`
	Target  string `json:"target"`
	Breaker string `json:"breaker"`
}

// ServicesStatus 已注册服务及熔断状态
func (g *Gateway) ServicesStatus(c *fiber.Ctx) error {
	g.mu.RLock()
	statuses := make([]ServiceStatus, 0, len(g.routes))
	for _, r := range g.routes {
		statuses = append(statuses, ServiceStatus{
			Name:    r.ServiceName,
			Prefix:  APIVersion + r.PathPrefix,
			Target:  r.Target,
			Breaker: r.breaker.State(),
		})
	}
	g.mu.RUnlock()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Prefix < statuses[j].Prefix })
	return response.Success(c, statuses)
}

// Routes 所有已注册的路由
func (g *Gateway) Routes() map[string]ServiceRoute {
	g.mu.RLock()
	defer g.mu.RUnlock()

	routes := make(map[string]ServiceRoute, len(g.routes))
	for k, v := range g.routes {
		routes[k] = *v
	}
	return routes
}

// 熔断器状态
const (
	BreakerClosed   = "closed"
	BreakerOpen     = "open"
	BreakerHalfOpen = "half-open"
)

// CircuitBreaker 熔断器
type CircuitBreaker struct {
	mu          sync.Mutex
	failures    int
	threshold   int
	timeout     time.Duration
	lastFailure time.Time
	trialAt     time.Time // 半开状态下试探请求的放行时间，零值表示没有在途试探
	state       string
	now         func() time.Time
}

// NewCircuitBreaker 创建熔断器，threshold<=0 时不熔断
func NewCircuitBreaker(threshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		timeout:   timeout,
		state:     BreakerClosed,
		now:       time.Now,
	}
}

// Allow 是否允许请求。半开状态同一时间只放行一个试探请求，试探超过 timeout 未回报时再放行一个
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := cb.now()
	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if now.Sub(cb.lastFailure) > cb.timeout {
			cb.state = BreakerHalfOpen
			cb.trialAt = now
			return true
		}
	case BreakerHalfOpen:
		if cb.trialAt.IsZero() || now.Sub(cb.trialAt) > cb.timeout {
			cb.trialAt = now
			return true
		}
	}
	return false
}

// Success 记录成功
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.trialAt = time.Time{}
	cb.state = BreakerClosed
}

// Failure 记录失败，半开状态下一次失败即重新熔断
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFailure = cb.now()
	cb.trialAt = time.Time{}
	if cb.threshold <= 0 {
		return
	}
	if cb.state == BreakerHalfOpen || cb.failures >= cb.threshold {
		cb.state = BreakerOpen
	}
}

// State 获取状态
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Package lifecycle 服务启动、就绪、停止的钩子编排与事件通知
package lifecycle

import (
	"context"
	"time"

	"github.com/goconsole/pkg/broadcast"
)

// Event 生命周期事件类型
type Event string

const (
	EventStarting Event = "starting" // 服务启动中
	EventStarted  Event = "started"  // 启动钩子执行完毕
	EventReady    Event = "ready"    // 服务就绪（可接收请求）
	EventStopping Event = "stopping" // 服务停止中
	EventStopped  Event = "stopped"  // 服务已停止
)

// Topic 生命周期事件的广播主题
const Topic = "service:lifecycle"

// Message 生命周期消息
type Message struct {
	Service   string    `json:"service"`
	Event     Event     `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// Hook 生命周期钩子
type Hook func(ctx context.Context) error

// Watch 订阅生命周期事件，返回取消订阅函数
func Watch(bus *broadcast.Broadcaster, fn func(msg Message)) func() {
	return bus.Subscribe(Topic, func(m *broadcast.Message) {
		if msg, ok := m.Payload.(Message); ok {
			fn(msg)
		}
	})
}

// Package broadcast 进程内主题广播，用于状态变更通知
package broadcast

import (
	"sync"
	"time"

	"github.com/goconsole/pkg/logger"
	"go.uber.org/zap"
)

// Message 广播消息
type Message struct {
	Topic     string    `json:"topic"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler 消息处理器
type Handler func(msg *Message)

type subscription struct {
	id      uint64
	handler Handler
}

// Broadcaster 广播器
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string][]subscription
	nextID      uint64
}

// New 创建广播器
func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string][]subscription),
	}
}

// Subscribe 订阅 topic，返回取消订阅函数
func (b *Broadcaster) Subscribe(topic string, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[topic] = append(b.subscribers[topic], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[topic]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish 按订阅顺序同步分发消息，单个处理器 panic 不影响其他处理器
func (b *Broadcaster) Publish(topic string, payload any) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	msg := &Message{
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	for _, s := range subs {
		b.dispatch(s.handler, msg)
	}
}

// dispatch 调用单个处理器
func (b *Broadcaster) dispatch(handler Handler, msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("broadcast handler panic", zap.String("topic", msg.Topic), zap.Any("error", r))
		}
	}()
	handler(msg)
}

// Count 订阅者数量
func (b *Broadcaster) Count(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

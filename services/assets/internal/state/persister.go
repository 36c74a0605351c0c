package state

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/goconsole/pkg/kv"
	"github.com/goconsole/pkg/logger"
	"go.uber.org/zap"
)

// Persister 将状态快照写入键值存储
type Persister struct {
	kv      kv.Store
	key     string
	timeout time.Duration
	log     *zap.Logger

	mu sync.Mutex // 串行化写入
}

// NewPersister 创建持久化器
func NewPersister(store kv.Store, key string) *Persister {
	return &Persister{
		kv:      store,
		key:     key,
		timeout: 3 * time.Second,
		log:     logger.Named("assets.state"),
	}
}

// Load 读取并恢复状态。数据缺失或损坏时保留默认值，只记录日志
func (p *Persister) Load(ctx context.Context, store *Store) bool {
	data, ok, err := p.kv.Get(ctx, p.key)
	if err != nil {
		p.log.Warn("读取资源缓存状态失败", zap.Error(err))
		return false
	}
	if !ok {
		return false
	}

	snap, err := Migrate(data, store.Catalog())
	if err != nil {
		p.log.Warn("资源缓存状态已损坏，使用默认值", zap.Error(err))
		return false
	}
	store.Restore(snap)
	p.log.Info("资源缓存状态已恢复", zap.Int("assets", len(snap.Assets)))
	return true
}

// SaveLatest 在写锁内重新读取快照并写入，最后一次写入总是包含此前所有修改
func (p *Persister) SaveLatest(ctx context.Context, store *Store) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, err := json.Marshal(store.Snapshot())
	if err != nil {
		return err
	}
	return p.kv.Set(ctx, p.key, data)
}

// Attach 每次状态变更后写入最新快照，返回取消函数
func (p *Persister) Attach(store *Store) func() {
	return store.Subscribe(func(Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.SaveLatest(ctx, store); err != nil {
			p.log.Warn("保存资源缓存状态失败", zap.Error(err))
		}
	})
}

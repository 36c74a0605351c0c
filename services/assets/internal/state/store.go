// Package state 远程资源缓存的全局状态容器
package state

import (
	"sync"
	"time"

	"github.com/goconsole/pkg/broadcast"
	"github.com/goconsole/pkg/errors"
	"github.com/goconsole/pkg/optional"
	"github.com/goconsole/pkg/utils"
	"github.com/goconsole/services/assets/internal/asset"
)

// TopicChanged 状态变更通知主题
const TopicChanged = "assets:state:changed"

// ProbeOutcome 单个 资源×变体 的探测结果
type ProbeOutcome struct {
	ID           string
	Variant      asset.VariantKey
	OK           bool
	ETag         optional.Value[string]
	LastModified optional.Value[string]
}

// Store 状态容器。查询返回副本，每批修改结束后通知订阅者一次
type Store struct {
	catalog *asset.Catalog
	bus     *broadcast.Broadcaster

	mu      sync.RWMutex
	baseURL string
	skin    string
	skins   []string
	metas   map[string]map[asset.VariantKey]asset.Meta
	checks  map[asset.VariantKey]int64
}

// NewStore 创建状态容器，所有资源以默认元数据初始化
func NewStore(catalog *asset.Catalog, baseURL string) *Store {
	s := &Store{
		catalog: catalog,
		bus:     broadcast.New(),
		baseURL: baseURL,
		skins:   []string{},
		checks:  make(map[asset.VariantKey]int64),
	}
	s.metas = defaultMetas(catalog)
	return s
}

func defaultMetas(catalog *asset.Catalog) map[string]map[asset.VariantKey]asset.Meta {
	metas := make(map[string]map[asset.VariantKey]asset.Meta, catalog.Len())
	for _, id := range catalog.IDs() {
		metas[id] = map[asset.VariantKey]asset.Meta{asset.Base: {}}
	}
	return metas
}

// Catalog 资源目录
func (s *Store) Catalog() *asset.Catalog {
	return s.catalog
}

// Subscribe 订阅状态变更，回调收到变更后的快照
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.bus.Subscribe(TopicChanged, func(msg *broadcast.Message) {
		if snap, ok := msg.Payload.(Snapshot); ok {
			fn(snap)
		}
	})
}

// notify 在锁外调用
func (s *Store) notify() {
	if s.bus.Count(TopicChanged) == 0 {
		return
	}
	s.bus.Publish(TopicChanged, s.Snapshot())
}

// BaseURL 远程基础地址
func (s *Store) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

// Skin 当前皮肤，未选择时为空
func (s *Store) Skin() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skin
}

// Skins 已知皮肤列表
func (s *Store) Skins() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.skins...)
}

// SetBaseURL 设置远程基础地址
func (s *Store) SetBaseURL(baseURL string) {
	s.mu.Lock()
	if s.baseURL == baseURL {
		s.mu.Unlock()
		return
	}
	s.baseURL = baseURL
	s.mu.Unlock()
	s.notify()
}

// SetSkin 切换当前皮肤，空串表示不使用皮肤
func (s *Store) SetSkin(skin string) {
	skin = asset.SkinVariant(skin).Skin()
	s.mu.Lock()
	if s.skin == skin {
		s.mu.Unlock()
		return
	}
	s.skin = skin
	s.mu.Unlock()
	s.notify()
}

// SetSkins 替换已知皮肤列表（去重）
func (s *Store) SetSkins(skins []string) {
	s.mu.Lock()
	s.skins = utils.SortedStrings(skins)
	s.mu.Unlock()
	s.notify()
}

// Meta 资源变体的元数据
func (s *Store) Meta(id string, variant asset.VariantKey) (asset.Meta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metas[id][variant]
	return m, ok
}

// BuildAssetURL 资源在指定变体下的地址
func (s *Store) BuildAssetURL(id string, variant asset.VariantKey) (string, error) {
	spec, ok := s.catalog.Get(id)
	if !ok {
		return "", errors.NotFound("资源 " + id)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return asset.BuildURL(spec, s.baseURL, variant, s.metas[id][variant]), nil
}

// ResolveURL 当前皮肤下的地址，皮肤变体已标记不可用时回退到基础变体
func (s *Store) ResolveURL(id string) (string, error) {
	spec, ok := s.catalog.Get(id)
	if !ok {
		return "", errors.NotFound("资源 " + id)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	variant := asset.SkinVariant(s.skin)
	if m := s.metas[id][variant]; m.Unavailable {
		variant = asset.Base
	}
	return asset.BuildURL(spec, s.baseURL, variant, s.metas[id][variant]), nil
}

// LastColdStartCheck 变体最近一次冷启动检查时间
func (s *Store) LastColdStartCheck(variant asset.VariantKey) optional.Value[int64] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if at, ok := s.checks[variant]; ok {
		return optional.Some(at)
	}
	return optional.None[int64]()
}

// DueVariants 需要检查的变体：base 以及当前皮肤，跳过节流窗口内已检查过的
func (s *Store) DueVariants(now int64, interval time.Duration) []asset.VariantKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := []asset.VariantKey{asset.Base}
	if s.skin != "" {
		candidates = append(candidates, asset.SkinVariant(s.skin))
	}

	window := interval.Milliseconds()
	due := make([]asset.VariantKey, 0, len(candidates))
	for _, v := range candidates {
		if last, ok := s.checks[v]; ok {
			if elapsed := now - last; elapsed >= 0 && elapsed < window {
				continue
			}
		}
		due = append(due, v)
	}
	return due
}

// MarkSkinVariantUnavailable 标记资源的皮肤变体不存在，皮肤为空或资源未知时不做任何事
func (s *Store) MarkSkinVariantUnavailable(id, skin string, now int64) bool {
	variant := asset.SkinVariant(skin)
	if variant.IsBase() || !s.catalog.Has(id) {
		return false
	}

	s.mu.Lock()
	s.metas[id][variant] = s.metas[id][variant].WithUnavailable(now)
	s.mu.Unlock()
	s.notify()
	return true
}

// ApplyColdStart 写入一轮冷启动的全部探测结果，并记录实际检查过的变体
func (s *Store) ApplyColdStart(outcomes []ProbeOutcome, attempted []asset.VariantKey, now int64) {
	s.mu.Lock()
	for _, o := range outcomes {
		variants, ok := s.metas[o.ID]
		if !ok {
			continue
		}
		m := variants[o.Variant]
		if o.OK {
			m = m.WithProbeSuccess(o.ETag, o.LastModified, now)
		} else {
			m = m.WithProbeFailure(now)
		}
		if o.Variant.IsBase() {
			m.Unavailable = false
		}
		variants[o.Variant] = m
	}
	for _, v := range attempted {
		s.checks[v] = now
	}
	s.mu.Unlock()
	s.notify()
}

// Reset 恢复默认元数据，清空皮肤列表与节流记录，保留基础地址与当前皮肤
func (s *Store) Reset() {
	s.mu.Lock()
	s.metas = defaultMetas(s.catalog)
	s.skins = []string{}
	s.checks = make(map[asset.VariantKey]int64)
	s.mu.Unlock()
	s.notify()
}

// Snapshot 当前状态的深拷贝
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SchemaVersion:   SchemaVersion,
		BaseURL:         s.baseURL,
		Skin:            s.skin,
		Skins:           append([]string{}, s.skins...),
		Assets:          make(map[string]map[asset.VariantKey]asset.Meta, len(s.metas)),
		ColdStartChecks: make(map[asset.VariantKey]int64, len(s.checks)),
	}
	for id, variants := range s.metas {
		cp := make(map[asset.VariantKey]asset.Meta, len(variants))
		for v, m := range variants {
			cp[v] = m
		}
		snap.Assets[id] = cp
	}
	for v, at := range s.checks {
		snap.ColdStartChecks[v] = at
	}
	return snap
}

// Restore 用快照替换状态。未知资源被丢弃，缺失的基础变体补默认值
func (s *Store) Restore(snap Snapshot) {
	metas := defaultMetas(s.catalog)
	for id, variants := range snap.Assets {
		if _, ok := metas[id]; !ok {
			continue
		}
		for v, m := range variants {
			if v.IsBase() {
				m.Unavailable = false
			}
			m.FailCount = asset.ClampFailCount(m.FailCount)
			metas[id][v] = m
		}
	}
	checks := make(map[asset.VariantKey]int64, len(snap.ColdStartChecks))
	for v, at := range snap.ColdStartChecks {
		checks[v] = at
	}

	s.mu.Lock()
	s.baseURL = snap.BaseURL
	s.skin = asset.SkinVariant(snap.Skin).Skin()
	s.skins = utils.SortedStrings(snap.Skins)
	s.metas = metas
	s.checks = checks
	s.mu.Unlock()
	s.notify()
}

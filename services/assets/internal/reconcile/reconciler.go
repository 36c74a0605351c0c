// Package reconcile 冷启动时校验远程资源的新鲜度
package reconcile

import (
	"context"
	"time"

	"github.com/goconsole/pkg/logger"
	"github.com/goconsole/services/assets/internal/asset"
	"github.com/goconsole/services/assets/internal/remote"
	"github.com/goconsole/services/assets/internal/state"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Prober 响应头探测
type Prober interface {
	Probe(ctx context.Context, url string, timeout time.Duration) (remote.ProbeResult, error)
}

// SkinSource 远程皮肤列表
type SkinSource interface {
	FetchSkins(ctx context.Context, baseURL string) ([]string, error)
}

// Options 校验参数
type Options struct {
	MinCheckInterval time.Duration // 同一变体两次检查的最小间隔
	ProbeTimeout     time.Duration // 单次探测超时
	Concurrency      int           // 同时进行的探测数，<=0 不限制
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		MinCheckInterval: 6 * time.Hour,
		ProbeTimeout:     1500 * time.Millisecond,
		Concurrency:      8,
	}
}

// Report 一轮校验的结果统计
type Report struct {
	Variants  []asset.VariantKey `json:"variants"`
	Probed    int                `json:"probed"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Canceled  bool               `json:"canceled,omitempty"` // 被取消时不写入任何结果
}

// Reconciler 冷启动校验器
type Reconciler struct {
	store  *state.Store
	prober Prober
	skins  SkinSource
	opts   Options
	group  singleflight.Group
	log    *zap.Logger
}

// New 创建校验器
func New(store *state.Store, prober Prober, skins SkinSource, opts Options) *Reconciler {
	def := DefaultOptions()
	if opts.MinCheckInterval <= 0 {
		opts.MinCheckInterval = def.MinCheckInterval
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = def.ProbeTimeout
	}
	return &Reconciler{
		store:  store,
		prober: prober,
		skins:  skins,
		opts:   opts,
		log:    logger.Named("assets.reconcile"),
	}
}

// ReconcileOnColdStart 并发探测所有 资源×待检查变体（绝对地址资源除外），全部结束后一次性写入状态。
// 探测失败只体现在元数据中，不会返回错误。ctx 被取消时整轮结果丢弃，节流记录不变。
func (r *Reconciler) ReconcileOnColdStart(ctx context.Context, now time.Time) Report {
	nowMs := now.UnixMilli()
	baseURL := r.store.BaseURL()
	if baseURL == "" {
		r.log.Warn("未配置资源基础地址，跳过冷启动校验")
		return Report{Variants: []asset.VariantKey{}}
	}

	variants := r.store.DueVariants(nowMs, r.opts.MinCheckInterval)
	report := Report{Variants: variants}
	if len(variants) == 0 {
		r.log.Debug("所有变体均在节流窗口内")
		return report
	}

	specs := probeable(r.store.Catalog())
	outcomes := make([]state.ProbeOutcome, len(variants)*len(specs))

	var g errgroup.Group
	if r.opts.Concurrency > 0 {
		g.SetLimit(r.opts.Concurrency)
	}
	i := 0
	for _, variant := range variants {
		for _, spec := range specs {
			idx := i
			i++
			url := asset.ProbeURL(spec, baseURL, variant)
			g.Go(func() error {
				outcomes[idx] = r.probe(ctx, spec.ID, variant, url)
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		r.log.Warn("冷启动校验被取消，本轮结果丢弃", zap.Error(err))
		report.Canceled = true
		return report
	}
	for _, o := range outcomes {
		if o.OK {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	report.Probed = len(outcomes)

	r.store.ApplyColdStart(outcomes, variants, nowMs)
	r.log.Info("冷启动校验完成",
		zap.Int("probed", report.Probed),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed))
	return report
}

// probeable 需要探测的资源，绝对地址资源不参与版本管理
func probeable(catalog *asset.Catalog) []asset.Spec {
	var specs []asset.Spec
	for _, spec := range catalog.Specs() {
		if !spec.HasOverride() {
			specs = append(specs, spec)
		}
	}
	return specs
}

// probe 单个探测
func (r *Reconciler) probe(ctx context.Context, id string, variant asset.VariantKey, url string) state.ProbeOutcome {
	out := state.ProbeOutcome{ID: id, Variant: variant}
	res, err := r.prober.Probe(ctx, url, r.opts.ProbeTimeout)
	if err != nil {
		r.log.Debug("资源探测失败", zap.String("url", url), zap.Error(err))
		return out
	}
	if !res.OK {
		r.log.Debug("资源探测状态异常", zap.String("url", url), zap.Int("status", res.Status))
		return out
	}
	out.OK = true
	out.ETag = res.ETag
	out.LastModified = res.LastModified
	return out
}

// RefreshSkins 拉取远程皮肤列表并写入状态，并发调用合并为一次请求
func (r *Reconciler) RefreshSkins(ctx context.Context) ([]string, error) {
	v, err, _ := r.group.Do("skins", func() (any, error) {
		skins, err := r.skins.FetchSkins(ctx, r.store.BaseURL())
		if err != nil {
			return nil, err
		}
		r.store.SetSkins(skins)
		return r.store.Skins(), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string{}, v.([]string)...), nil
}

// ResetCacheAndRefresh 重置缓存后重新拉取皮肤列表并校验。各步骤失败只记录日志
func (r *Reconciler) ResetCacheAndRefresh(ctx context.Context, now time.Time) Report {
	r.store.Reset()
	if _, err := r.RefreshSkins(ctx); err != nil {
		r.log.Warn("刷新皮肤列表失败", zap.Error(err))
	}
	return r.ReconcileOnColdStart(ctx, now)
}

package state

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goconsole/pkg/optional"
	"github.com/goconsole/pkg/utils"
	"github.com/goconsole/services/assets/internal/asset"
	"github.com/spf13/cast"
)

// SchemaVersion 当前快照版本
const SchemaVersion = 2

// Snapshot 可持久化的完整状态
type Snapshot struct {
	SchemaVersion   int                                         `json:"schemaVersion"`
	BaseURL         string                                      `json:"baseUrl"`
	Skin            string                                      `json:"skin"`
	Skins           []string                                    `json:"skins"`
	Assets          map[string]map[asset.VariantKey]asset.Meta `json:"assets"`
	ColdStartChecks map[asset.VariantKey]int64                  `json:"coldStartChecks"`
}

// Migrate 将任意版本的原始数据升级为当前版本。
// 未知资源、非法变体、基础变体上的 unavailable 与格式错误的字段都会被丢弃。
//
// v1 结构：每个资源只有一组平铺的 etag/lastModified/... 字段，
// 皮肤不可用记录在 skinUnavailable 列表中，节流时间为单个 lastColdStartCheckAt。
func Migrate(data []byte, catalog *asset.Catalog) (Snapshot, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("decode asset state: %w", err)
	}
	if raw == nil {
		return Snapshot{}, fmt.Errorf("decode asset state: not an object")
	}

	snap := Snapshot{
		SchemaVersion:   SchemaVersion,
		BaseURL:         optString(raw["baseUrl"]).OrElse(""),
		Skin:            optString(raw["skin"]).OrElse(""),
		Skins:           stringList(raw["skins"]),
		Assets:          make(map[string]map[asset.VariantKey]asset.Meta),
		ColdStartChecks: make(map[asset.VariantKey]int64),
	}

	version := cast.ToInt(raw["schemaVersion"])
	assets := objectOf(raw["assets"])
	if version < 2 {
		migrateV1(&snap, raw, assets, catalog)
	} else {
		migrateV2(&snap, raw, assets, catalog)
	}
	return snap, nil
}

// migrateV1 平铺字段写入基础变体
func migrateV1(snap *Snapshot, raw, assets map[string]any, catalog *asset.Catalog) {
	if at, ok := optMillis(raw["lastColdStartCheckAt"]).Get(); ok {
		snap.ColdStartChecks[asset.Base] = at
	}

	for id, v := range assets {
		if !catalog.Has(id) {
			continue
		}
		fields := objectOf(v)
		if fields == nil {
			continue
		}

		variants := map[asset.VariantKey]asset.Meta{asset.Base: decodeMeta(fields, false)}
		for _, skin := range stringList(fields["skinUnavailable"]) {
			variant := asset.SkinVariant(skin)
			variants[variant] = asset.Meta{Unavailable: true}
		}
		snap.Assets[id] = variants
	}
}

// migrateV2 按变体解码
func migrateV2(snap *Snapshot, raw, assets map[string]any, catalog *asset.Catalog) {
	for key, v := range objectOf(raw["coldStartChecks"]) {
		variant, ok := asset.ParseVariant(key)
		if !ok {
			continue
		}
		if at, ok := optMillis(v).Get(); ok {
			snap.ColdStartChecks[variant] = at
		}
	}

	for id, v := range assets {
		if !catalog.Has(id) {
			continue
		}
		variants := make(map[asset.VariantKey]asset.Meta)
		for key, mv := range objectOf(v) {
			variant, ok := asset.ParseVariant(key)
			if !ok {
				continue
			}
			fields := objectOf(mv)
			if fields == nil {
				continue
			}
			variants[variant] = decodeMeta(fields, !variant.IsBase())
		}
		if len(variants) > 0 {
			snap.Assets[id] = variants
		}
	}
}

// decodeMeta 逐字段宽松解码
func decodeMeta(fields map[string]any, allowUnavailable bool) asset.Meta {
	m := asset.Meta{
		LastModified:  optString(fields["lastModified"]),
		LastCheckedAt: optMillis(fields["lastCheckedAt"]),
		LastOkAt:      optMillis(fields["lastOkAt"]),
		LastFailAt:    optMillis(fields["lastFailAt"]),
		FailCount:     asset.ClampFailCount(cast.ToInt(fields["failCount"])),
	}
	if etag, ok := optString(fields["etag"]).Get(); ok {
		if etag = asset.NormalizeETag(etag); etag != "" {
			m.ETag = optional.Some(etag)
		}
	}
	if allowUnavailable {
		if b, err := cast.ToBoolE(fields["unavailable"]); err == nil {
			m.Unavailable = b
		}
	}
	return m
}

func objectOf(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func optString(v any) optional.Value[string] {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return optional.None[string]()
	}
	return optional.Some(s)
}

// optMillis 非负整数时间戳，布尔值与无法解析的值视为缺失
func optMillis(v any) optional.Value[int64] {
	if v == nil {
		return optional.None[int64]()
	}
	if _, isBool := v.(bool); isBool {
		return optional.None[int64]()
	}
	n, err := cast.ToInt64E(v)
	if err != nil || n < 0 {
		return optional.None[int64]()
	}
	return optional.Some(n)
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return utils.SortedStrings(out)
}

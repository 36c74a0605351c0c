package asset

import (
	"strconv"
	"strings"

	"github.com/goconsole/pkg/optional"
)

// MaxFailCount 失败计数上限
const MaxFailCount = 20

// Meta 单个资源单个变体的新鲜度元数据，时间均为毫秒时间戳
type Meta struct {
	ETag          optional.Value[string] `json:"etag"`
	LastModified  optional.Value[string] `json:"lastModified"`
	Unavailable   bool                   `json:"unavailable"`
	LastCheckedAt optional.Value[int64]  `json:"lastCheckedAt"`
	LastOkAt      optional.Value[int64]  `json:"lastOkAt"`
	LastFailAt    optional.Value[int64]  `json:"lastFailAt"`
	FailCount     int                    `json:"failCount"`
}

// VersionToken 版本令牌：etag → lastModified → lastOkAt，均缺失时为空
func (m Meta) VersionToken() optional.Value[string] {
	if etag, ok := m.ETag.Get(); ok && etag != "" {
		return optional.Some(etag)
	}
	if lm, ok := m.LastModified.Get(); ok && lm != "" {
		return optional.Some(lm)
	}
	if at, ok := m.LastOkAt.Get(); ok {
		return optional.Some(strconv.FormatInt(at, 10))
	}
	return optional.None[string]()
}

// WithProbeSuccess 探测成功。响应未携带的 etag/lastModified 保留旧值
func (m Meta) WithProbeSuccess(etag, lastModified optional.Value[string], now int64) Meta {
	if v, ok := etag.Get(); ok {
		etag = normalizedOrNone(v)
	}
	m.ETag = etag.Or(m.ETag)
	m.LastModified = lastModified.Or(m.LastModified)
	m.Unavailable = false
	m.LastCheckedAt = optional.Some(now)
	m.LastOkAt = optional.Some(now)
	m.FailCount = 0
	return m
}

// WithProbeFailure 探测失败，不改变 unavailable
func (m Meta) WithProbeFailure(now int64) Meta {
	m.LastCheckedAt = optional.Some(now)
	m.LastFailAt = optional.Some(now)
	m.FailCount = bumpFailCount(m.FailCount)
	return m
}

// WithUnavailable 确认变体不存在
func (m Meta) WithUnavailable(now int64) Meta {
	m.Unavailable = true
	m.LastFailAt = optional.Some(now)
	m.FailCount = bumpFailCount(m.FailCount)
	return m
}

// bumpFailCount 饱和递增
func bumpFailCount(n int) int {
	if n < 0 {
		n = 0
	}
	if n >= MaxFailCount {
		return MaxFailCount
	}
	return n + 1
}

// ClampFailCount 限制在 [0, MaxFailCount]
func ClampFailCount(n int) int {
	switch {
	case n < 0:
		return 0
	case n > MaxFailCount:
		return MaxFailCount
	}
	return n
}

// NormalizeETag 去掉弱校验前缀 W/ 与两侧引号
func NormalizeETag(etag string) string {
	etag = strings.TrimSpace(etag)
	if strings.HasPrefix(etag, "W/") || strings.HasPrefix(etag, "w/") {
		etag = etag[2:]
	}
	return strings.Trim(etag, `"`)
}

func normalizedOrNone(etag string) optional.Value[string] {
	if etag = NormalizeETag(etag); etag == "" {
		return optional.None[string]()
	}
	return optional.Some(etag)
}

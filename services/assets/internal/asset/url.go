package asset

import (
	"net/url"
	"strings"
)

// NormalizePath 保证路径只有一个前导斜杠
func NormalizePath(p string) string {
	return "/" + strings.TrimLeft(p, "/")
}

// SpliceSkin 在最后一个路径段之前原样插入皮肤目录，皮肤为空时原样返回
func SpliceSkin(p, skin string) string {
	p = NormalizePath(p)
	if skin == "" {
		return p
	}
	i := strings.LastIndex(p, "/")
	return p[:i] + "/" + skin + p[i:]
}

// ProbeURL 变体的资源地址，不含版本参数
func ProbeURL(spec Spec, baseURL string, variant VariantKey) string {
	if spec.HasOverride() {
		return spec.URL
	}
	return strings.TrimRight(baseURL, "/") + SpliceSkin(spec.Path, variant.Skin())
}

// BuildURL 带版本参数的资源地址。绝对地址原样返回；无版本令牌时不追加参数
func BuildURL(spec Spec, baseURL string, variant VariantKey, meta Meta) string {
	if spec.HasOverride() {
		return spec.URL
	}
	u := ProbeURL(spec, baseURL, variant)
	token, ok := meta.VersionToken().Get()
	if !ok {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "v=" + url.QueryEscape(token)
}

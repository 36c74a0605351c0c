// Package asset 远程资源描述、变体与新鲜度元数据
package asset

import (
	"fmt"
	"strings"
)

// Kind 资源类型
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
	KindOther Kind = "other"
)

// Valid 是否为已知类型
func (k Kind) Valid() bool {
	switch k {
	case KindImage, KindAudio, KindVideo, KindOther:
		return true
	}
	return false
}

// Spec 静态资源描述
type Spec struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	// Path 相对于变体目录的路径，如 /icon/desktop/load.gif
	Path string `json:"path"`
	// URL 绝对地址，设置后忽略基础地址与变体
	URL string `json:"url,omitempty"`
}

// HasOverride 是否使用绝对地址
func (s Spec) HasOverride() bool {
	return s.URL != ""
}

// VariantKey 变体键：base 或 skin:<name>
type VariantKey string

// Base 基础变体
const Base VariantKey = "base"

const skinPrefix = "skin:"

// SkinVariant 皮肤变体，皮肤名为空时返回 Base
func SkinVariant(skin string) VariantKey {
	skin = strings.TrimSpace(skin)
	if skin == "" {
		return Base
	}
	return VariantKey(skinPrefix + skin)
}

// ParseVariant 解析变体键
func ParseVariant(s string) (VariantKey, bool) {
	if s == string(Base) {
		return Base, true
	}
	if name, ok := strings.CutPrefix(s, skinPrefix); ok && strings.TrimSpace(name) == name && name != "" {
		return VariantKey(s), true
	}
	return "", false
}

// IsBase 是否为基础变体
func (v VariantKey) IsBase() bool {
	return v == Base
}

// Skin 皮肤名，基础变体返回空串
func (v VariantKey) Skin() string {
	if name, ok := strings.CutPrefix(string(v), skinPrefix); ok {
		return name
	}
	return ""
}

// String 实现 fmt.Stringer
func (v VariantKey) String() string {
	return string(v)
}

// validate 校验描述
func (s Spec) validate() error {
	if s.ID == "" {
		return fmt.Errorf("asset: empty id")
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("asset %s: unknown kind %q", s.ID, s.Kind)
	}
	if s.Path == "" && s.URL == "" {
		return fmt.Errorf("asset %s: path or url required", s.ID)
	}
	return nil
}

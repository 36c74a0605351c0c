package controller

import "github.com/goconsole/services/assets/internal/asset"

// AssetView 资源及其当前解析地址
type AssetView struct {
	ID   string     `json:"id"`
	Kind asset.Kind `json:"kind"`
	Path string     `json:"path,omitempty"`
	URL  string     `json:"url"`
}

// SkinRequest 皮肤参数
type SkinRequest struct {
	Skin string `json:"skin"`
}

// SkinsView 皮肤信息
type SkinsView struct {
	Current string   `json:"current"`
	Skins   []string `json:"skins"`
}

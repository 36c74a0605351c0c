package asset

import "fmt"

// Catalog 静态资源目录，创建后只读
type Catalog struct {
	ids   []string
	specs map[string]Spec
}

// NewCatalog 创建目录，id 重复或描述不完整时返回错误
func NewCatalog(specs ...Spec) (*Catalog, error) {
	c := &Catalog{
		ids:   make([]string, 0, len(specs)),
		specs: make(map[string]Spec, len(specs)),
	}
	for _, s := range specs {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.specs[s.ID]; dup {
			return nil, fmt.Errorf("asset %s: duplicate id", s.ID)
		}
		c.ids = append(c.ids, s.ID)
		c.specs[s.ID] = s
	}
	return c, nil
}

// DefaultCatalog 桌面端内置资源
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		Spec{ID: "desktop.loading", Kind: KindImage, Path: "/icon/desktop/load.gif"},
		Spec{ID: "desktop.logo", Kind: KindImage, Path: "/icon/desktop/logo.png"},
		Spec{ID: "desktop.tray", Kind: KindImage, Path: "/icon/desktop/tray.png"},
		Spec{ID: "desktop.background", Kind: KindImage, Path: "/image/desktop/background.jpg"},
		Spec{ID: "sound.notify", Kind: KindAudio, Path: "/sound/notify.mp3"},
		Spec{ID: "video.splash", Kind: KindVideo, Path: "/video/splash.mp4"},
		Spec{ID: "docs.manual", Kind: KindOther, URL: "https://docs.goconsole.dev/manual.pdf"},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Get 按 id 查找
func (c *Catalog) Get(id string) (Spec, bool) {
	s, ok := c.specs[id]
	return s, ok
}

// Has 是否包含
func (c *Catalog) Has(id string) bool {
	_, ok := c.specs[id]
	return ok
}

// IDs 按声明顺序的 id 列表
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Specs 按声明顺序的描述列表
func (c *Catalog) Specs() []Spec {
	specs := make([]Spec, 0, len(c.ids))
	for _, id := range c.ids {
		specs = append(specs, c.specs[id])
	}
	return specs
}

// Len 资源数量
func (c *Catalog) Len() int {
	return len(c.ids)
}

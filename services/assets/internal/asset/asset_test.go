package asset

import (
	"fmt"
	"testing"

	"github.com/goconsole/pkg/optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loading = Spec{ID: "desktop.loading", Kind: KindImage, Path: "/icon/desktop/load.gif"}

func TestVersionTokenPrecedence(t *testing.T) {
	tests := []struct {
		name string
		meta Meta
		want string
	}{
		{
			name: "etag wins",
			meta: Meta{ETag: optional.Some("abc"), LastModified: optional.Some("2024-01-01"), LastOkAt: optional.Some[int64](1000)},
			want: "https://cdn.example.com/icon/desktop/load.gif?v=abc",
		},
		{
			name: "last modified",
			meta: Meta{LastModified: optional.Some("X"), LastOkAt: optional.Some[int64](1000)},
			want: "https://cdn.example.com/icon/desktop/load.gif?v=X",
		},
		{
			name: "last ok",
			meta: Meta{LastOkAt: optional.Some[int64](1000)},
			want: "https://cdn.example.com/icon/desktop/load.gif?v=1000",
		},
		{
			name: "none",
			meta: Meta{},
			want: "https://cdn.example.com/icon/desktop/load.gif",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildURL(loading, "https://cdn.example.com/", Base, tt.meta))
		})
	}
}

func TestSpliceSkin(t *testing.T) {
	assert.Equal(t, "/icon/desktop/dark/load.gif", SpliceSkin("/icon/desktop/load.gif", "dark"))
	assert.Equal(t, "/icon/desktop/load.gif", SpliceSkin("/icon/desktop/load.gif", ""))
	assert.Equal(t, "/dark/load.gif", SpliceSkin("load.gif", "dark"))
	assert.Equal(t, "/icon/load.gif", SpliceSkin("//icon/load.gif", ""))
	assert.Equal(t, "/icon/a b/load.gif", SpliceSkin("/icon/load.gif", "a b"), "skin names are spliced verbatim")
}

func TestBuildURLVariants(t *testing.T) {
	meta := Meta{ETag: optional.Some("e1")}

	assert.Equal(t, "https://cdn.example.com/icon/desktop/dark/load.gif?v=e1",
		BuildURL(loading, "https://cdn.example.com///", SkinVariant("dark"), meta))
	assert.Equal(t, "https://cdn.example.com/icon/desktop/load.gif?v=e1",
		BuildURL(loading, "https://cdn.example.com", SkinVariant(""), meta))

	withQuery := Spec{ID: "q", Kind: KindOther, Path: "/api/file?name=a"}
	assert.Equal(t, "http://h/api/file?name=a&v=e1", BuildURL(withQuery, "http://h", Base, meta))

	override := Spec{ID: "o", Kind: KindOther, URL: "https://elsewhere.example.com/x.pdf"}
	assert.Equal(t, "https://elsewhere.example.com/x.pdf", BuildURL(override, "http://h", SkinVariant("dark"), meta))

	spaced := Meta{LastModified: optional.Some("Wed, 21 Oct 2015 07:28:00 GMT")}
	assert.Equal(t, "http://h/icon/desktop/load.gif?v=Wed%2C+21+Oct+2015+07%3A28%3A00+GMT", BuildURL(loading, "http://h", Base, spaced))
}

func TestVariantKey(t *testing.T) {
	assert.Equal(t, Base, SkinVariant("  "))
	assert.Equal(t, VariantKey("skin:dark"), SkinVariant("dark"))
	assert.Equal(t, "dark", SkinVariant("dark").Skin())
	assert.Empty(t, Base.Skin())
	assert.True(t, Base.IsBase())

	for _, raw := range []string{"base", "skin:dark"} {
		v, ok := ParseVariant(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, raw, v.String())
	}
	for _, raw := range []string{"", "skin:", "skin: x", "dark", "BASE"} {
		_, ok := ParseVariant(raw)
		assert.False(t, ok, raw)
	}
}

func TestNormalizeETag(t *testing.T) {
	assert.Equal(t, "abc", NormalizeETag(`W/"abc"`))
	assert.Equal(t, "abc", NormalizeETag(`"abc"`))
	assert.Equal(t, "abc", NormalizeETag(" abc "))
	assert.Empty(t, NormalizeETag(`W/""`))
}

func TestMetaTransitions(t *testing.T) {
	m := Meta{ETag: optional.Some("old"), LastModified: optional.Some("lm"), FailCount: 3, Unavailable: true}

	ok := m.WithProbeSuccess(optional.None[string](), optional.None[string](), 50)
	assert.Equal(t, optional.Some("old"), ok.ETag)
	assert.Equal(t, optional.Some("lm"), ok.LastModified)
	assert.False(t, ok.Unavailable)
	assert.Zero(t, ok.FailCount)
	assert.Equal(t, optional.Some[int64](50), ok.LastOkAt)
	assert.Equal(t, optional.Some[int64](50), ok.LastCheckedAt)

	fresh := m.WithProbeSuccess(optional.Some(`W/"new"`), optional.None[string](), 60)
	assert.Equal(t, optional.Some("new"), fresh.ETag)

	failed := m.WithProbeFailure(70)
	assert.True(t, failed.Unavailable, "probe failure never changes unavailable")
	assert.Equal(t, 4, failed.FailCount)
	assert.Equal(t, optional.Some[int64](70), failed.LastFailAt)

	clean := Meta{}.WithProbeFailure(1)
	assert.False(t, clean.Unavailable)
}

func TestFailCountSaturates(t *testing.T) {
	m := Meta{}
	for i := 0; i < MaxFailCount+5; i++ {
		m = m.WithProbeFailure(int64(i))
	}
	assert.Equal(t, MaxFailCount, m.FailCount)

	m = m.WithUnavailable(100)
	assert.Equal(t, MaxFailCount, m.FailCount)
	assert.True(t, m.Unavailable)

	assert.Equal(t, 0, ClampFailCount(-3))
	assert.Equal(t, MaxFailCount, ClampFailCount(99))
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.True(t, c.Has("desktop.loading"))
	spec, ok := c.Get("desktop.loading")
	require.True(t, ok)
	assert.Equal(t, "/icon/desktop/load.gif", spec.Path)
	assert.Equal(t, c.Len(), len(c.IDs()))
	assert.Equal(t, c.IDs()[0], c.Specs()[0].ID)

	_, err := NewCatalog(loading, loading)
	assert.Error(t, err)
	_, err = NewCatalog(Spec{ID: "x", Kind: "font", Path: "/x"})
	assert.Error(t, err)
	_, err = NewCatalog(Spec{ID: "x", Kind: KindImage})
	assert.Error(t, err)
}

func ExampleBuildURL() {
	meta := Meta{ETag: optional.Some("abc")}
	fmt.Println(BuildURL(loading, "https://cdn.example.com", SkinVariant("dark"), meta))
	// Output: https://cdn.example.com/icon/desktop/dark/load.gif?v=abc
}

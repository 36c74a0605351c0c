package optional

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueAccessors(t *testing.T) {
	some := Some("abc")
	v, ok := some.Get()
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
	assert.Equal(t, "abc", some.OrElse("x"))

	none := None[string]()
	assert.False(t, none.IsSome())
	assert.Equal(t, "x", none.OrElse("x"))
	assert.Equal(t, some, none.Or(some))
	assert.Equal(t, some, some.Or(Some("other")))
}

func TestValueZeroIsNotEmptyString(t *testing.T) {
	empty := Some("")
	assert.True(t, empty.IsSome())
	assert.False(t, None[string]().IsSome())
}

func TestValueJSON(t *testing.T) {
	type meta struct {
		ETag Value[string] `json:"etag"`
		At   Value[int64]  `json:"at"`
	}

	data, err := json.Marshal(meta{ETag: Some("abc")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"etag":"abc","at":null}`, string(data))

	var decoded meta
	require.NoError(t, json.Unmarshal([]byte(`{"etag":null,"at":1000}`), &decoded))
	assert.False(t, decoded.ETag.IsSome())
	assert.Equal(t, int64(1000), decoded.At.OrElse(0))

	assert.Error(t, json.Unmarshal([]byte(`{"at":"soon"}`), &decoded))
}

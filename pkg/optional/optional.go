// Package optional 提供显式的可选值类型，区分"未知"与零值
package optional

import (
	"bytes"
	"encoding/json"
)

// Value 可选值，JSON 中以 null 表示缺失
type Value[T any] struct {
	v  T
	ok bool
}

// Some 创建有值的可选值
func Some[T any](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

// None 创建空的可选值
func None[T any]() Value[T] {
	return Value[T]{}
}

// Get 取值
func (o Value[T]) Get() (T, bool) {
	return o.v, o.ok
}

// IsSome 是否有值
func (o Value[T]) IsSome() bool {
	return o.ok
}

// OrElse 有值时返回值，否则返回默认值
func (o Value[T]) OrElse(def T) T {
	if o.ok {
		return o.v
	}
	return def
}

// Or 当前为空时返回 other
func (o Value[T]) Or(other Value[T]) Value[T] {
	if o.ok {
		return o
	}
	return other
}

// MarshalJSON 实现 json.Marshaler
func (o Value[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.v)
}

// UnmarshalJSON 实现 json.Unmarshaler
func (o *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

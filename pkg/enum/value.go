package enum

import (
	"encoding/json"
	"errors"
)

// Value 枚举成员，零值表示未设置
type Value struct {
	enum *Enum
	idx  int
	name string
}

func (v Value) Name() string   { return v.name }
func (v Value) String() string { return v.name }
func (v Value) Index() int     { return v.idx }
func (v Value) Enum() *Enum    { return v.enum }
func (v Value) IsZero() bool   { return v.enum == nil }

// Equal 同一枚举的同一成员才相等
func (v Value) Equal(o Value) bool {
	return v.enum != nil && v.enum == o.enum && v.idx == o.idx
}

func (v Value) MarshalText() ([]byte, error) {
	if v.IsZero() {
		return nil, errors.New("enum: marshal of unset value")
	}
	return []byte(v.name), nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(v.name)
}

// MarshalYAML 实现 yaml.Marshaler
func (v Value) MarshalYAML() (interface{}, error) {
	if v.IsZero() {
		return nil, nil
	}
	return v.name, nil
}

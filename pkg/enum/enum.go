package enum

import (
	"fmt"
	"strings"
)

// Enum 一组有序、具名的符号值，第一个成员即初始值
type Enum struct {
	name    string
	members []Value
	index   map[string]int
}

// New 按声明顺序创建枚举，名称大小写不敏感且不可重复
func New(name string, members ...string) (*Enum, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: %s has no members", ErrInvalidDefinition, name)
	}

	e := &Enum{
		name:    name,
		members: make([]Value, 0, len(members)),
		index:   make(map[string]int, len(members)),
	}
	for i, m := range members {
		key := normalize(m)
		if key == "" {
			return nil, fmt.Errorf("%w: %s has an empty member at %d", ErrInvalidDefinition, name, i)
		}
		if _, dup := e.index[key]; dup {
			return nil, fmt.Errorf("%w: %s declares %q twice", ErrInvalidDefinition, name, m)
		}
		e.index[key] = i
		e.members = append(e.members, Value{enum: e, idx: i, name: strings.TrimSpace(m)})
	}
	return e, nil
}

// MustNew 同 New，定义非法时 panic
func MustNew(name string, members ...string) *Enum {
	e, err := New(name, members...)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Enum) Name() string { return e.name }
func (e *Enum) Len() int     { return len(e.members) }

// Members 按声明顺序返回全部成员
func (e *Enum) Members() []Value {
	return append([]Value(nil), e.members...)
}

// Initial 返回首个声明的成员
func (e *Enum) Initial() Value {
	return e.members[0]
}

// Coerce 将任意输入转换为枚举成员。
// 支持同一枚举的 Value、字符串（忽略大小写和首尾空白）、fmt.Stringer 以及序号。
// 其他枚举的 Value 即使同名也不接受。
func (e *Enum) Coerce(v interface{}) (Value, error) {
	switch x := v.(type) {
	case Value:
		if x.enum == e {
			return x, nil
		}
		if x.enum != nil {
			return Value{}, fmt.Errorf("%w: %s belongs to %s, not %s", ErrInvalidValue, x.name, x.enum.name, e.name)
		}
	case string:
		return e.Parse(x)
	case int:
		if x >= 0 && x < len(e.members) {
			return e.members[x], nil
		}
	case fmt.Stringer:
		return e.Parse(x.String())
	}
	return Value{}, fmt.Errorf("%w: %v is not a member of %s", ErrInvalidValue, v, e.name)
}

// Parse 按名称查找成员
func (e *Enum) Parse(name string) (Value, error) {
	if i, ok := e.index[normalize(name)]; ok {
		return e.members[i], nil
	}
	return Value{}, fmt.Errorf("%w: %q is not a member of %s", ErrInvalidValue, name, e.name)
}

// MustParse 同 Parse，失败时 panic，仅用于常量定义
func (e *Enum) MustParse(name string) Value {
	v, err := e.Parse(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Contains 判断输入能否转换为本枚举的成员
func (e *Enum) Contains(v interface{}) bool {
	_, err := e.Coerce(v)
	return err == nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

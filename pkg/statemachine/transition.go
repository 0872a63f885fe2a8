package statemachine

import (
	"fmt"

	"github.com/junbin-yang/go-realtime/pkg/enum"
)

// Transition 一次进行中的转换，按引用传给本次转换的所有钩子
type Transition struct {
	From     enum.Value // 源状态
	To       enum.Value // 目标状态
	Metadata Metadata   // 附带数据
}

// MetadataKind 附带数据的类型
type MetadataKind int

const (
	MetadataNone MetadataKind = iota
	MetadataError
	MetadataParams
)

func (k MetadataKind) String() string {
	switch k {
	case MetadataError:
		return "error"
	case MetadataParams:
		return "params"
	}
	return "none"
}

func (k MetadataKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Metadata 转换附带数据：无、错误、或参数（如 attach 参数）
type Metadata struct {
	kind   MetadataKind
	err    error
	params map[string]string
}

// NoMetadata 不携带数据
func NoMetadata() Metadata { return Metadata{} }

// ErrorMetadata 携带错误原因，err 为 nil 时等同 NoMetadata
func ErrorMetadata(err error) Metadata {
	if err == nil {
		return Metadata{}
	}
	return Metadata{kind: MetadataError, err: err}
}

// ParamsMetadata 携带参数，参数会被复制
func ParamsMetadata(params map[string]string) Metadata {
	cp := make(map[string]string, len(params))
	for k, v := range params {
		cp[k] = v
	}
	return Metadata{kind: MetadataParams, params: cp}
}

func (m Metadata) Kind() MetadataKind { return m.kind }
func (m Metadata) IsNone() bool       { return m.kind == MetadataNone }
func (m Metadata) IsError() bool      { return m.kind == MetadataError }

// Err 返回错误原因，非错误类型返回 nil
func (m Metadata) Err() error { return m.err }

// Params 返回参数的副本
func (m Metadata) Params() map[string]string {
	if m.kind != MetadataParams {
		return nil
	}
	cp := make(map[string]string, len(m.params))
	for k, v := range m.params {
		cp[k] = v
	}
	return cp
}

func (m Metadata) String() string {
	switch m.kind {
	case MetadataError:
		return "error(" + m.err.Error() + ")"
	case MetadataParams:
		return fmt.Sprintf("params(%v)", m.params)
	}
	return "none"
}

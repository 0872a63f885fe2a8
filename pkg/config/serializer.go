package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v2"
)

// Serializer 定义序列化/反序列化接口，支持扩展不同格式
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)      // 序列化
	Unmarshal(data []byte, v interface{}) error // 反序列化
	GetFileExt() string                         // 获取文件扩展名（如.yml/.json）
	GetName() string                            // 获取格式名称（如yaml/json）
}

// SerializerByName 按格式名称查找内置序列化器
func SerializerByName(name string) (Serializer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "yaml", "yml":
		return &YAMLSerializer{}, nil
	case "json":
		return &JSONSerializer{}, nil
	case "ini":
		return &INISerializer{}, nil
	}
	return nil, fmt.Errorf("%w: format %q", ErrUnsupportedValue, name)
}

// YAMLSerializer YAML序列化实现
type YAMLSerializer struct{}

func (y *YAMLSerializer) Marshal(v interface{}) ([]byte, error)      { return yaml.Marshal(v) }
func (y *YAMLSerializer) Unmarshal(data []byte, v interface{}) error { return yaml.UnmarshalStrict(data, v) }
func (y *YAMLSerializer) GetFileExt() string                         { return ".yml" }
func (y *YAMLSerializer) GetName() string                            { return "yaml" }

// JSONSerializer JSON序列化实现
type JSONSerializer struct{}

func (j *JSONSerializer) Marshal(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (j *JSONSerializer) Unmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (j *JSONSerializer) GetFileExt() string { return ".json" }
func (j *JSONSerializer) GetName() string    { return "json" }

// INISerializer INI序列化实现，结构体字段通过 ini 标签映射到分区
type INISerializer struct{}

func (i *INISerializer) Marshal(v interface{}) ([]byte, error) {
	cfg := ini.Empty()
	if err := cfg.ReflectFrom(v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (i *INISerializer) Unmarshal(data []byte, v interface{}) error {
	cfg, err := ini.Load(data)
	if err != nil {
		return err
	}
	return cfg.MapTo(v)
}

func (i *INISerializer) GetFileExt() string { return ".ini" }
func (i *INISerializer) GetName() string    { return "ini" }

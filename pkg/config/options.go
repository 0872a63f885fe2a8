package config

import (
	"time"

	"github.com/junbin-yang/go-realtime/pkg/logger"
)

// Option 配置管理器选项
type Option func(*settings)

type settings struct {
	appName          string
	serializer       Serializer
	forceFormat      Serializer
	supportedFormats []Serializer
	defaultPaths     []string
	enableWatch      bool
	debounce         time.Duration
	log              logger.Logger
}

func defaultSettings() *settings {
	return &settings{
		appName:          "realtime",
		serializer:       &YAMLSerializer{},
		supportedFormats: []Serializer{&YAMLSerializer{}, &JSONSerializer{}, &INISerializer{}},
		defaultPaths: []string{
			"./{{.AppName}}",
			"{{.ExecDir}}/{{.AppName}}",
			"/etc/{{.AppName}}",
		},
		debounce: 500 * time.Millisecond,
	}
}

// WithAppName 设置应用名称（用于默认配置文件名）
func WithAppName(name string) Option {
	return func(s *settings) {
		s.appName = name
	}
}

// WithSerializer 设置默认序列化器
func WithSerializer(ser Serializer) Option {
	return func(s *settings) {
		s.serializer = ser
	}
}

// WithForceFormat 强制指定配置格式（无视文件后缀）
func WithForceFormat(ser Serializer) Option {
	return func(s *settings) {
		s.forceFormat = ser
	}
}

// WithDefaultPaths 设置默认配置文件查找路径，支持 {{.AppName}} 和 {{.ExecDir}}
func WithDefaultPaths(paths ...string) Option {
	return func(s *settings) {
		s.defaultPaths = paths
	}
}

// WithConfigFormats 设置支持的配置格式列表
func WithConfigFormats(formats ...Serializer) Option {
	return func(s *settings) {
		s.supportedFormats = formats
	}
}

// WithWatch 启用配置文件监听，interval 为防抖间隔
func WithWatch(interval time.Duration) Option {
	return func(s *settings) {
		s.enableWatch = true
		if interval > 0 {
			s.debounce = interval
		}
	}
}

// WithLogger 设置重载日志
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		s.log = l
	}
}

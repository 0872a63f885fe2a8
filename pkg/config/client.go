package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	"github.com/junbin-yang/go-realtime/pkg/logger"
	sm "github.com/junbin-yang/go-realtime/pkg/statemachine"
)

// 日志轮转方式
const (
	RotateNone = "none"
	RotateSize = "size"
	RotateTime = "time"
)

// ClientConfig 实时客户端配置
type ClientConfig struct {
	Log          LogConfig          `yaml:"log" json:"log" ini:"log"`
	StateMachine StateMachineConfig `yaml:"state_machine" json:"state_machine" ini:"state_machine"`
	Reactor      ReactorConfig      `yaml:"reactor" json:"reactor" ini:"reactor"`
}

type LogConfig struct {
	Level      string `yaml:"level" json:"level" ini:"level" env:"REALTIME_LOG_LEVEL"`
	Path       string `yaml:"path" json:"path" ini:"path" env:"REALTIME_LOG_PATH"` // 为空时输出到 stderr
	Rotate     string `yaml:"rotate" json:"rotate" ini:"rotate" env:"REALTIME_LOG_ROTATE"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb" ini:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups" ini:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days" ini:"max_age_days"`
}

type StateMachineConfig struct {
	HookFaultPolicy string `yaml:"hook_fault_policy" json:"hook_fault_policy" ini:"hook_fault_policy" env:"REALTIME_HOOK_FAULT_POLICY"`
	MaxDepth        int    `yaml:"max_depth" json:"max_depth" ini:"max_depth" env:"REALTIME_MAX_DEPTH"`
	HistoryLimit    int    `yaml:"history_limit" json:"history_limit" ini:"history_limit" env:"REALTIME_HISTORY_LIMIT"`
}

type ReactorConfig struct {
	QueueSize int `yaml:"queue_size" json:"queue_size" ini:"queue_size" env:"REALTIME_REACTOR_QUEUE_SIZE"`
}

// Defaults 返回填充默认值的配置
func Defaults() *ClientConfig {
	cfg := &ClientConfig{}
	cfg.SetDefaults()
	return cfg
}

func (c *ClientConfig) SetDefaults() {
	c.Log = LogConfig{
		Level:      "info",
		Rotate:     RotateNone,
		MaxSizeMB:  100,
		MaxBackups: 10,
		MaxAgeDays: 30,
	}
	c.StateMachine = StateMachineConfig{
		HookFaultPolicy: sm.ContinueOnFault.String(),
		MaxDepth:        sm.DefaultMaxDepth,
		HistoryLimit:    0,
	}
	c.Reactor = ReactorConfig{QueueSize: 64}
}

// Validate 汇总所有非法字段
func (c *ClientConfig) Validate() error {
	var errs error
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.Log.Rotate) {
	case "", RotateNone, RotateSize, RotateTime:
	default:
		errs = multierr.Append(errs, fmt.Errorf("log.rotate: unknown mode %q", c.Log.Rotate))
	}
	if c.Log.Rotate != "" && c.Log.Rotate != RotateNone && c.Log.Path == "" {
		errs = multierr.Append(errs, fmt.Errorf("log.path: required when rotate is %q", c.Log.Rotate))
	}
	if _, err := sm.ParseFaultPolicy(c.StateMachine.HookFaultPolicy); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("state_machine.hook_fault_policy: %w", err))
	}
	if c.StateMachine.MaxDepth < 1 {
		errs = multierr.Append(errs, fmt.Errorf("state_machine.max_depth: must be positive, got %d", c.StateMachine.MaxDepth))
	}
	if c.StateMachine.HistoryLimit < 0 {
		errs = multierr.Append(errs, fmt.Errorf("state_machine.history_limit: must not be negative, got %d", c.StateMachine.HistoryLimit))
	}
	if c.Reactor.QueueSize < 0 {
		errs = multierr.Append(errs, fmt.Errorf("reactor.queue_size: must not be negative, got %d", c.Reactor.QueueSize))
	}
	return errs
}

// FaultPolicy 解析钩子出错策略，非法值按默认策略处理
func (c *ClientConfig) FaultPolicy() sm.FaultPolicy {
	p, err := sm.ParseFaultPolicy(c.StateMachine.HookFaultPolicy)
	if err != nil {
		return sm.ContinueOnFault
	}
	return p
}

// MachineOptions 将状态机配置转换为实例选项
func (c *ClientConfig) MachineOptions(l logger.Logger) []sm.MachineOption {
	opts := []sm.MachineOption{
		sm.WithFaultPolicy(c.FaultPolicy()),
		sm.WithMaxDepth(c.StateMachine.MaxDepth),
		sm.WithHistory(c.StateMachine.HistoryLimit),
	}
	if l != nil {
		opts = append(opts, sm.WithLogger(l))
	}
	return opts
}

// BuildLogger 按日志配置创建 zap 日志
func (c *ClientConfig) BuildLogger(opts ...logger.Option) (*logger.ZapLogger, error) {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	out, err := c.logWriter()
	if err != nil {
		return nil, err
	}
	return logger.New(out, level, opts...), nil
}

func (c *ClientConfig) logWriter() (io.Writer, error) {
	if c.Log.Path == "" {
		return os.Stderr, nil
	}
	rc := &logger.RotateConfig{
		Filename:   c.Log.Path,
		MaxSize:    c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAgeDays,
		LocalTime:  true,
	}
	switch strings.ToLower(c.Log.Rotate) {
	case RotateSize:
		return logger.NewRotateBySize(rc), nil
	case RotateTime:
		return logger.NewRotateByTime(rc), nil
	}

	if err := os.MkdirAll(filepath.Dir(c.Log.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir failed: %w", err)
	}
	return os.OpenFile(c.Log.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

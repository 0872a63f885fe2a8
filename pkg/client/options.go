package client

import (
	"context"
	"os"
	"time"

	"github.com/junbin-yang/go-realtime/pkg/config"
	"github.com/junbin-yang/go-realtime/pkg/logger"
)

// Option 客户端选项
type Option func(*Client)

// WithLogger 使用外部日志，不再按配置创建
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithSignals 设置触发退出的信号，不传则不监听信号
func WithSignals(signals ...os.Signal) Option {
	return func(c *Client) {
		c.signals = signals
	}
}

// WithShutdownTimeout 设置退出超时时间
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.shutdownTimeout = timeout
	}
}

// WithConfigManager 跟随配置热更新调整日志级别，退出时关闭管理器
func WithConfigManager(m *config.Manager[config.ClientConfig]) Option {
	return func(c *Client) {
		c.cfgManager = m
	}
}

// HookFunc 启动/退出钩子
type HookFunc func(ctx context.Context) error

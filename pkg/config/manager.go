package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/junbin-yang/go-realtime/pkg/logger"
)

// Defaulter 配置类型实现后，每次解析前先填充默认值
type Defaulter interface {
	SetDefaults()
}

// Validator 配置类型实现后，加载和重载都会校验，重载校验失败时保留旧配置
type Validator interface {
	Validate() error
}

// Manager 通用配置管理器
type Manager[T any] struct {
	opts       *settings
	log        logger.Logger
	serializer Serializer // 当前使用的序列化器

	mu         sync.RWMutex
	instance   *T     // 配置实例
	configPath string // 配置文件路径
	loaded     bool
	closed     bool

	// 配置监听相关
	watcher   *fsnotify.Watcher
	watchQuit chan struct{}
	watchDone chan struct{}

	// 配置变更回调
	callbacks []func(old, new *T)
}

// New 创建配置管理器，未加载前 Get 返回默认值
func New[T any](options ...Option) *Manager[T] {
	opts := defaultSettings()
	for _, opt := range options {
		opt(opts)
	}
	if opts.log == nil {
		opts.log = logger.Default()
	}
	return &Manager[T]{
		opts:       opts,
		log:        opts.log.With(logger.String("component", "config")),
		serializer: opts.serializer,
		instance:   newInstance[T](),
	}
}

// Load 加载配置文件
// customPath: 自定义配置路径，空字符串使用默认路径
func (m *Manager[T]) Load(customPath string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}

	path, serializer, err := m.resolve(customPath)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	cfg, err := m.decode(path, serializer)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	m.configPath, m.serializer = path, serializer
	m.instance, m.loaded = cfg, true
	watch := m.opts.enableWatch
	m.mu.Unlock()

	m.log.Info("config loaded",
		logger.String("path", path),
		logger.String("format", serializer.GetName()))

	if watch {
		return m.startWatch()
	}
	return nil
}

// Get 返回当前配置，重载会替换实例而不是原地修改
func (m *Manager[T]) Get() *T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instance
}

// Path 已加载的配置文件路径
func (m *Manager[T]) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configPath
}

// Save 保存配置到文件，未加载时写入 path
func (m *Manager[T]) Save(cfg *T, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if path == "" {
		path = m.configPath
	}
	if path == "" {
		return ErrNotLoaded
	}

	serializer := m.serializer
	if m.opts.forceFormat == nil {
		serializer = m.serializerFor(path)
	}
	data, err := serializer.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config failed: %w", err)
	}

	// 先写入临时文件（避免文件损坏）
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp config failed: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config failed: %w", err)
	}

	m.instance = cfg
	return nil
}

// Reload 重新读取配置文件并通知回调
func (m *Manager[T]) Reload() error {
	m.mu.RLock()
	path, serializer, loaded := m.configPath, m.serializer, m.loaded
	m.mu.RUnlock()

	if !loaded {
		return ErrNotLoaded
	}
	if err := validateConfigPath(path); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}

	cfg, err := m.decode(path, serializer)
	if err != nil {
		return err
	}

	m.mu.Lock()
	old := m.instance
	m.instance = cfg
	callbacks := make([]func(old, new *T), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	// 回调在锁外执行
	for _, cb := range callbacks {
		cb(old, cfg)
	}
	return nil
}

// OnChange 注册配置变更回调
func (m *Manager[T]) OnChange(cb func(old, new *T)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// Close 停止监听，可重复调用
func (m *Manager[T]) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	watcher, quit, done := m.watcher, m.watchQuit, m.watchDone
	m.watcher = nil
	m.mu.Unlock()

	if watcher == nil {
		return nil
	}
	close(quit)
	err := watcher.Close()
	<-done
	return err
}

/* ------------------------------ 内部方法 ------------------------------ */

func newInstance[T any]() *T {
	cfg := new(T)
	if d, ok := any(cfg).(Defaulter); ok {
		d.SetDefaults()
	}
	return cfg
}

// decode 解析文件到新实例：默认值 -> 文件 -> 环境变量 -> 校验
func (m *Manager[T]) decode(path string, serializer Serializer) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}

	cfg := newInstance[T]()
	if err := serializer.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal failed (%s): %v", ErrInvalidConfig, serializer.GetName(), err)
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides failed: %w", err)
	}
	if v, ok := any(cfg).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return cfg, nil
}

// resolve 确定配置路径和序列化器（强制格式 > 后缀识别 > 默认）
func (m *Manager[T]) resolve(customPath string) (string, Serializer, error) {
	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return "", nil, fmt.Errorf("invalid custom config path: %w", err)
		}
		return customPath, m.serializerFor(customPath), nil
	}
	return m.findDefaultConfigPath()
}

func (m *Manager[T]) serializerFor(path string) Serializer {
	if m.opts.forceFormat != nil {
		return m.opts.forceFormat
	}
	ext := filepath.Ext(path)
	for _, format := range m.opts.supportedFormats {
		if format.GetFileExt() == ext {
			return format
		}
	}
	// 无后缀时使用默认序列化器
	return m.opts.serializer
}

// findDefaultConfigPath 查找默认配置路径
func (m *Manager[T]) findDefaultConfigPath() (string, Serializer, error) {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)

	for _, pathTpl := range m.opts.defaultPaths {
		basePath := replacePathVars(pathTpl, map[string]string{
			"AppName": m.opts.appName,
			"ExecDir": execDir,
		})

		// 先尝试无后缀文件
		if err := validateConfigPath(basePath); err == nil {
			return basePath, m.serializerFor(basePath), nil
		}

		for _, format := range m.opts.supportedFormats {
			fullPath := basePath + format.GetFileExt()
			if err := validateConfigPath(fullPath); err == nil {
				if m.opts.forceFormat != nil {
					return fullPath, m.opts.forceFormat, nil
				}
				return fullPath, format, nil
			}
		}
	}

	return "", nil, fmt.Errorf("%w: tried %d default paths", ErrConfigNotFound, len(m.opts.defaultPaths))
}

// startWatch 监听配置文件所在目录，编辑器的改名保存也能捕获
func (m *Manager[T]) startWatch() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher failed: %w", err)
	}
	if err := watcher.Add(filepath.Dir(m.configPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("add watch path failed: %w", err)
	}

	m.watcher = watcher
	m.watchQuit = make(chan struct{})
	m.watchDone = make(chan struct{})
	go m.watchLoop(watcher, m.configPath, m.watchQuit, m.watchDone)
	return nil
}

// watchLoop 监听文件变化循环
func (m *Manager[T]) watchLoop(w *fsnotify.Watcher, path string, quit, done chan struct{}) {
	defer close(done)

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	target := filepath.Clean(path)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce.Reset(m.opts.debounce)
			}

		case <-debounce.C:
			if err := m.Reload(); err != nil {
				m.log.Error("config auto reload failed", logger.String("path", path), logger.Err(err))
			} else {
				m.log.Info("config auto reloaded", logger.String("path", path))
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			m.log.Warn("config watch error", logger.Err(err))

		case <-quit:
			return
		}
	}
}

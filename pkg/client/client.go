package client

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/junbin-yang/go-realtime/pkg/channel"
	"github.com/junbin-yang/go-realtime/pkg/config"
	"github.com/junbin-yang/go-realtime/pkg/connection"
	"github.com/junbin-yang/go-realtime/pkg/event"
	"github.com/junbin-yang/go-realtime/pkg/logger"
	"github.com/junbin-yang/go-realtime/pkg/protocol"
	"github.com/junbin-yang/go-realtime/pkg/state"
	sm "github.com/junbin-yang/go-realtime/pkg/statemachine"
)

// ConnectionFactory 创建连接管理器，管理器通过 Client.Post 回报结果
type ConnectionFactory func(cl *Client, c *connection.Connection) connection.Manager

// ChannelFactory 创建频道管理器
type ChannelFactory func(cl *Client, ch *channel.Channel) channel.Manager

// Client 实时客户端运行时。
// 连接和频道上的所有转换都在 Reactor 中执行；
// 连接进入 failed 时所有频道随之失败。
type Client struct {
	cfg        *config.ClientConfig
	cfgManager *config.Manager[config.ClientConfig]
	log        logger.Logger
	reactor    *sm.Reactor
	conn       *connection.Connection
	channels   *channel.Channels

	signals         []os.Signal
	shutdownTimeout time.Duration

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	onStartup  []HookFunc
	onShutdown []HookFunc
}

// New 按配置创建客户端，此时尚未连接
func New(cfg *config.ClientConfig, connF ConnectionFactory, chF ChannelFactory, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cl := &Client{
		cfg:             cfg,
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		shutdownTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cl)
	}
	if cl.log == nil {
		l, err := cfg.BuildLogger(logger.AddCaller())
		if err != nil {
			return nil, err
		}
		cl.log = l
	}

	cl.reactor = sm.NewReactor(cfg.Reactor.QueueSize, cl.log)

	conn, err := connection.New(func(c *connection.Connection) connection.Manager {
		return connF(cl, c)
	}, cl.log, cfg.MachineOptions(nil)...)
	if err != nil {
		return nil, err
	}
	cl.conn = conn

	cl.channels = channel.NewChannels(func(ch *channel.Channel) channel.Manager {
		return chF(cl, ch)
	},
		channel.WithLogger(cl.log),
		channel.WithHistory(cfg.StateMachine.HistoryLimit),
		channel.WithFaultPolicy(cfg.FaultPolicy()),
		channel.WithMaxDepth(cfg.StateMachine.MaxDepth),
	)

	conn.On(connection.Failed, cl.connectionFailed)
	if cl.cfgManager != nil {
		cl.cfgManager.OnChange(cl.configChanged)
	}
	return cl, nil
}

func (cl *Client) Config() *config.ClientConfig       { return cl.cfg }
func (cl *Client) Logger() logger.Logger              { return cl.log }
func (cl *Client) Reactor() *sm.Reactor               { return cl.reactor }
func (cl *Client) Connection() *connection.Connection { return cl.conn }
func (cl *Client) Channels() *channel.Channels        { return cl.channels }

// Post 将管理器的异步结果投递到事件循环
func (cl *Client) Post(ctx context.Context, fn func()) error {
	return cl.reactor.Post(ctx, fn)
}

// Call 在事件循环中执行并等待结果
func (cl *Client) Call(ctx context.Context, fn func() error) error {
	return cl.reactor.Call(ctx, fn)
}

// Attach 获取并附加频道
func (cl *Client) Attach(ctx context.Context, name string) (*channel.Channel, error) {
	ch, err := cl.channels.Get(name)
	if err != nil {
		return nil, err
	}
	return ch, cl.Call(ctx, ch.Attach)
}

// Detach 分离频道，频道不存在时直接返回
func (cl *Client) Detach(ctx context.Context, name string) error {
	return cl.Call(ctx, func() error {
		return cl.channels.Release(name)
	})
}

// OnStartup 注册启动钩子，在连接之前按注册顺序执行
func (cl *Client) OnStartup(fn HookFunc) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.onStartup = append(cl.onStartup, fn)
}

// OnShutdown 注册退出钩子，在连接关闭之后执行
func (cl *Client) OnShutdown(fn HookFunc) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.onShutdown = append(cl.onShutdown, fn)
}

// Run 启动事件循环并连接，阻塞到 ctx 取消、收到信号或调用 Shutdown
func (cl *Client) Run(ctx context.Context) error {
	cl.mu.Lock()
	if cl.running {
		cl.mu.Unlock()
		return ErrAlreadyRunning
	}
	cl.running = true
	ctx, cancel := context.WithCancel(ctx)
	cl.cancel = cancel
	startup := append([]HookFunc(nil), cl.onStartup...)
	cl.mu.Unlock()
	defer cancel()

	cl.reactor.Start()

	for _, fn := range startup {
		if err := fn(ctx); err != nil {
			return multierr.Append(err, cl.shutdown())
		}
	}
	if err := cl.Call(ctx, cl.conn.Connect); err != nil {
		if !errors.Is(err, sm.ErrHookFault) {
			return multierr.Append(err, cl.shutdown())
		}
		cl.log.Warn("connect hook fault", logger.Err(err))
	}
	cl.log.Info("client started")

	sigChan := make(chan os.Signal, 1)
	if len(cl.signals) > 0 {
		signal.Notify(sigChan, cl.signals...)
		defer signal.Stop(sigChan)
	}

	select {
	case sig := <-sigChan:
		cl.log.Info("received signal", logger.Stringer("signal", sig))
	case <-ctx.Done():
	}
	return cl.shutdown()
}

// Shutdown 触发退出，Run 返回退出结果
func (cl *Client) Shutdown() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if !cl.running || cl.cancel == nil {
		return ErrNotRunning
	}
	cl.cancel()
	return nil
}

// shutdown 分离频道 -> 关闭连接并等待 closed -> 停止事件循环 -> 退出钩子
func (cl *Client) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), cl.shutdownTimeout)
	defer cancel()

	var errs error
	for _, name := range cl.channels.Names() {
		errs = multierr.Append(errs, cl.Detach(ctx, name))
	}
	if err := cl.closeConnection(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	cl.reactor.Stop()

	cl.mu.Lock()
	hooks := append([]HookFunc(nil), cl.onShutdown...)
	cl.running = false
	cl.mu.Unlock()

	for _, fn := range hooks {
		errs = multierr.Append(errs, fn(ctx))
	}
	if cl.cfgManager != nil {
		errs = multierr.Append(errs, cl.cfgManager.Close())
	}

	if errs != nil {
		cl.log.Error("client shutdown with errors", logger.Err(errs))
	} else {
		cl.log.Info("client stopped")
	}
	_ = cl.log.Sync()
	return errs
}

func (cl *Client) closeConnection(ctx context.Context) error {
	closed := make(chan struct{})
	var once sync.Once
	var reg *event.Registration

	err := cl.Call(ctx, func() error {
		if cl.conn.Is(connection.Closed) || cl.conn.Is(connection.Failed) {
			close(closed)
			return nil
		}
		r := cl.conn.On(connection.Closed, func(state.Change) {
			once.Do(func() { close(closed) })
		})
		if err := cl.conn.Close(); err != nil {
			cl.conn.Off(r)
			return err
		}
		reg = r
		return nil
	})
	if err != nil {
		return err
	}
	if reg != nil {
		defer cl.conn.Off(reg)
	}

	select {
	case <-closed:
		return nil
	case <-ctx.Done():
		cl.log.Warn("connection close not acknowledged", logger.Stringer("state", cl.conn.State()))
		return ErrShutdownTimeout
	}
}

// connectionFailed 在 Reactor 中执行
func (cl *Client) connectionFailed(state.Change) {
	var reason error = protocol.NewErrorInfo(protocol.CodeConnectionFailed, 0, "connection failed")
	if info := cl.conn.ErrorReason(); info != nil {
		reason = info
	}
	for name, err := range cl.channels.FailAll(reason) {
		if err != nil {
			cl.log.Error("fail channel", logger.String("channel", name), logger.Err(err))
		}
	}
}

func (cl *Client) configChanged(old, cur *config.ClientConfig) {
	if old.Log.Level == cur.Log.Level {
		return
	}
	level, err := logger.ParseLevel(cur.Log.Level)
	if err != nil {
		return
	}
	cl.log.SetLevel(level)
	cl.log.Info("log level changed", logger.String("from", old.Log.Level), logger.String("to", cur.Log.Level))
}

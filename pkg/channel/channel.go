package channel

import (
	"sync"

	"github.com/junbin-yang/go-realtime/pkg/enum"
	"github.com/junbin-yang/go-realtime/pkg/event"
	"github.com/junbin-yang/go-realtime/pkg/logger"
	"github.com/junbin-yang/go-realtime/pkg/protocol"
	"github.com/junbin-yang/go-realtime/pkg/state"
	sm "github.com/junbin-yang/go-realtime/pkg/statemachine"
)

// Channel 实时频道，生命周期完全由状态机驱动
type Channel struct {
	name    string
	holder  *state.Holder
	machine *sm.Machine[*Channel]
	manager Manager
	log     logger.Logger

	mu          sync.RWMutex
	cached      enum.Value
	errorReason *protocol.ErrorInfo
}

// Option 频道选项
type Option func(*options)

type options struct {
	log          logger.Logger
	historyLimit int
	policy       *sm.FaultPolicy
	maxDepth     int
}

// WithLogger 设置日志，频道会附加 channel 字段
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithHistory 记录最近 limit 次状态转换
func WithHistory(limit int) Option {
	return func(o *options) {
		o.historyLimit = limit
	}
}

// WithFaultPolicy 覆盖钩子出错策略
func WithFaultPolicy(p sm.FaultPolicy) Option {
	return func(o *options) {
		o.policy = &p
	}
}

// WithMaxDepth 设置嵌套转换上限
func WithMaxDepth(n int) Option {
	return func(o *options) {
		o.maxDepth = n
	}
}

// New 创建频道及其状态机
func New(name string, factory ManagerFactory, opts ...Option) (*Channel, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Default()
	}

	holder, err := state.New(States)
	if err != nil {
		return nil, err
	}

	ch := &Channel{
		name:   name,
		holder: holder,
		log:    o.log.With(logger.String("channel", name)),
		cached: holder.State(),
	}
	ch.manager = factory(ch)

	machineOpts := []sm.MachineOption{sm.WithLogger(ch.log), sm.WithHistory(o.historyLimit)}
	if o.policy != nil {
		machineOpts = append(machineOpts, sm.WithFaultPolicy(*o.policy))
	}
	if o.maxDepth > 0 {
		machineOpts = append(machineOpts, sm.WithMaxDepth(o.maxDepth))
	}
	if ch.machine, err = sm.New(definition, ch, machineOpts...); err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *Channel) Name() string               { return c.name }
func (c *Channel) Manager() Manager           { return c.manager }
func (c *Channel) Logger() logger.Logger      { return c.log }
func (c *Channel) StateHolder() *state.Holder { return c.holder }
func (c *Channel) History() *sm.History       { return c.machine.History() }

// State 返回状态机的权威状态
func (c *Channel) State() enum.Value {
	return c.holder.State()
}

// Is 判断当前状态
func (c *Channel) Is(s interface{}) bool {
	return c.holder.Is(s)
}

// CachedState 返回频道本地缓存的状态，每次转换后与状态机同步
func (c *Channel) CachedState() enum.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cached
}

// SynchronizeState 状态机在每次转换后调用
func (c *Channel) SynchronizeState() {
	current := c.holder.State()
	c.mu.Lock()
	c.cached = current
	c.mu.Unlock()
}

// ErrorReason 最近一次导致 attached/detached/failed 的错误，没有则为 nil
func (c *Channel) ErrorReason() *protocol.ErrorInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errorReason
}

func (c *Channel) SetErrorReason(reason *protocol.ErrorInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorReason = reason
}

// Can 检查当前状态是否允许转换到 to
func (c *Channel) Can(to interface{}) bool {
	return c.machine.Can(to)
}

// Transition 请求状态转换，供管理器回报网络结果使用
func (c *Channel) Transition(to interface{}, md sm.Metadata) error {
	return c.machine.RequestTransition(to, md)
}

// Attach 请求附加频道，已附加或附加中时直接返回
func (c *Channel) Attach() error {
	if c.Is(Attached) || c.Is(Attaching) {
		return nil
	}
	return c.Transition(Attaching, sm.NoMetadata())
}

// Detach 请求分离频道，已分离或分离中时直接返回
func (c *Channel) Detach() error {
	if c.Is(Detached) || c.Is(Detaching) {
		return nil
	}
	return c.Transition(Detaching, sm.NoMetadata())
}

// On 订阅进入指定状态的通知
func (c *Channel) On(s enum.Value, fn func(state.Change)) *event.Registration {
	return c.holder.Emitter().On(s.Name(), func(args ...interface{}) error {
		if change, ok := args[0].(state.Change); ok {
			fn(change)
		}
		return nil
	})
}

// OnStateChange 订阅所有状态变更
func (c *Channel) OnStateChange(fn func(state.Change)) *event.Registration {
	return c.holder.OnChange(fn)
}

// Off 取消订阅
func (c *Channel) Off(r *event.Registration) {
	c.holder.Emitter().Off(r)
}

// Snapshot 返回诊断用的状态快照
func (c *Channel) Snapshot() *sm.Snapshot {
	return c.machine.CreateSnapshot()
}

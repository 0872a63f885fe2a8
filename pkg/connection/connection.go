package connection

import (
	"sync"

	"github.com/junbin-yang/go-realtime/pkg/enum"
	"github.com/junbin-yang/go-realtime/pkg/event"
	"github.com/junbin-yang/go-realtime/pkg/logger"
	"github.com/junbin-yang/go-realtime/pkg/protocol"
	"github.com/junbin-yang/go-realtime/pkg/state"
	sm "github.com/junbin-yang/go-realtime/pkg/statemachine"
)

// Connection 实时连接，与 Channel 使用同一套状态机引擎
type Connection struct {
	holder  *state.Holder
	machine *sm.Machine[*Connection]
	manager Manager
	log     logger.Logger

	mu          sync.RWMutex
	cached      enum.Value
	errorReason *protocol.ErrorInfo
}

// New 创建连接，machineOpts 透传给状态机实例
func New(factory ManagerFactory, l logger.Logger, machineOpts ...sm.MachineOption) (*Connection, error) {
	if l == nil {
		l = logger.Default()
	}
	holder, err := state.New(States)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		holder: holder,
		log:    l.With(logger.String("component", "connection")),
		cached: holder.State(),
	}
	c.manager = factory(c)

	opts := append([]sm.MachineOption{sm.WithLogger(c.log)}, machineOpts...)
	if c.machine, err = sm.New(definition, c, opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) StateHolder() *state.Holder { return c.holder }
func (c *Connection) Manager() Manager           { return c.manager }
func (c *Connection) Logger() logger.Logger      { return c.log }
func (c *Connection) State() enum.Value          { return c.holder.State() }
func (c *Connection) Is(s interface{}) bool      { return c.holder.Is(s) }

// CachedState 本地缓存的状态
func (c *Connection) CachedState() enum.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cached
}

func (c *Connection) SynchronizeState() {
	current := c.holder.State()
	c.mu.Lock()
	c.cached = current
	c.mu.Unlock()
}

func (c *Connection) ErrorReason() *protocol.ErrorInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errorReason
}

func (c *Connection) SetErrorReason(reason *protocol.ErrorInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorReason = reason
}

// Transition 请求状态转换，供管理器回报传输层结果
func (c *Connection) Transition(to interface{}, md sm.Metadata) error {
	return c.machine.RequestTransition(to, md)
}

// Connect 已连接或连接中时直接返回
func (c *Connection) Connect() error {
	if c.Is(Connected) || c.Is(Connecting) {
		return nil
	}
	return c.Transition(Connecting, sm.NoMetadata())
}

// Close 已关闭或关闭中时直接返回
func (c *Connection) Close() error {
	if c.Is(Closed) || c.Is(Closing) {
		return nil
	}
	return c.Transition(Closing, sm.NoMetadata())
}

// On 订阅进入指定状态的通知
func (c *Connection) On(s enum.Value, fn func(state.Change)) *event.Registration {
	return c.holder.Emitter().On(s.Name(), func(args ...interface{}) error {
		if change, ok := args[0].(state.Change); ok {
			fn(change)
		}
		return nil
	})
}

// OnStateChange 订阅所有状态变更
func (c *Connection) OnStateChange(fn func(state.Change)) *event.Registration {
	return c.holder.OnChange(fn)
}

func (c *Connection) Off(r *event.Registration) { c.holder.Emitter().Off(r) }
func (c *Connection) Can(to interface{}) bool   { return c.machine.Can(to) }
func (c *Connection) History() *sm.History      { return c.machine.History() }

// Snapshot 返回诊断用的状态快照
func (c *Connection) Snapshot() *sm.Snapshot {
	return c.machine.CreateSnapshot()
}

package event

import (
	"fmt"
	"sync"

	"github.com/junbin-yang/go-realtime/pkg/logger"
)

// Listener 事件监听函数，返回的错误只上报给错误接收器，不会影响其他监听者
type Listener func(args ...interface{}) error

// AnyListener 监听所有事件
type AnyListener func(name string, args ...interface{}) error

// ErrorSink 接收监听者的错误（包括 panic）
type ErrorSink func(name string, err error)

// Registration 注册句柄，用于取消订阅
type Registration struct {
	id    uint64
	name  string
	any   bool
	once  bool
	fn    Listener
	anyFn AnyListener
}

// Event 返回注册的事件名，OnAny 注册为空字符串
func (r *Registration) Event() string { return r.name }

// Emitter 同步发布/订阅，按注册顺序分发
type Emitter struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string][]*Registration
	any       []*Registration
	sink      ErrorSink
	log       logger.Logger
}

// Option 分发器选项
type Option func(*Emitter)

// WithErrorSink 设置监听者错误接收器
func WithErrorSink(sink ErrorSink) Option {
	return func(e *Emitter) {
		e.sink = sink
	}
}

// WithLogger 设置默认错误接收器使用的日志
func WithLogger(l logger.Logger) Option {
	return func(e *Emitter) {
		e.log = l
	}
}

func New(opts ...Option) *Emitter {
	e := &Emitter{
		listeners: make(map[string][]*Registration),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Default()
	}
	if e.sink == nil {
		e.sink = func(name string, err error) {
			e.log.Error("event listener failed", logger.String("event", name), logger.Err(err))
		}
	}
	return e
}

// On 注册指定事件的监听者
func (e *Emitter) On(name string, fn Listener) *Registration {
	return e.add(&Registration{name: name, fn: fn})
}

// Once 注册只触发一次的监听者
func (e *Emitter) Once(name string, fn Listener) *Registration {
	return e.add(&Registration{name: name, fn: fn, once: true})
}

// OnAny 注册所有事件的监听者，总在具名监听者之后调用
func (e *Emitter) OnAny(fn AnyListener) *Registration {
	return e.add(&Registration{any: true, anyFn: fn})
}

func (e *Emitter) add(r *Registration) *Registration {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	r.id = e.nextID
	if r.any {
		e.any = append(e.any, r)
	} else {
		e.listeners[r.name] = append(e.listeners[r.name], r)
	}
	return r
}

// Off 取消一个注册，重复调用无副作用
func (e *Emitter) Off(r *Registration) {
	if r == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remove(r)
}

func (e *Emitter) remove(r *Registration) {
	if r.any {
		e.any = without(e.any, r.id)
		return
	}
	regs := without(e.listeners[r.name], r.id)
	if len(regs) == 0 {
		delete(e.listeners, r.name)
	} else {
		e.listeners[r.name] = regs
	}
}

// OffEvent 移除指定事件的全部具名监听者
func (e *Emitter) OffEvent(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, name)
}

// OffAll 移除全部监听者
func (e *Emitter) OffAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = make(map[string][]*Registration)
	e.any = nil
}

// ListenerCount 返回指定事件的具名监听者数量
func (e *Emitter) ListenerCount(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[name])
}

// Emit 同步调用具名监听者和 OnAny 监听者。
// 监听者在锁外执行，允许在回调中再次注册或发布。
func (e *Emitter) Emit(name string, args ...interface{}) {
	e.mu.Lock()
	named := append([]*Registration(nil), e.listeners[name]...)
	anys := append([]*Registration(nil), e.any...)
	for _, r := range named {
		if r.once {
			e.remove(r)
		}
	}
	e.mu.Unlock()

	for _, r := range named {
		e.call(name, func() error { return r.fn(args...) })
	}
	for _, r := range anys {
		e.call(name, func() error { return r.anyFn(name, args...) })
	}
}

func (e *Emitter) call(name string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			e.sink(name, fmt.Errorf("listener panic: %v", rec))
		}
	}()
	if err := fn(); err != nil {
		e.sink(name, err)
	}
}

func without(regs []*Registration, id uint64) []*Registration {
	for i, r := range regs {
		if r.id == id {
			out := make([]*Registration, 0, len(regs)-1)
			out = append(out, regs[:i]...)
			return append(out, regs[i+1:]...)
		}
	}
	return regs
}

package state

import (
	"fmt"
	"sync"

	"github.com/junbin-yang/go-realtime/pkg/enum"
	"github.com/junbin-yang/go-realtime/pkg/event"
)

// EventStateChanged 状态变更通知的事件名
const EventStateChanged = "state changed"

// ErrInvalidStateValue 状态名不属于声明的状态集合
var ErrInvalidStateValue = enum.ErrInvalidValue

// Change 状态变更通知的载荷
type Change struct {
	Previous enum.Value
	Current  enum.Value
}

// Holder 持有实体的当前状态，赋值时做枚举转换并发布变更通知
type Holder struct {
	mu         sync.RWMutex
	states     *enum.Enum
	current    enum.Value
	emitter    *event.Emitter
	predicates map[string]func() bool
}

// Option Holder 选项
type Option func(*holderOptions)

type holderOptions struct {
	initial interface{}
	emitter *event.Emitter
}

// WithInitial 指定初始状态，默认为枚举的首个成员
func WithInitial(v interface{}) Option {
	return func(o *holderOptions) {
		o.initial = v
	}
}

// WithEmitter 复用实体已有的事件分发器
func WithEmitter(e *event.Emitter) Option {
	return func(o *holderOptions) {
		o.emitter = e
	}
}

// New 创建状态持有者，初始状态非法时返回 ErrInvalidStateValue
func New(states *enum.Enum, opts ...Option) (*Holder, error) {
	if states == nil {
		return nil, fmt.Errorf("%w: nil state enum", ErrInvalidStateValue)
	}
	o := &holderOptions{}
	for _, opt := range opts {
		opt(o)
	}

	current := states.Initial()
	if o.initial != nil {
		v, err := states.Coerce(o.initial)
		if err != nil {
			return nil, err
		}
		current = v
	}
	if o.emitter == nil {
		o.emitter = event.New()
	}

	h := &Holder{
		states:     states,
		current:    current,
		emitter:    o.emitter,
		predicates: make(map[string]func() bool, states.Len()),
	}
	for _, m := range states.Members() {
		member := m
		h.predicates[member.Name()] = func() bool { return h.State().Equal(member) }
	}
	return h, nil
}

// MustNew 同 New，失败时 panic
func MustNew(states *enum.Enum, opts ...Option) *Holder {
	h, err := New(states, opts...)
	if err != nil {
		panic(err)
	}
	return h
}

func (h *Holder) States() *enum.Enum      { return h.states }
func (h *Holder) Emitter() *event.Emitter { return h.emitter }

// State 返回当前状态
func (h *Holder) State() enum.Value {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// SetState 转换并替换当前状态，随后发布 "state changed" 与新状态名两个事件。
// 非法输入返回 ErrInvalidStateValue，原状态保持不变。
func (h *Holder) SetState(v interface{}) error {
	next, err := h.states.Coerce(v)
	if err != nil {
		return err
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	change := Change{Previous: prev, Current: next}
	h.emitter.Emit(EventStateChanged, change)
	h.emitter.Emit(next.Name(), change)
	return nil
}

// Is 判断当前状态，无法识别的输入视为 false
func (h *Holder) Is(v interface{}) bool {
	target, err := h.states.Coerce(v)
	if err != nil {
		return false
	}
	return h.State().Equal(target)
}

// Predicate 返回按状态名生成的零参数判断函数，如 Predicate("attached") 等价于 isAttached
func (h *Holder) Predicate(name string) (func() bool, error) {
	v, err := h.states.Parse(name)
	if err != nil {
		return nil, err
	}
	return h.predicates[v.Name()], nil
}

// Predicates 返回全部状态的判断函数表
func (h *Holder) Predicates() map[string]func() bool {
	out := make(map[string]func() bool, len(h.predicates))
	for k, fn := range h.predicates {
		out[k] = fn
	}
	return out
}

// OnChange 订阅状态变更
func (h *Holder) OnChange(fn func(Change)) *event.Registration {
	return h.emitter.On(EventStateChanged, func(args ...interface{}) error {
		if len(args) == 0 {
			return nil
		}
		change, ok := args[0].(Change)
		if !ok {
			return fmt.Errorf("unexpected %s payload %T", EventStateChanged, args[0])
		}
		fn(change)
		return nil
	})
}

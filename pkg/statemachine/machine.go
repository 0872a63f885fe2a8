package statemachine

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/junbin-yang/go-realtime/pkg/enum"
	"github.com/junbin-yang/go-realtime/pkg/logger"
)

// DefaultMaxDepth 钩子内嵌套请求转换的默认上限
const DefaultMaxDepth = 16

// Machine 驱动单个实体的状态机实例。
// 状态以实体的 StateHolder 为准；Machine 不是并发安全的，
// 同一实体的所有转换须在同一个执行线程（见 Reactor）中发起。
type Machine[E Entity] struct {
	def      *Definition[E]
	entity   E
	log      logger.Logger
	history  *History
	policy   FaultPolicy
	maxDepth int
	depth    int
}

// MachineOption 状态机实例选项
type MachineOption func(*machineOptions)

type machineOptions struct {
	log          logger.Logger
	historyLimit int
	policy       *FaultPolicy
	maxDepth     int
}

// WithLogger 设置转换日志
func WithLogger(l logger.Logger) MachineOption {
	return func(o *machineOptions) {
		o.log = l
	}
}

// WithHistory 记录最近 limit 次转换，0 表示不记录
func WithHistory(limit int) MachineOption {
	return func(o *machineOptions) {
		o.historyLimit = limit
	}
}

// WithFaultPolicy 覆盖定义中的钩子出错策略
func WithFaultPolicy(p FaultPolicy) MachineOption {
	return func(o *machineOptions) {
		o.policy = &p
	}
}

// WithMaxDepth 设置嵌套转换上限，n 小于 1 时忽略
func WithMaxDepth(n int) MachineOption {
	return func(o *machineOptions) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// New 为实体创建状态机实例，实体持有实例，实例只反向引用实体
func New[E Entity](def *Definition[E], entity E, opts ...MachineOption) (*Machine[E], error) {
	if def.states != entity.StateHolder().States() {
		return nil, fmt.Errorf("%w: entity holds %s, definition drives %s",
			ErrInvalidStateValue, entity.StateHolder().States().Name(), def.states.Name())
	}

	o := &machineOptions{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Default()
	}

	m := &Machine[E]{
		def:      def,
		entity:   entity,
		log:      o.log,
		policy:   def.policy,
		maxDepth: o.maxDepth,
	}
	if o.policy != nil {
		m.policy = *o.policy
	}
	if o.historyLimit > 0 {
		m.history = NewHistory(o.historyLimit)
	}
	return m, nil
}

func (m *Machine[E]) Definition() *Definition[E] { return m.def }
func (m *Machine[E]) Entity() E                  { return m.entity }

// History 返回转换历史，未启用时为 nil
func (m *Machine[E]) History() *History { return m.history }

// Current 返回实体的当前状态
func (m *Machine[E]) Current() enum.Value {
	return m.entity.StateHolder().State()
}

// Can 检查当前状态是否允许转换到 to
func (m *Machine[E]) Can(to interface{}) bool {
	target, err := m.def.states.Coerce(to)
	if err != nil {
		return false
	}
	return m.def.Permits(m.Current(), target)
}

// RequestTransition 执行一次转换：
// 校验转换表 -> before 钩子 -> 更新实体状态（发布变更通知）-> 同步钩子 -> after 钩子。
// 校验失败时不修改状态也不执行任何钩子；钩子错误汇总后返回，但状态更新不会回滚。
// before 钩子若已把实体转到其他状态，不再写入 to，也不执行 after 钩子，返回 InvalidTransitionError。
func (m *Machine[E]) RequestTransition(to interface{}, md Metadata) error {
	holder := m.entity.StateHolder()

	target, err := m.def.states.Coerce(to)
	if err != nil {
		return err
	}
	from := holder.State()
	if !m.def.Permits(from, target) {
		return &InvalidTransitionError{From: from, To: target}
	}
	if m.depth >= m.maxDepth {
		return fmt.Errorf("%w: %s -> %s at depth %d", ErrReentrancyLimit, from, target, m.depth)
	}

	m.depth++
	defer func() { m.depth-- }()

	t := &Transition{From: from, To: target, Metadata: md}
	m.log.Debug("state transition",
		logger.Stringer("from", from),
		logger.Stringer("to", target),
		logger.Stringer("metadata", md),
		logger.Int("depth", m.depth))

	faults := m.runHooks(BeforePhase, m.def.before, t)
	// before 钩子中的嵌套转换已改变状态时，本次转换作废
	if current := holder.State(); !current.Equal(from) {
		m.log.Warn("state transition superseded by nested transition",
			logger.Stringer("from", from),
			logger.Stringer("to", target),
			logger.Stringer("current", current))
		return multierr.Append(faults, &InvalidTransitionError{From: current, To: target})
	}
	if err := holder.SetState(target); err != nil {
		return multierr.Append(faults, err)
	}
	faults = multierr.Append(faults, m.runHooks(AfterPhase, m.def.after, t))

	if m.history != nil {
		m.history.record(t, faults)
	}
	if faults != nil {
		m.log.Error("state transition hook fault",
			logger.Stringer("from", from),
			logger.Stringer("to", target),
			logger.Err(faults))
	}
	return faults
}

func (m *Machine[E]) runHooks(phase Phase, hooks []hook[E], t *Transition) error {
	// after 阶段的第 0 个是内置同步钩子，序号从 -1 开始
	offset := 0
	if phase == AfterPhase {
		offset = 1
	}

	var faults error
	for i, h := range hooks {
		if !h.matches(t.From, t.To) {
			continue
		}
		if err := m.invoke(h.fn, t); err != nil {
			faults = multierr.Append(faults, &HookError{Phase: phase, Index: i - offset, From: t.From, To: t.To, Err: err})
			if m.policy == AbortOnFault {
				break
			}
		}
		// 嵌套转换已离开源状态，剩余 before 钩子不再适用
		if phase == BeforePhase && !m.Current().Equal(t.From) {
			break
		}
	}
	return faults
}

func (m *Machine[E]) invoke(fn HookFunc[E], t *Transition) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("hook panic: %v", rec)
		}
	}()
	return fn(m.entity, t)
}

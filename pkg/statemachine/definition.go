package statemachine

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/junbin-yang/go-realtime/pkg/enum"
)

// Filter 钩子过滤条件
type Filter func(*filterSpec)

type filterSpec struct {
	to   []interface{}
	from []interface{}
}

// To 仅在目标状态属于给定集合时执行钩子
func To(states ...interface{}) Filter {
	return func(f *filterSpec) {
		f.to = append(f.to, states...)
	}
}

// From 仅在源状态属于给定集合时执行钩子
func From(states ...interface{}) Filter {
	return func(f *filterSpec) {
		f.from = append(f.from, states...)
	}
}

type hook[E Entity] struct {
	to   map[int]bool // nil 表示不限
	from map[int]bool
	fn   HookFunc[E]
}

func (h hook[E]) matches(from, to enum.Value) bool {
	if h.to != nil && !h.to[to.Index()] {
		return false
	}
	if h.from != nil && !h.from[from.Index()] {
		return false
	}
	return true
}

// Builder 在定义期收集状态表与钩子，Build 后得到不可变的 Definition
type Builder[E Entity] struct {
	states  *enum.Enum
	table   map[int][]enum.Value
	sources []enum.Value
	before  []hook[E]
	after   []hook[E]
	policy  FaultPolicy
	err     error
}

// NewBuilder 以状态集合创建构建器，集合的首个成员即初始状态
func NewBuilder[E Entity](states *enum.Enum) *Builder[E] {
	return &Builder[E]{
		states: states,
		table:  make(map[int][]enum.Value),
	}
}

// Transition 声明 from 允许转换到的目标状态；不传目标即终止状态
func (b *Builder[E]) Transition(from interface{}, to ...interface{}) *Builder[E] {
	src, err := b.states.Coerce(from)
	if err != nil {
		b.err = multierr.Append(b.err, fmt.Errorf("transition source: %w", err))
		return b
	}
	if _, exists := b.table[src.Index()]; exists {
		b.err = multierr.Append(b.err, fmt.Errorf("%w: %s", ErrDuplicateTransition, src))
		return b
	}

	dsts := make([]enum.Value, 0, len(to))
	seen := make(map[int]bool, len(to))
	for _, t := range to {
		dst, err := b.states.Coerce(t)
		if err != nil {
			b.err = multierr.Append(b.err, fmt.Errorf("transition %s target: %w", src, err))
			continue
		}
		if !seen[dst.Index()] {
			seen[dst.Index()] = true
			dsts = append(dsts, dst)
		}
	}
	b.table[src.Index()] = dsts
	b.sources = append(b.sources, src)
	return b
}

// Terminal 声明没有出口的状态
func (b *Builder[E]) Terminal(states ...interface{}) *Builder[E] {
	for _, s := range states {
		b.Transition(s)
	}
	return b
}

// Before 注册状态更新前执行的钩子
func (b *Builder[E]) Before(fn HookFunc[E], filters ...Filter) *Builder[E] {
	if h, ok := b.hook(fn, filters); ok {
		b.before = append(b.before, h)
	}
	return b
}

// After 注册状态更新后执行的钩子
func (b *Builder[E]) After(fn HookFunc[E], filters ...Filter) *Builder[E] {
	if h, ok := b.hook(fn, filters); ok {
		b.after = append(b.after, h)
	}
	return b
}

// OnHookFault 设置默认的钩子出错策略
func (b *Builder[E]) OnHookFault(p FaultPolicy) *Builder[E] {
	b.policy = p
	return b
}

func (b *Builder[E]) hook(fn HookFunc[E], filters []Filter) (hook[E], bool) {
	if fn == nil {
		b.err = multierr.Append(b.err, fmt.Errorf("nil hook"))
		return hook[E]{}, false
	}
	spec := &filterSpec{}
	for _, f := range filters {
		f(spec)
	}
	to, err := b.indexSet(spec.to)
	if err != nil {
		b.err = multierr.Append(b.err, fmt.Errorf("hook to filter: %w", err))
		return hook[E]{}, false
	}
	from, err := b.indexSet(spec.from)
	if err != nil {
		b.err = multierr.Append(b.err, fmt.Errorf("hook from filter: %w", err))
		return hook[E]{}, false
	}
	return hook[E]{to: to, from: from, fn: fn}, true
}

func (b *Builder[E]) indexSet(states []interface{}) (map[int]bool, error) {
	if len(states) == 0 {
		return nil, nil
	}
	set := make(map[int]bool, len(states))
	for _, s := range states {
		v, err := b.states.Coerce(s)
		if err != nil {
			return nil, err
		}
		set[v.Index()] = true
	}
	return set, nil
}

// Build 校验并生成定义。每个可达状态（初始状态及所有目标状态）都必须声明为源状态。
func (b *Builder[E]) Build() (*Definition[E], error) {
	err := b.err

	reachable := append([]enum.Value{b.states.Initial()}, b.sources...)
	for _, src := range b.sources {
		reachable = append(reachable, b.table[src.Index()]...)
	}
	missing := make(map[int]bool)
	for _, s := range reachable {
		if _, ok := b.table[s.Index()]; !ok && !missing[s.Index()] {
			missing[s.Index()] = true
			err = multierr.Append(err, fmt.Errorf("%w: %s is reachable but not declared in the transition table", ErrStateNotFound, s))
		}
	}
	if err != nil {
		return nil, err
	}

	def := &Definition[E]{
		states:  b.states,
		allowed: make(map[int]map[int]bool, len(b.table)),
		targets: make(map[int][]enum.Value, len(b.table)),
		before:  append([]hook[E](nil), b.before...),
		policy:  b.policy,
	}
	for idx, dsts := range b.table {
		set := make(map[int]bool, len(dsts))
		for _, d := range dsts {
			set[d.Index()] = true
		}
		def.allowed[idx] = set
		def.targets[idx] = append([]enum.Value(nil), dsts...)
	}

	// 同步钩子总是第一个 after 钩子，且不受过滤条件限制
	def.after = append([]hook[E]{{fn: synchronize[E]}}, b.after...)
	return def, nil
}

// MustBuild 同 Build，失败时 panic，用于包级定义
func (b *Builder[E]) MustBuild() *Definition[E] {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

func synchronize[E Entity](entity E, _ *Transition) error {
	entity.SynchronizeState()
	return nil
}

// Definition 某类状态机的不可变定义，被该类所有实例共享
type Definition[E Entity] struct {
	states  *enum.Enum
	allowed map[int]map[int]bool
	targets map[int][]enum.Value
	before  []hook[E]
	after   []hook[E]
	policy  FaultPolicy
}

func (d *Definition[E]) States() *enum.Enum  { return d.states }
func (d *Definition[E]) Initial() enum.Value { return d.states.Initial() }
func (d *Definition[E]) Policy() FaultPolicy { return d.policy }

// Allowed 返回 from 允许的目标状态（声明顺序）
func (d *Definition[E]) Allowed(from interface{}) []enum.Value {
	src, err := d.states.Coerce(from)
	if err != nil {
		return nil
	}
	return append([]enum.Value(nil), d.targets[src.Index()]...)
}

// Permits 判断 from -> to 是否在转换表中
func (d *Definition[E]) Permits(from, to enum.Value) bool {
	if from.Enum() != d.states || to.Enum() != d.states {
		return false
	}
	return d.allowed[from.Index()][to.Index()]
}

// IsTerminal 判断状态是否没有任何出口
func (d *Definition[E]) IsTerminal(s interface{}) bool {
	v, err := d.states.Coerce(s)
	if err != nil {
		return false
	}
	set, ok := d.allowed[v.Index()]
	return ok && len(set) == 0
}

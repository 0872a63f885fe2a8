package statemachine

import (
	"sync"

	"github.com/junbin-yang/go-realtime/pkg/enum"
)

// Group 按名称管理一组状态机，例如一个连接上的全部频道
type Group struct {
	mu       sync.RWMutex
	machines map[string]StateMachine
	order    []string
}

// NewGroup 创建状态机分组
func NewGroup() *Group {
	return &Group{
		machines: make(map[string]StateMachine),
	}
}

// Add 添加状态机
func (g *Group) Add(name string, m StateMachine) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.machines[name]; exists {
		return ErrMachineExists
	}
	g.machines[name] = m
	g.order = append(g.order, name)
	return nil
}

// Remove 移除状态机
func (g *Group) Remove(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.machines[name]; !exists {
		return
	}
	delete(g.machines, name)
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// Get 获取状态机
func (g *Group) Get(name string) (StateMachine, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, exists := g.machines[name]
	return m, exists
}

// Names 按添加顺序返回名称
func (g *Group) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.order...)
}

// RequestTransition 对指定状态机请求转换
func (g *Group) RequestTransition(name string, to interface{}, md Metadata) error {
	m, exists := g.Get(name)
	if !exists {
		return ErrMachineNotFound
	}
	return m.RequestTransition(to, md)
}

// TransitionAll 按添加顺序依次转换所有允许该转换的状态机，
// 不允许的成员被跳过且不出现在结果中
func (g *Group) TransitionAll(to interface{}, md Metadata) map[string]error {
	g.mu.RLock()
	names := append([]string(nil), g.order...)
	machines := make(map[string]StateMachine, len(g.machines))
	for name, m := range g.machines {
		machines[name] = m
	}
	g.mu.RUnlock()

	results := make(map[string]error)
	for _, name := range names {
		m := machines[name]
		if !m.Can(to) {
			continue
		}
		results[name] = m.RequestTransition(to, md)
	}
	return results
}

// States 获取所有状态机的当前状态
func (g *Group) States() map[string]enum.Value {
	g.mu.RLock()
	defer g.mu.RUnlock()

	states := make(map[string]enum.Value, len(g.machines))
	for name, m := range g.machines {
		states[name] = m.Current()
	}
	return states
}

// Count 返回状态机数量
func (g *Group) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.machines)
}

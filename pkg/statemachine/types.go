package statemachine

import (
	"fmt"
	"strings"

	"github.com/junbin-yang/go-realtime/pkg/enum"
	"github.com/junbin-yang/go-realtime/pkg/state"
)

// Entity 被状态机驱动的实体
type Entity interface {
	// StateHolder 返回实体自身的状态字段，状态机以它为准
	StateHolder() *state.Holder
	// SynchronizeState 每次转换后调用，用于同步实体缓存的状态
	SynchronizeState()
}

// HookFunc 转换钩子，显式接收被驱动实体和本次转换记录
type HookFunc[E Entity] func(entity E, t *Transition) error

// Phase 钩子阶段
type Phase int

const (
	BeforePhase Phase = iota
	AfterPhase
)

func (p Phase) String() string {
	if p == BeforePhase {
		return "before"
	}
	return "after"
}

// FaultPolicy 同阶段钩子出错后的处理策略
type FaultPolicy int

const (
	// ContinueOnFault 继续执行同阶段剩余钩子，最后汇总返回
	ContinueOnFault FaultPolicy = iota
	// AbortOnFault 放弃同阶段剩余钩子；状态仍会更新，after 阶段仍会执行
	AbortOnFault
)

func (p FaultPolicy) String() string {
	if p == AbortOnFault {
		return "abort"
	}
	return "continue"
}

// ParseFaultPolicy 解析配置中的策略名称
func ParseFaultPolicy(s string) (FaultPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continue":
		return ContinueOnFault, nil
	case "abort":
		return AbortOnFault, nil
	}
	return ContinueOnFault, fmt.Errorf("unknown hook fault policy %q", s)
}

// StateMachine 定义所有状态机的核心接口
type StateMachine interface {
	// Current 返回当前状态
	Current() enum.Value

	// Can 检查是否允许从当前状态转换到目标状态
	Can(to interface{}) bool

	// RequestTransition 请求转换到目标状态
	RequestTransition(to interface{}, md Metadata) error
}

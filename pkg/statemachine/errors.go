package statemachine

import (
	"fmt"

	"github.com/junbin-yang/go-realtime/pkg/enum"
	"github.com/junbin-yang/go-realtime/pkg/state"
)

var (
	// ErrInvalidTransition 当状态转换不被允许时返回
	ErrInvalidTransition = fmt.Errorf("invalid transition")

	// ErrInvalidStateValue 当状态名不属于声明的状态集合时返回
	ErrInvalidStateValue = state.ErrInvalidStateValue

	// ErrHookFault 钩子返回错误或 panic
	ErrHookFault = fmt.Errorf("hook execution fault")

	// ErrReentrancyLimit 钩子中嵌套请求转换超过上限
	ErrReentrancyLimit = fmt.Errorf("transition re-entrancy limit exceeded")

	// ErrStateNotFound 当转换表缺少某个可达状态时返回
	ErrStateNotFound = fmt.Errorf("state not found")

	// ErrDuplicateTransition 当同一源状态重复声明时返回
	ErrDuplicateTransition = fmt.Errorf("duplicate transition")

	// ErrMachineExists 分组中已存在同名状态机
	ErrMachineExists = fmt.Errorf("machine already exists")

	// ErrMachineNotFound 分组中不存在该状态机
	ErrMachineNotFound = fmt.Errorf("machine not found")

	// ErrReactorStopped Reactor 已停止
	ErrReactorStopped = fmt.Errorf("reactor stopped")
)

// InvalidTransitionError 携带源状态与请求的目标状态
type InvalidTransitionError struct {
	From enum.Value
	To   enum.Value
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// HookError 单个钩子的执行错误
type HookError struct {
	Phase Phase
	// Index 钩子在同阶段的注册序号，从 0 开始；内置同步钩子为 -1
	Index int
	From  enum.Value
	To    enum.Value
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook #%d (%s -> %s): %v", e.Phase, e.Index, e.From, e.To, e.Err)
}

func (e *HookError) Unwrap() []error { return []error{ErrHookFault, e.Err} }

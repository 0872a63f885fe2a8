package statemachine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/junbin-yang/go-realtime/pkg/enum"
	"github.com/junbin-yang/go-realtime/pkg/state"
)

func TestMachine_BasicTransition(t *testing.T) {
	def := channelBuilder().MustBuild()
	e := newTestEntity(def)

	if e.machine.Current().Name() != "initialized" {
		t.Errorf("初始状态错误: got %v, want initialized", e.machine.Current())
	}

	if err := e.machine.RequestTransition("attaching", NoMetadata()); err != nil {
		t.Fatalf("转换失败: %v", err)
	}
	if !e.holder.Is("attaching") {
		t.Errorf("状态转换失败: got %v, want attaching", e.machine.Current())
	}
	if !e.mirror.Equal(e.machine.Current()) {
		t.Errorf("缓存状态未同步: got %v, want %v", e.mirror, e.machine.Current())
	}
}

func TestMachine_InvalidTransition(t *testing.T) {
	def := channelBuilder().
		Before(recordHook("before")).
		After(recordHook("after")).
		MustBuild()
	e := newTestEntity(def)

	changes := 0
	e.holder.OnChange(func(_ state.Change) { changes++ })

	err := e.machine.RequestTransition("attached", NoMetadata())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("期望 ErrInvalidTransition, got %v", err)
	}
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) || ite.From.Name() != "initialized" || ite.To.Name() != "attached" {
		t.Errorf("错误信息不完整: %v", err)
	}
	if !e.holder.Is("initialized") {
		t.Errorf("非法转换不应修改状态: got %v", e.machine.Current())
	}
	if len(e.calls) != 0 || changes != 0 {
		t.Errorf("非法转换不应执行钩子或通知: calls=%v changes=%d", e.calls, changes)
	}
}

func TestMachine_SelfLoopRejected(t *testing.T) {
	def := channelBuilder().After(recordHook("after")).MustBuild()
	e := newTestEntity(def)
	_ = e.machine.RequestTransition("attaching", NoMetadata())
	_ = e.machine.RequestTransition("attached", NoMetadata())
	e.calls = nil

	err := e.machine.RequestTransition("attached", NoMetadata())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("期望 ErrInvalidTransition, got %v", err)
	}
	if len(e.calls) != 0 {
		t.Errorf("不应执行钩子: %v", e.calls)
	}
}

func TestMachine_InvalidStateValue(t *testing.T) {
	def := channelBuilder().MustBuild()
	e := newTestEntity(def)

	err := e.machine.RequestTransition("exploded", NoMetadata())
	if !errors.Is(err, ErrInvalidStateValue) {
		t.Errorf("期望 ErrInvalidStateValue, got %v", err)
	}
	if !e.holder.Is("initialized") {
		t.Errorf("状态不应改变: got %v", e.machine.Current())
	}
}

func TestMachine_PermittedTableMatchesCan(t *testing.T) {
	def := channelBuilder().MustBuild()

	for _, from := range channelStates.Members() {
		for _, to := range channelStates.Members() {
			e := newTestEntity(def)
			_ = e.holder.SetState(from)

			permitted := false
			for _, a := range def.Allowed(from) {
				if a.Equal(to) {
					permitted = true
				}
			}
			if e.machine.Can(to) != permitted {
				t.Errorf("Can(%s -> %s) = %v, want %v", from, to, !permitted, permitted)
			}

			err := e.machine.RequestTransition(to, NoMetadata())
			if permitted && err != nil {
				t.Errorf("%s -> %s 应成功: %v", from, to, err)
			}
			if !permitted {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("%s -> %s 应返回 ErrInvalidTransition, got %v", from, to, err)
				}
				if !e.holder.Is(from) {
					t.Errorf("%s -> %s 失败后状态被修改", from, to)
				}
			}
		}
	}
}

func TestMachine_HookOrder(t *testing.T) {
	var seen []string
	observe := func(name string) HookFunc[*testEntity] {
		return func(e *testEntity, tr *Transition) error {
			e.calls = append(e.calls, name)
			seen = append(seen, name+"@"+e.holder.State().Name())
			return nil
		}
	}

	def := channelBuilder().
		After(observe("after1")).
		Before(observe("before1")).
		Before(observe("before2")).
		After(observe("after2")).
		MustBuild()
	e := newTestEntity(def)

	if err := e.machine.RequestTransition("attaching", NoMetadata()); err != nil {
		t.Fatalf("转换失败: %v", err)
	}

	want := []string{"before1", "before2", "sync", "after1", "after2"}
	if !reflect.DeepEqual(e.calls, want) {
		t.Errorf("钩子顺序错误: got %v, want %v", e.calls, want)
	}
	wantSeen := []string{"before1@initialized", "before2@initialized", "after1@attaching", "after2@attaching"}
	if !reflect.DeepEqual(seen, wantSeen) {
		t.Errorf("钩子执行时机错误: got %v, want %v", seen, wantSeen)
	}
}

func TestMachine_Filters(t *testing.T) {
	def := channelBuilder().
		After(recordHook("to-attaching"), To("attaching")).
		After(recordHook("to-terminalish"), To("attached", "detached", "failed")).
		After(recordHook("from-detaching"), From("detaching")).
		After(recordHook("detaching-to-attaching"), From("detaching"), To("attaching")).
		MustBuild()
	e := newTestEntity(def)

	steps := []struct {
		to   string
		want []string
	}{
		{"attaching", []string{"sync", "to-attaching"}},
		{"attached", []string{"sync", "to-terminalish"}},
		{"detaching", []string{"sync"}},
		{"attaching", []string{"sync", "to-attaching", "from-detaching", "detaching-to-attaching"}},
		{"failed", []string{"sync", "to-terminalish"}},
	}
	for _, s := range steps {
		e.calls = nil
		if err := e.machine.RequestTransition(s.to, NoMetadata()); err != nil {
			t.Fatalf("转换到 %s 失败: %v", s.to, err)
		}
		if !reflect.DeepEqual(e.calls, s.want) {
			t.Errorf("转换到 %s 的钩子错误: got %v, want %v", s.to, e.calls, s.want)
		}
	}
}

func TestMachine_MetadataVisibleToHooks(t *testing.T) {
	cause := errors.New("server nack")
	var before, after Metadata
	def := channelBuilder().
		Before(func(e *testEntity, tr *Transition) error {
			before = tr.Metadata
			return nil
		}, To("failed")).
		After(func(e *testEntity, tr *Transition) error {
			after = tr.Metadata
			return nil
		}, To("failed")).
		MustBuild()
	e := newTestEntity(def)
	_ = e.machine.RequestTransition("attaching", NoMetadata())

	if err := e.machine.RequestTransition("failed", ErrorMetadata(cause)); err != nil {
		t.Fatalf("转换失败: %v", err)
	}
	if !before.IsError() || before.Err() != cause || after.Err() != cause {
		t.Errorf("钩子未收到附带数据: before=%v after=%v", before, after)
	}
}

func TestMachine_HookFaultContinue(t *testing.T) {
	boom := errors.New("boom")
	def := channelBuilder().
		Before(func(e *testEntity, tr *Transition) error { return boom }).
		Before(recordHook("before2")).
		After(func(e *testEntity, tr *Transition) error { panic("after crashed") }).
		After(recordHook("after2")).
		MustBuild()
	e := newTestEntity(def)

	err := e.machine.RequestTransition("attaching", NoMetadata())
	if !errors.Is(err, ErrHookFault) || !errors.Is(err, boom) {
		t.Fatalf("期望钩子错误, got %v", err)
	}
	if !e.holder.Is("attaching") {
		t.Errorf("钩子错误不应回滚状态: got %v", e.machine.Current())
	}
	want := []string{"before2", "sync", "after2"}
	if !reflect.DeepEqual(e.calls, want) {
		t.Errorf("其余钩子应继续执行: got %v, want %v", e.calls, want)
	}

	var he *HookError
	if !errors.As(err, &he) || he.Phase != BeforePhase || he.Index != 0 {
		t.Errorf("HookError 信息错误: %+v", he)
	}
}

func TestMachine_HookFaultAbort(t *testing.T) {
	boom := errors.New("boom")
	def := channelBuilder().
		Before(func(e *testEntity, tr *Transition) error { return boom }).
		Before(recordHook("before2")).
		After(func(e *testEntity, tr *Transition) error { return boom }).
		After(recordHook("after2")).
		OnHookFault(AbortOnFault).
		MustBuild()
	e := newTestEntity(def)

	err := e.machine.RequestTransition("attaching", NoMetadata())
	if !errors.Is(err, ErrHookFault) {
		t.Fatalf("期望 ErrHookFault, got %v", err)
	}
	if !e.holder.Is("attaching") {
		t.Errorf("before 钩子错误不会否决转换: got %v", e.machine.Current())
	}
	want := []string{"sync"}
	if !reflect.DeepEqual(e.calls, want) {
		t.Errorf("中止策略下钩子错误: got %v, want %v", e.calls, want)
	}

	// 实例级覆盖
	e2 := newTestEntity(def, WithFaultPolicy(ContinueOnFault))
	_ = e2.machine.RequestTransition("attaching", NoMetadata())
	want = []string{"before2", "sync", "after2"}
	if !reflect.DeepEqual(e2.calls, want) {
		t.Errorf("覆盖策略无效: got %v, want %v", e2.calls, want)
	}
}

func TestMachine_Reentrant(t *testing.T) {
	def := channelBuilder().
		After(func(e *testEntity, tr *Transition) error {
			// 模拟管理器同步确认
			return e.machine.RequestTransition("attached", NoMetadata())
		}, To("attaching")).
		After(recordHook("after-attaching"), To("attaching")).
		After(recordHook("after-attached"), To("attached")).
		MustBuild()
	e := newTestEntity(def)

	if err := e.machine.RequestTransition("attaching", NoMetadata()); err != nil {
		t.Fatalf("转换失败: %v", err)
	}
	if !e.holder.Is("attached") {
		t.Errorf("嵌套转换未生效: got %v", e.machine.Current())
	}
	want := []string{"sync", "sync", "after-attached", "after-attaching"}
	if !reflect.DeepEqual(e.calls, want) {
		t.Errorf("嵌套转换顺序错误: got %v, want %v", e.calls, want)
	}
}

func TestMachine_ReentrantFromBeforeHook(t *testing.T) {
	nack := errors.New("nack")
	def := channelBuilder().
		Before(func(e *testEntity, tr *Transition) error {
			// 模拟同步时服务端拒绝
			return e.machine.RequestTransition("failed", ErrorMetadata(nack))
		}, To("attached")).
		Before(recordHook("before-attached"), To("attached")).
		After(recordHook("after-attached"), To("attached")).
		After(recordHook("after-failed"), To("failed")).
		MustBuild()
	e := newTestEntity(def, WithHistory(8))
	if err := e.machine.RequestTransition("attaching", NoMetadata()); err != nil {
		t.Fatalf("转换失败: %v", err)
	}
	e.calls = nil

	err := e.machine.RequestTransition("attached", NoMetadata())
	if !errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrHookFault) {
		t.Fatalf("期望 ErrInvalidTransition, got %v", err)
	}
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) || invalid.From.Name() != "failed" || invalid.To.Name() != "attached" {
		t.Errorf("InvalidTransitionError 信息错误: %+v", invalid)
	}
	if !e.holder.Is("failed") || !e.mirror.Equal(e.machine.Current()) {
		t.Errorf("嵌套转换结果被覆盖: state=%v mirror=%v", e.machine.Current(), e.mirror)
	}
	want := []string{"sync", "after-failed"}
	if !reflect.DeepEqual(e.calls, want) {
		t.Errorf("外层转换不应继续执行钩子: got %v, want %v", e.calls, want)
	}

	records := e.machine.History().Records()
	if len(records) != 2 {
		t.Fatalf("期望 2 条历史记录, got %d", len(records))
	}
	last := records[1]
	if last.From.Name() != "attaching" || last.To.Name() != "failed" || last.Metadata != MetadataError {
		t.Errorf("历史记录错误: %+v", last)
	}
}

func TestMachine_HookErrorIndex(t *testing.T) {
	boom := errors.New("boom")
	def := channelBuilder().
		After(recordHook("first"), To("attaching")).
		After(func(e *testEntity, tr *Transition) error { return boom }, To("attaching")).
		MustBuild()
	e := newTestEntity(def)

	err := e.machine.RequestTransition("attaching", NoMetadata())
	var he *HookError
	if !errors.As(err, &he) {
		t.Fatalf("期望 HookError, got %v", err)
	}
	// 序号不计内置同步钩子
	if he.Phase != AfterPhase || he.Index != 1 {
		t.Errorf("HookError 序号错误: phase=%v index=%d", he.Phase, he.Index)
	}
}

func TestMachine_ReentrancyLimit(t *testing.T) {
	def := channelBuilder().
		After(func(e *testEntity, tr *Transition) error {
			return e.machine.RequestTransition("attaching", NoMetadata())
		}, To("detaching")).
		After(func(e *testEntity, tr *Transition) error {
			return e.machine.RequestTransition("detaching", NoMetadata())
		}, To("attaching"), From("detaching")).
		MustBuild()
	e := newTestEntity(def, WithMaxDepth(4))
	_ = e.machine.RequestTransition("attaching", NoMetadata())

	err := e.machine.RequestTransition("detaching", NoMetadata())
	if !errors.Is(err, ErrReentrancyLimit) {
		t.Fatalf("期望 ErrReentrancyLimit, got %v", err)
	}
	// detaching -> attaching -> detaching -> attaching
	if !e.holder.Is("attaching") {
		t.Errorf("状态错误: got %v, want attaching", e.machine.Current())
	}
	if !e.mirror.Equal(e.machine.Current()) {
		t.Errorf("缓存状态未同步: got %v", e.mirror)
	}
}

func TestMachine_SharedDefinition(t *testing.T) {
	def := channelBuilder().After(recordHook("after"), To("attaching")).MustBuild()
	a := newTestEntity(def)
	b := newTestEntity(def)

	_ = a.machine.RequestTransition("attaching", NoMetadata())

	if !a.holder.Is("attaching") || !b.holder.Is("initialized") {
		t.Errorf("实例状态应相互独立: a=%v b=%v", a.machine.Current(), b.machine.Current())
	}
	if len(b.calls) != 0 {
		t.Errorf("b 不应执行钩子: %v", b.calls)
	}
}

func TestNew_MismatchedStates(t *testing.T) {
	def := channelBuilder().MustBuild()
	other := NewBuilder[*testEntity](connectionLike).Terminal("idle").MustBuild()
	e := newTestEntity(def)

	if _, err := New(other, e); !errors.Is(err, ErrInvalidStateValue) {
		t.Errorf("期望 ErrInvalidStateValue, got %v", err)
	}
}

var connectionLike = enum.MustNew("Other", "idle")

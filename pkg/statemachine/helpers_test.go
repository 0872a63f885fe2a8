package statemachine

import (
	"github.com/junbin-yang/go-realtime/pkg/enum"
	"github.com/junbin-yang/go-realtime/pkg/logger"
	"github.com/junbin-yang/go-realtime/pkg/state"
)

var channelStates = enum.MustNew("ChannelState",
	"initialized", "attaching", "attached", "detaching", "detached", "failed")

// testEntity 记录钩子调用顺序的被驱动实体
type testEntity struct {
	holder  *state.Holder
	machine *Machine[*testEntity]
	mirror  enum.Value
	calls   []string
}

func newTestEntity(def *Definition[*testEntity], opts ...MachineOption) *testEntity {
	e := &testEntity{holder: state.MustNew(def.States())}
	e.mirror = e.holder.State()
	opts = append([]MachineOption{WithLogger(logger.Nop())}, opts...)
	m, err := New(def, e, opts...)
	if err != nil {
		panic(err)
	}
	e.machine = m
	return e
}

func (e *testEntity) StateHolder() *state.Holder { return e.holder }

func (e *testEntity) SynchronizeState() {
	e.mirror = e.holder.State()
	e.calls = append(e.calls, "sync")
}

func channelBuilder() *Builder[*testEntity] {
	return NewBuilder[*testEntity](channelStates).
		Transition("initialized", "attaching").
		Transition("attaching", "attached", "detaching", "failed").
		Transition("attached", "detaching", "failed").
		Transition("detaching", "detached", "attaching", "failed").
		Transition("failed", "attaching").
		Terminal("detached")
}

func recordHook(name string) HookFunc[*testEntity] {
	return func(e *testEntity, t *Transition) error {
		e.calls = append(e.calls, name)
		return nil
	}
}

package channel

import (
	"github.com/junbin-yang/go-realtime/pkg/protocol"
	sm "github.com/junbin-yang/go-realtime/pkg/statemachine"
)

// definition 所有频道共享的状态机定义
var definition = sm.NewBuilder[*Channel](States).
	Transition(Initialized, Attaching).
	Transition(Attaching, Attached, Detaching, Failed).
	Transition(Attached, Detaching, Failed).
	Transition(Detaching, Detached, Attaching, Failed).
	Transition(Failed, Attaching).
	Terminal(Detached).
	After(func(ch *Channel, _ *sm.Transition) error {
		return ch.manager.Attach()
	}, sm.To(Attaching)).
	Before(func(ch *Channel, t *sm.Transition) error {
		return ch.manager.Sync(t.Metadata)
	}, sm.To(Attached)).
	After(func(ch *Channel, t *sm.Transition) error {
		return ch.manager.Detach(t.Metadata)
	}, sm.To(Detaching)).
	After(func(ch *Channel, t *sm.Transition) error {
		if !t.Metadata.IsError() {
			return nil
		}
		return ch.manager.EmitError(t.Metadata)
	}, sm.To(Detached)).
	After(func(ch *Channel, t *sm.Transition) error {
		return ch.manager.EmitError(t.Metadata)
	}, sm.To(Failed)).
	Before(updateErrorReason, sm.To(Attached, Detached, Failed)).
	MustBuild()

// updateErrorReason 错误类型的附带数据记为频道的错误原因，否则清空
func updateErrorReason(ch *Channel, t *sm.Transition) error {
	var reason *protocol.ErrorInfo
	if t.Metadata.IsError() {
		reason = protocol.AsErrorInfo(t.Metadata.Err())
	}
	ch.SetErrorReason(reason)
	return nil
}

// Definition 返回频道状态机定义
func Definition() *sm.Definition[*Channel] {
	return definition
}

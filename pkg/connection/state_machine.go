package connection

import (
	"github.com/junbin-yang/go-realtime/pkg/protocol"
	sm "github.com/junbin-yang/go-realtime/pkg/statemachine"
)

var definition = sm.NewBuilder[*Connection](States).
	Transition(Initialized, Connecting, Closing).
	Transition(Connecting, Connected, Failed, Closing, Disconnected, Suspended).
	Transition(Connected, Disconnected, Suspended, Closing, Failed).
	Transition(Disconnected, Connecting, Closing, Suspended, Failed).
	Transition(Suspended, Connecting, Closing, Failed).
	Transition(Closing, Closed).
	Transition(Closed, Connecting).
	Transition(Failed, Connecting).
	After(func(c *Connection, _ *sm.Transition) error {
		return c.manager.Connect()
	}, sm.To(Connecting)).
	After(func(c *Connection, t *sm.Transition) error {
		return c.manager.Connected(t.Metadata)
	}, sm.To(Connected)).
	After(func(c *Connection, t *sm.Transition) error {
		return c.manager.RetryConnect(t.Metadata)
	}, sm.To(Disconnected, Suspended), sm.From(Connecting)).
	After(func(c *Connection, t *sm.Transition) error {
		return c.manager.Reconnect(t.Metadata)
	}, sm.To(Disconnected, Suspended), sm.From(Connected)).
	After(func(c *Connection, _ *sm.Transition) error {
		return c.manager.Close()
	}, sm.To(Closing)).
	After(func(c *Connection, _ *sm.Transition) error {
		return c.manager.DestroyTransport()
	}, sm.To(Closed)).
	After(func(c *Connection, t *sm.Transition) error {
		return c.manager.Fail(t.Metadata)
	}, sm.To(Failed)).
	Before(func(c *Connection, t *sm.Transition) error {
		var reason *protocol.ErrorInfo
		if t.Metadata.IsError() {
			reason = protocol.AsErrorInfo(t.Metadata.Err())
		}
		c.SetErrorReason(reason)
		return nil
	}, sm.To(Connected, Disconnected, Suspended, Failed, Closed)).
	MustBuild()

// Definition 返回连接状态机定义
func Definition() *sm.Definition[*Connection] {
	return definition
}

package channel

import "github.com/junbin-yang/go-realtime/pkg/statemachine"

// Manager 执行频道的网络动作。
// 各方法只发出请求并立即返回，服务端的结果稍后通过 Channel.Transition 回到状态机，
// 例如收到 ATTACHED 后请求 attached，收到错误后请求 failed 并携带 ErrorMetadata。
type Manager interface {
	Attach() error
	Detach(md statemachine.Metadata) error
	Sync(md statemachine.Metadata) error
	EmitError(md statemachine.Metadata) error
}

// ManagerFactory 为频道创建管理器
type ManagerFactory func(ch *Channel) Manager

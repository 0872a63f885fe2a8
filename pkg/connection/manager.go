package connection

import sm "github.com/junbin-yang/go-realtime/pkg/statemachine"

// Manager 执行连接的传输层动作，结果通过 Connection.Transition 回报。
// 重试间隔、退避等策略由管理器自行决定。
type Manager interface {
	// Connect 建立传输
	Connect() error
	// Connected 传输就绪，md 可携带连接参数
	Connected(md sm.Metadata) error
	// RetryConnect 连接过程中断开
	RetryConnect(md sm.Metadata) error
	// Reconnect 已连接后断开
	Reconnect(md sm.Metadata) error
	Close() error
	DestroyTransport() error
	Fail(md sm.Metadata) error
}

// ManagerFactory 为连接创建管理器
type ManagerFactory func(c *Connection) Manager

package connection

import "github.com/junbin-yang/go-realtime/pkg/enum"

// States 连接状态
var States = enum.MustNew("ConnectionState",
	"initialized",
	"connecting",
	"connected",
	"disconnected",
	"suspended",
	"closing",
	"closed",
	"failed",
)

var (
	Initialized  = States.MustParse("initialized")
	Connecting   = States.MustParse("connecting")
	Connected    = States.MustParse("connected")
	Disconnected = States.MustParse("disconnected")
	Suspended    = States.MustParse("suspended")
	Closing      = States.MustParse("closing")
	Closed       = States.MustParse("closed")
	Failed       = States.MustParse("failed")
)

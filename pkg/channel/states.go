package channel

import "github.com/junbin-yang/go-realtime/pkg/enum"

// States 频道状态，声明顺序即生命周期顺序，首个成员为初始状态
var States = enum.MustNew("ChannelState",
	"initialized",
	"attaching",
	"attached",
	"detaching",
	"detached",
	"failed",
)

var (
	Initialized = States.MustParse("initialized")
	Attaching   = States.MustParse("attaching")
	Attached    = States.MustParse("attached")
	Detaching   = States.MustParse("detaching")
	Detached    = States.MustParse("detached")
	Failed      = States.MustParse("failed")
)

package channel

import (
	"sync"

	"github.com/junbin-yang/go-realtime/pkg/enum"
	sm "github.com/junbin-yang/go-realtime/pkg/statemachine"
)

// Channels 按名称管理同一连接上的频道
type Channels struct {
	mu       sync.Mutex
	factory  ManagerFactory
	opts     []Option
	group    *sm.Group
	channels map[string]*Channel
}

// NewChannels 创建频道集合，opts 应用于每个新建的频道
func NewChannels(factory ManagerFactory, opts ...Option) *Channels {
	return &Channels{
		factory:  factory,
		opts:     opts,
		group:    sm.NewGroup(),
		channels: make(map[string]*Channel),
	}
}

// Get 获取频道，不存在时创建
func (cs *Channels) Get(name string) (*Channel, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if ch, ok := cs.channels[name]; ok {
		return ch, nil
	}
	ch, err := New(name, cs.factory, cs.opts...)
	if err != nil {
		return nil, err
	}
	if err := cs.group.Add(name, ch.machine); err != nil {
		return nil, err
	}
	cs.channels[name] = ch
	return ch, nil
}

// Release 分离并移除频道
func (cs *Channels) Release(name string) error {
	cs.mu.Lock()
	ch, ok := cs.channels[name]
	if ok {
		delete(cs.channels, name)
		cs.group.Remove(name)
	}
	cs.mu.Unlock()

	if !ok {
		return nil
	}
	if ch.Is(Attached) || ch.Is(Attaching) {
		return ch.Detach()
	}
	return nil
}

// Names 按创建顺序返回频道名
func (cs *Channels) Names() []string {
	return cs.group.Names()
}

func (cs *Channels) Len() int {
	return cs.group.Count()
}

// States 返回全部频道的当前状态
func (cs *Channels) States() map[string]enum.Value {
	return cs.group.States()
}

// FailAll 连接失败时，将所有可以进入 failed 的频道转为 failed 并携带原因
func (cs *Channels) FailAll(reason error) map[string]error {
	return cs.group.TransitionAll(Failed, sm.ErrorMetadata(reason))
}

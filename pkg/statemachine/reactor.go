package statemachine

import (
	"context"
	"fmt"
	"sync"

	"github.com/junbin-yang/go-realtime/pkg/logger"
)

// Reactor 单协程事件循环。
// 网络回调等来自其他协程的结果通过 Post/Call 投递进来，
// 保证同一实体上的转换、钩子和通知都在同一执行线程中顺序执行。
type Reactor struct {
	queue    chan func()
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	log      logger.Logger
}

// NewReactor 创建 Reactor
func NewReactor(queueSize int, l logger.Logger) *Reactor {
	if l == nil {
		l = logger.Default()
	}
	return &Reactor{
		queue:  make(chan func(), queueSize),
		stopCh: make(chan struct{}),
		log:    l,
	}
}

// Start 启动事件循环
func (r *Reactor) Start() {
	r.wg.Add(1)
	go r.loop()
}

// Stop 停止事件循环，队列中未执行的任务被丢弃
func (r *Reactor) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

// Post 投递任务，不等待执行
func (r *Reactor) Post(ctx context.Context, fn func()) error {
	select {
	case <-r.stopCh:
		return ErrReactorStopped
	default:
	}

	select {
	case r.queue <- fn:
		return nil
	case <-r.stopCh:
		return ErrReactorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call 投递任务并等待其返回。不可在 Reactor 自身的任务中调用。
func (r *Reactor) Call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	if err := r.Post(ctx, func() { done <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-r.stopCh:
		return ErrReactorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueLength 返回队列长度
func (r *Reactor) QueueLength() int {
	return len(r.queue)
}

func (r *Reactor) loop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopCh:
			return
		case fn := <-r.queue:
			r.run(fn)
		}
	}
}

func (r *Reactor) run(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("reactor task panic", logger.Err(fmt.Errorf("%v", rec)))
		}
	}()
	fn()
}

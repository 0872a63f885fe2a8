package client

import "errors"

var (
	// ErrAlreadyRunning Run 被重复调用
	ErrAlreadyRunning = errors.New("client already running")

	// ErrNotRunning 客户端未运行或已退出
	ErrNotRunning = errors.New("client not running")

	// ErrShutdownTimeout 退出超时
	ErrShutdownTimeout = errors.New("shutdown timeout")
)

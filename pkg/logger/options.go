package logger

import "go.uber.org/zap"

// Option 日志构造选项
type Option = zap.Option

func AddCaller() Option              { return zap.AddCaller() }
func AddCallerSkip(skip int) Option  { return zap.AddCallerSkip(skip) }
func AddStacktrace(lvl Level) Option { return zap.AddStacktrace(toZapLevel(lvl)) }
func WithName(name string) Option    { return zap.Fields(zap.String("logger", name)) }
func Development() Option            { return zap.Development() }

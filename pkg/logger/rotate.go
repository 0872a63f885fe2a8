package logger

import (
	"io"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RotateConfig 日志轮转配置
type RotateConfig struct {
	Filename     string        // 日志文件路径
	MaxSize      int           // 按大小轮转：单个文件最大MB
	MaxBackups   int           // 按大小轮转：保留的旧文件数
	MaxAge       int           // 保留天数
	Compress     bool          // 按大小轮转：是否gzip压缩
	RotationTime time.Duration // 按时间轮转：轮转间隔
	LocalTime    bool          // 使用本地时间命名
}

// NewProductionRotateBySize 按大小轮转的默认配置（100MB，保留30天）
func NewProductionRotateBySize(filename string) io.Writer {
	return NewRotateBySize(&RotateConfig{
		Filename:   filename,
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
		LocalTime:  true,
	})
}

// NewRotateBySize 按大小轮转
func NewRotateBySize(cfg *RotateConfig) io.Writer {
	return &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  cfg.LocalTime,
	}
}

// NewRotateByTime 按时间轮转，文件名追加时间后缀并维护软链接
func NewRotateByTime(cfg *RotateConfig) io.Writer {
	rotation := cfg.RotationTime
	if rotation <= 0 {
		rotation = 24 * time.Hour
	}
	opts := []rotatelogs.Option{
		rotatelogs.WithLinkName(cfg.Filename),
		rotatelogs.WithRotationTime(rotation),
	}
	if cfg.MaxAge > 0 {
		opts = append(opts, rotatelogs.WithMaxAge(time.Duration(cfg.MaxAge)*24*time.Hour))
	}
	if !cfg.LocalTime {
		opts = append(opts, rotatelogs.WithClock(rotatelogs.UTC))
	}
	w, err := rotatelogs.New(cfg.Filename+".%Y%m%d%H", opts...)
	if err != nil {
		// 路径模板非法时退回按大小轮转
		return NewRotateBySize(cfg)
	}
	return w
}

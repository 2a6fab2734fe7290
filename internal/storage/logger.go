package storage

import (
	"context"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"securelink/internal/logger"
)

// GormLogger 自定义GORM logger实现
type GormLogger struct {
	logger.Logger
	LogLevel gormlogger.LogLevel
}

// NewGormLogger 创建新的GormLogger实例
func NewGormLogger(l logger.Logger) *GormLogger {
	if l == nil {
		l = logger.NewNop()
	}
	return &GormLogger{
		Logger:   l,
		LogLevel: gormlogger.Warn, // 默认日志级别
	}
}

// LogMode 设置日志级别
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

// Info 打印info级别日志
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Info {
		l.Logger.Info(msg, toFields(data)...)
	}
}

// Warn 打印warn级别日志
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Warn {
		l.Logger.Warn(msg, toFields(data)...)
	}
}

// Error 打印error级别日志
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Error {
		l.Logger.Error(msg, toFields(data)...)
	}
}

// Trace 打印SQL日志
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []any{
		"sql", sql,
		"rows", rows,
		"timeMs", float64(elapsed.Nanoseconds()) / 1e6,
	}

	switch {
	case err != nil && l.LogLevel >= gormlogger.Error:
		l.Logger.Error("SQL执行错误", append(fields, "error", err)...)
	case elapsed > time.Second && l.LogLevel >= gormlogger.Warn:
		l.Logger.Warn("慢SQL查询", append(fields, "threshold", "1s")...)
	case l.LogLevel == gormlogger.Info:
		l.Logger.Debug("SQL执行", fields...)
	}
}

// toFields 保证键值对齐，奇数长度时补占位键
func toFields(data []any) []any {
	if len(data)%2 != 0 {
		return append([]any{"data"}, data...)
	}
	return data
}

package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 结构化键值日志接口
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Err(err error, msg string, kv ...any)
}

// Options 日志初始化选项
type Options struct {
	Level   string   // debug/info/warn/error
	Writers []string // console/file
	File    string   // 文件写入路径
}

type zlog struct {
	l zerolog.Logger
}

// New 根据选项创建日志器，默认输出到控制台
func New(opts Options) Logger {
	var ws []io.Writer
	for _, w := range opts.Writers {
		switch w {
		case "file":
			ws = append(ws, &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    50, // MB
				MaxBackups: 5,
				MaxAge:     14, // 天
			})
		case "console":
			ws = append(ws, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
		}
	}
	if len(ws) == 0 {
		ws = append(ws, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}

	level := zerolog.InfoLevel
	if lv, err := zerolog.ParseLevel(strings.ToLower(opts.Level)); err == nil && opts.Level != "" {
		level = lv
	}
	l := zerolog.New(zerolog.MultiLevelWriter(ws...)).Level(level).With().Timestamp().Logger()
	return &zlog{l: l}
}

// NewNop 创建丢弃所有输出的日志器
func NewNop() Logger {
	return &zlog{l: zerolog.Nop()}
}

func (z *zlog) Debug(msg string, kv ...any) { withFields(z.l.Debug(), kv).Msg(msg) }
func (z *zlog) Info(msg string, kv ...any)  { withFields(z.l.Info(), kv).Msg(msg) }
func (z *zlog) Warn(msg string, kv ...any)  { withFields(z.l.Warn(), kv).Msg(msg) }
func (z *zlog) Error(msg string, kv ...any) { withFields(z.l.Error(), kv).Msg(msg) }

func (z *zlog) Err(err error, msg string, kv ...any) {
	withFields(z.l.Error().Err(err), kv).Msg(msg)
}

// withFields 将键值对展开为 zerolog 字段，键必须是字符串
func withFields(e *zerolog.Event, kv []any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(k, kv[i+1])
	}
	return e
}

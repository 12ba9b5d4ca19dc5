package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"activitylog/internal/config"
)

// Logger 键值对风格的日志接口
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	// Err 记录带错误对象的错误日志
	Err(err error, msg string, kv ...any)
	// With 返回附加固定字段的子日志器
	With(kv ...any) Logger
}

type zlog struct {
	z zerolog.Logger
}

// New 根据配置创建基于 zerolog 的日志器
func New(c *config.Config) Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || c.Log.Level == "" {
		level = zerolog.InfoLevel
	}

	var writers []io.Writer
	for _, w := range c.Log.Writer {
		switch w {
		case "console":
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
		case "file":
			_ = os.MkdirAll(filepath.Dir(c.Log.File), 0o755)
			writers = append(writers, &lumberjack.Logger{
				Filename:   c.Log.File,
				MaxSize:    c.Log.MaxSizeMB,
				MaxBackups: c.Log.MaxBackups,
				MaxAge:     c.Log.MaxAgeDays,
				Compress:   true,
			})
		}
	}
	if len(writers) == 0 {
		return NewNop()
	}

	z := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return &zlog{z: z}
}

// NewWithWriter 创建输出到指定 writer 的 JSON 日志器
func NewWithWriter(w io.Writer, level zerolog.Level) Logger {
	return &zlog{z: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// NewNop 创建不输出任何内容的日志器
func NewNop() Logger {
	return &zlog{z: zerolog.Nop()}
}

func (l *zlog) Debug(msg string, kv ...any) { l.z.Debug().Fields(kv).Msg(msg) }
func (l *zlog) Info(msg string, kv ...any)  { l.z.Info().Fields(kv).Msg(msg) }
func (l *zlog) Warn(msg string, kv ...any)  { l.z.Warn().Fields(kv).Msg(msg) }
func (l *zlog) Error(msg string, kv ...any) { l.z.Error().Fields(kv).Msg(msg) }

func (l *zlog) Err(err error, msg string, kv ...any) {
	l.z.Error().Err(err).Fields(kv).Msg(msg)
}

func (l *zlog) With(kv ...any) Logger {
	return &zlog{z: l.z.With().Fields(kv).Logger()}
}

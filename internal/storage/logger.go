package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"activitylog/internal/ctxkeys"
	"activitylog/internal/logger"
)

const defaultSlowThreshold = 200 * time.Millisecond

// GormLogger 将 GORM 日志转发到应用日志器，携带归档写入的 traceId
type GormLogger struct {
	log           logger.Logger
	LogLevel      gormlogger.LogLevel
	SlowThreshold time.Duration
}

// NewGormLogger 创建 GormLogger，默认只输出错误与慢查询
func NewGormLogger(l logger.Logger) *GormLogger {
	if l == nil {
		l = logger.NewNop()
	}
	return &GormLogger{
		log:           l.With("component", "gorm"),
		LogLevel:      gormlogger.Warn,
		SlowThreshold: defaultSlowThreshold,
	}
}

// LogMode 返回指定级别的副本
func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *g
	c.LogLevel = level
	return &c
}

func (g *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if g.LogLevel >= gormlogger.Info {
		g.log.Debug(msg, "traceId", ctxkeys.TraceID(ctx), "data", data)
	}
}

func (g *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if g.LogLevel >= gormlogger.Warn {
		g.log.Warn(msg, "traceId", ctxkeys.TraceID(ctx), "data", data)
	}
}

func (g *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if g.LogLevel >= gormlogger.Error {
		g.log.Error(msg, "traceId", ctxkeys.TraceID(ctx), "data", data)
	}
}

// Trace 记录一次 SQL 执行：失败记为错误，超过阈值记为慢查询，其余仅在 Info 级别输出
//
// 查询无结果（gorm.ErrRecordNotFound）不算错误。
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := g.SlowThreshold > 0 && elapsed > g.SlowThreshold
	if !failed && !slow && g.LogLevel < gormlogger.Info {
		return
	}

	sql, rows := fc()
	fields := []any{
		"traceId", ctxkeys.TraceID(ctx),
		"sql", sql,
		"rows", rows,
		"elapsedMs", elapsed.Milliseconds(),
	}
	switch {
	case failed && g.LogLevel >= gormlogger.Error:
		g.log.Err(err, "归档 SQL 执行失败", fields...)
	case slow && g.LogLevel >= gormlogger.Warn:
		g.log.Warn("归档慢查询", append(fields, "threshold", g.SlowThreshold.String())...)
	case g.LogLevel >= gormlogger.Info:
		g.log.Debug("归档 SQL", fields...)
	}
}

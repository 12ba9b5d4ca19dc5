package ctxkeys

import (
	"context"

	"github.com/google/uuid"
)

// TraceIDKey 上下文中链路 ID 的键
type TraceIDKey struct{}

// WithTraceID 在上下文中写入新的链路 ID
func WithTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey{}, uuid.NewString())
}

// TraceID 读取上下文中的链路 ID，不存在时返回空字符串
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(TraceIDKey{}).(string)
	return id
}

// Package context 拓展上下文功能，在请求链路中传递请求 ID 并生成带链路字段的日志器.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	nlog "github.com/yeisme/filehost/pkg/log"
)

type ContextKey string

const (
	RequestIDKey ContextKey = "requestID"
)

// RequestIDHeader 请求 ID 所在的 HTTP 头.
const RequestIDHeader = "X-Request-ID"

// WithRequestID 将请求 ID 存入 context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID 从 context 中获取请求 ID，不存在时返回空串.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}

	return ""
}

// WithTraceContext 创建带有追踪上下文的logger.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		return logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return logger
}

// Logger 返回附带请求 ID 与追踪字段的日志器.
func Logger(ctx context.Context) zerolog.Logger {
	l := *nlog.Logger()
	if id := GetRequestID(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}

	return WithTraceContext(ctx, l)
}

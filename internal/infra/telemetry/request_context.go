package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type requestContextKey struct{}

// RequestMeta carries correlation identifiers for one pooled call.
type RequestMeta struct {
	RequestID string
	TraceID   string
	SpanID    string
}

func (m RequestMeta) IsZero() bool {
	return m.RequestID == "" && m.TraceID == "" && m.SpanID == ""
}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	if meta.IsZero() {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestContextKey{}, meta)
}

func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	meta, ok := ctx.Value(requestContextKey{}).(RequestMeta)
	return meta, ok && !meta.IsZero()
}

func NewRequestID() string {
	return uuid.NewString()
}

// TraceSpanFromContext extracts the active otel span identifiers, if any.
func TraceSpanFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	span := trace.SpanFromContext(ctx)
	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return "", ""
	}
	return spanCtx.TraceID().String(), spanCtx.SpanID().String()
}

// EnsureRequestMeta returns a context carrying request metadata, minting a
// request ID when none is present.
func EnsureRequestMeta(ctx context.Context) (context.Context, RequestMeta) {
	if existing, ok := RequestMetaFromContext(ctx); ok {
		return ctx, existing
	}
	traceID, spanID := TraceSpanFromContext(ctx)
	meta := RequestMeta{
		RequestID: NewRequestID(),
		TraceID:   traceID,
		SpanID:    spanID,
	}
	return WithRequestMeta(ctx, meta), meta
}

func RequestFields(meta RequestMeta) []zap.Field {
	if meta.IsZero() {
		return nil
	}
	fields := make([]zap.Field, 0, 3)
	if meta.RequestID != "" {
		fields = append(fields, RequestIDField(meta.RequestID))
	}
	if meta.TraceID != "" {
		fields = append(fields, TraceIDField(meta.TraceID))
	}
	if meta.SpanID != "" {
		fields = append(fields, SpanIDField(meta.SpanID))
	}
	return fields
}

// LoggerWithRequest attaches request correlation fields to the logger.
func LoggerWithRequest(ctx context.Context, base *zap.Logger) *zap.Logger {
	logger := base
	if logger == nil {
		logger = zap.NewNop()
	}
	meta, ok := RequestMetaFromContext(ctx)
	if !ok {
		return logger
	}
	return logger.With(RequestFields(meta)...)
}

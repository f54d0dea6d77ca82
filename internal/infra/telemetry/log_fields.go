package telemetry

import (
	"time"

	"go.uber.org/zap"

	"toolgate/internal/domain"
)

const (
	FieldEvent      = "event"
	FieldServerType = "serverType"
	FieldToolName   = "toolName"
	FieldProvider   = "provider"
	FieldModel      = "model"
	FieldDurationMs = "duration_ms"
	FieldRequestID  = "request_id"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
)

const (
	EventConnectAttempt = "connect_attempt"
	EventConnectSuccess = "connect_success"
	EventConnectFailure = "connect_failure"
	EventReconnect      = "reconnect"
	EventCallFailure    = "call_failure"
	EventCallTimeout    = "call_timeout"
	EventDisconnect     = "disconnect"
	EventShutdown       = "shutdown"
	EventModelSelected  = "model_selected"
	EventModelFailed    = "model_failed"
	EventChainReset     = "chain_reset"
	EventConfigReload   = "config_reload"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ServerTypeField(serverType domain.ServerType) zap.Field {
	return zap.String(FieldServerType, string(serverType))
}

func ToolNameField(name string) zap.Field {
	return zap.String(FieldToolName, name)
}

func ProviderField(provider string) zap.Field {
	return zap.String(FieldProvider, provider)
}

func ModelField(model string) zap.Field {
	return zap.String(FieldModel, model)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}

func TraceIDField(value string) zap.Field {
	return zap.String(FieldTraceID, value)
}

func SpanIDField(value string) zap.Field {
	return zap.String(FieldSpanID, value)
}

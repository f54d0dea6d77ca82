package domain

import "time"

// CallStatus labels the outcome of a pooled tool call.
type CallStatus string

const (
	// CallStatusSuccess indicates the call returned a result.
	CallStatusSuccess CallStatus = "success"
	// CallStatusToolError indicates the server flagged the result as an error.
	CallStatusToolError CallStatus = "tool_error"
	// CallStatusConnError indicates the call failed with a connection error.
	CallStatusConnError CallStatus = "conn_error"
	// CallStatusTimeout indicates the caller gave up waiting.
	CallStatusTimeout CallStatus = "timeout"
)

// CallMetric captures one pooled tool call.
type CallMetric struct {
	ServerType ServerType
	ToolName   string
	Status     CallStatus
	Duration   time.Duration
}

// Metrics records operational metrics for the pool and fallback manager.
type Metrics interface {
	ObserveCall(metric CallMetric)
	ObserveConnect(serverType ServerType, duration time.Duration, err error)
	ObserveReconnect(serverType ServerType)
	SetActiveClients(count int)
	ObserveModelSelection(provider, model string)
	ObserveModelFailure(provider, model string)
	ObserveChainExhaustion()
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) ObserveCall(CallMetric)                          {}
func (NopMetrics) ObserveConnect(ServerType, time.Duration, error) {}
func (NopMetrics) ObserveReconnect(ServerType)                     {}
func (NopMetrics) SetActiveClients(int)                            {}
func (NopMetrics) ObserveModelSelection(string, string)            {}
func (NopMetrics) ObserveModelFailure(string, string)              {}
func (NopMetrics) ObserveChainExhaustion()                         {}

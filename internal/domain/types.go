package domain

import "time"

// ServerType identifies one external tool server (e.g. "github", "hn").
// The set of valid types comes from configuration, not a compiled enum.
type ServerType string

// TransportKind defines how a tool server is reached.
type TransportKind string

const (
	// TransportCommand: the server runs as a child process speaking stdio
	// (e.g. a docker-launched MCP server).
	TransportCommand TransportKind = "command"

	// TransportStreamable: the server is reached over streamable HTTP.
	TransportStreamable TransportKind = "streamable"
)

// ServerSpec describes one configured tool server.
type ServerSpec struct {
	Name      ServerType        `json:"name"`
	Transport TransportKind     `json:"transport"`
	Cmd       []string          `json:"cmd,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	Cwd       string            `json:"cwd,omitempty"`
	Endpoint  string            `json:"endpoint,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// ToolRequest is a single tool invocation routed through the pool.
type ToolRequest struct {
	ServerType ServerType     `json:"serverType"`
	ToolName   string         `json:"toolName"`
	Args       map[string]any `json:"args,omitempty"`
	Timeout    time.Duration  `json:"-"`
}

// ToolResult is the uniform outcome of a tool call, regardless of the
// underlying server. IsError marks a server-reported tool failure; it is
// not a transport error and the pool never retries it.
type ToolResult struct {
	Content      string `json:"content"`
	IsError      bool   `json:"isError"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ToolName     string `json:"toolName"`
}

// ToolInfo summarizes one tool advertised by a server.
type ToolInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	InputKeys   []string `json:"inputKeys,omitempty"`
}

const (
	// DefaultCallTimeoutSeconds bounds how long a pool caller waits for a result.
	DefaultCallTimeoutSeconds = 60

	// DefaultShutdownTimeoutSeconds bounds pool teardown.
	DefaultShutdownTimeoutSeconds = 10

	// DefaultTemperature is the sampling temperature used when the
	// configuration does not override it.
	DefaultTemperature = 0.7

	// DefaultObservabilityListenAddress serves /metrics and /healthz.
	DefaultObservabilityListenAddress = "127.0.0.1:9464"
)

// ObservabilityConfig configures the metrics/health endpoint.
type ObservabilityConfig struct {
	ListenAddress string `json:"listenAddress"`
}

// CallRecord is the journaled outcome of one pooled tool call.
type CallRecord struct {
	ID           string     `json:"id"`
	ServerType   ServerType `json:"serverType"`
	ToolName     string     `json:"toolName"`
	DurationMs   int64      `json:"duration_ms"`
	IsError      bool       `json:"isError"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	At           time.Time  `json:"at"`
}

// CallRecorder persists call outcomes. Implementations must be safe for
// concurrent use; recording is best-effort and never fails a call.
type CallRecorder interface {
	Record(rec CallRecord)
}

package domain

import "context"

// ToolClient is one connected handle to one external tool server.
// Implementations report session/transport failures as *ConnectionError
// so the pool can tell them apart from server-reported tool failures
// (ToolResult.IsError), which are returned without a Go error.
type ToolClient interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error)
	IsConnected() bool
}

// ClientFactory constructs a ToolClient for a server type. The returned
// client is not yet connected.
type ClientFactory interface {
	New(serverType ServerType) (ToolClient, error)
}

// ClientFactoryFunc adapts a function to the ClientFactory interface.
type ClientFactoryFunc func(serverType ServerType) (ToolClient, error)

func (f ClientFactoryFunc) New(serverType ServerType) (ToolClient, error) {
	return f(serverType)
}

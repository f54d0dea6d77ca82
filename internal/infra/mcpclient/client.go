package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"toolgate/internal/domain"
	"toolgate/internal/infra/telemetry"
)

const (
	clientName    = "toolgate"
	clientVersion = "0.1.0"

	defaultHTTPTimeout = 120 * time.Second
)

// Client is one connected session to one MCP tool server, reachable via
// a child process (command transport) or streamable HTTP. It implements
// domain.ToolClient; transport and session failures surface as
// *domain.ConnectionError so the pool can apply its reconnect policy.
type Client struct {
	spec   domain.ServerSpec
	logger *zap.Logger

	mu      sync.Mutex
	session *mcp.ClientSession
}

func New(spec domain.ServerSpec, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		spec:   spec,
		logger: logger.Named("mcpclient").With(telemetry.ServerTypeField(spec.Name)),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return nil
	}

	transport, err := c.transport()
	if err != nil {
		return domain.NewConnectionError(c.spec.Name, err)
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return domain.NewConnectionError(c.spec.Name, err)
	}

	c.session = session
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session == nil {
		return nil
	}
	if err := session.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// CallTool invokes one tool. A server-reported failure comes back as
// ToolResult.IsError without a Go error; session failures drop the
// session and return a connection-class error.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (domain.ToolResult, error) {
	session := c.currentSession()
	if session == nil {
		return domain.ToolResult{}, domain.NewConnectionError(c.spec.Name, domain.ErrNotConnected)
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		c.invalidate(session)
		return domain.ToolResult{}, domain.NewConnectionError(c.spec.Name, err)
	}

	return mapToolResult(name, result), nil
}

// Ping verifies the session is alive.
func (c *Client) Ping(ctx context.Context) error {
	session := c.currentSession()
	if session == nil {
		return domain.NewConnectionError(c.spec.Name, domain.ErrNotConnected)
	}
	if err := session.Ping(ctx, nil); err != nil {
		return domain.NewConnectionError(c.spec.Name, err)
	}
	return nil
}

// ListTools returns the server's advertised tools with their top-level
// input schema keys.
func (c *Client) ListTools(ctx context.Context) ([]domain.ToolInfo, error) {
	session := c.currentSession()
	if session == nil {
		return nil, domain.NewConnectionError(c.spec.Name, domain.ErrNotConnected)
	}

	result, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, domain.NewConnectionError(c.spec.Name, err)
	}

	infos := make([]domain.ToolInfo, 0, len(result.Tools))
	for _, tool := range result.Tools {
		infos = append(infos, domain.ToolInfo{
			Name:        tool.Name,
			Description: tool.Description,
			InputKeys:   schemaKeys(tool.InputSchema),
		})
	}
	return infos, nil
}

func (c *Client) currentSession() *mcp.ClientSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) invalidate(session *mcp.ClientSession) {
	c.mu.Lock()
	if c.session == session {
		c.session = nil
	}
	c.mu.Unlock()
	_ = session.Close()
}

func (c *Client) transport() (mcp.Transport, error) {
	switch c.spec.Transport {
	case domain.TransportCommand:
		if len(c.spec.Cmd) == 0 {
			return nil, fmt.Errorf("server %s: command transport requires cmd", c.spec.Name)
		}
		cmd := exec.Command(c.spec.Cmd[0], c.spec.Cmd[1:]...)
		cmd.Dir = c.spec.Cwd
		cmd.Env = os.Environ()
		for key, value := range c.spec.Env {
			cmd.Env = append(cmd.Env, key+"="+value)
		}
		return &mcp.CommandTransport{Command: cmd}, nil
	case domain.TransportStreamable:
		if c.spec.Endpoint == "" {
			return nil, fmt.Errorf("server %s: streamable transport requires endpoint", c.spec.Name)
		}
		httpClient := &http.Client{Timeout: defaultHTTPTimeout}
		if len(c.spec.Headers) > 0 {
			httpClient.Transport = &headerRoundTripper{
				base:    http.DefaultTransport,
				headers: c.spec.Headers,
			}
		}
		return &mcp.StreamableClientTransport{
			Endpoint:   c.spec.Endpoint,
			HTTPClient: httpClient,
		}, nil
	default:
		return nil, fmt.Errorf("server %s: unknown transport %q", c.spec.Name, c.spec.Transport)
	}
}

type headerRoundTripper struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	for key, value := range t.headers {
		cloned.Header.Set(key, value)
	}
	return t.base.RoundTrip(cloned)
}

func mapToolResult(name string, result *mcp.CallToolResult) domain.ToolResult {
	out := domain.ToolResult{ToolName: name}
	if result == nil {
		return out
	}

	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	out.Content = strings.Join(parts, "\n")

	if result.IsError {
		out.IsError = true
		out.ErrorMessage = out.Content
	}
	return out
}

// schemaKeys extracts top-level property names from a tool input schema.
func schemaKeys(raw any) []string {
	if raw == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil
	}
	if len(schema.Properties) == 0 {
		return nil
	}
	keys := make([]string, 0, len(schema.Properties))
	for key := range schema.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var _ domain.ToolClient = (*Client)(nil)

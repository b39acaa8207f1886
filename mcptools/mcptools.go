// Package mcptools discovers tools on MCP servers and adapts them to the
// chat.Tool interface so they can be registered with any LLM provider.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fastnlabs/fastn-agent/chat"
	"github.com/fastnlabs/fastn-agent/internal/logging"
)

var logger = logging.Logger().With("component", "mcptools")

// Transport identifies how to reach an MCP server.
type Transport string

const (
	TransportStreamableHTTP Transport = "streamable_http"
	TransportSSE            Transport = "sse"
	TransportStdio          Transport = "stdio"
)

// ServerConfig describes a single MCP server to load tools from.
type ServerConfig struct {
	// Name identifies the server in logs and error messages.
	Name string `json:"name"`
	// Transport selects the connection mechanism.
	Transport Transport `json:"transport"`
	// URL is the endpoint for streamable_http and sse transports.
	URL string `json:"url,omitzero"`
	// Command is the executable for the stdio transport.
	Command string `json:"command,omitzero"`
	// Args are passed to Command for the stdio transport.
	Args []string `json:"args,omitzero"`
}

// Toolset holds the tools discovered across servers along with the live
// client connections backing them. Close it when the session ends.
type Toolset struct {
	tools   []chat.Tool
	clients []*client.Client
}

// Tools returns the discovered tools in server order.
func (ts *Toolset) Tools() []chat.Tool {
	return ts.tools
}

// Close shuts down all server connections.
func (ts *Toolset) Close() error {
	var firstErr error
	for _, c := range ts.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Load connects to each configured server and discovers its tools. A server
// that fails to connect or list tools is logged and skipped rather than
// failing the whole load, so one unreachable server doesn't take down the
// session. Even when every server fails the session proceeds with an empty
// toolset.
func Load(ctx context.Context, configs []ServerConfig) (*Toolset, error) {
	ts := &Toolset{}

	for _, cfg := range configs {
		tools, mcpClient, err := loadServer(ctx, cfg)
		if err != nil {
			logger.Warn("skipping MCP server", "server", cfg.Name, "error", err)
			continue
		}
		logger.Info("loaded MCP server", "server", cfg.Name, "tools", len(tools))
		ts.tools = append(ts.tools, tools...)
		ts.clients = append(ts.clients, mcpClient)
	}

	if len(configs) > 0 && len(ts.clients) == 0 {
		logger.Warn("no MCP servers reachable, continuing without tools", "configured", len(configs))
	}

	return ts, nil
}

func loadServer(ctx context.Context, cfg ServerConfig) ([]chat.Tool, *client.Client, error) {
	mcpClient, err := newClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	tools, err := discoverTools(ctx, cfg.Name, mcpClient)
	if err != nil {
		_ = mcpClient.Close()
		return nil, nil, err
	}

	return tools, mcpClient, nil
}

func newClient(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	switch cfg.Transport {
	case TransportStreamableHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("streamable_http transport requires a URL")
		}
		mcpClient, err := client.NewStreamableHttpClient(cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := mcpClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("starting streamable_http client: %w", err)
		}
		return mcpClient, nil
	case TransportSSE:
		if cfg.URL == "" {
			return nil, fmt.Errorf("sse transport requires a URL")
		}
		mcpClient, err := client.NewSSEMCPClient(cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := mcpClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("starting sse client: %w", err)
		}
		return mcpClient, nil
	case TransportStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("stdio transport requires a command")
		}
		// The stdio client spawns the server process and starts itself.
		return client.NewStdioMCPClient(cfg.Command, nil, cfg.Args...)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// discoverTools performs the MCP handshake and wraps each advertised tool.
func discoverTools(ctx context.Context, serverName string, mcpClient *client.Client) ([]chat.Tool, error) {
	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "fastn-agent",
		Version: "1.0.0",
	}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}

	if _, err := mcpClient.Initialize(ctx, initRequest); err != nil {
		return nil, fmt.Errorf("initializing %s: %w", serverName, err)
	}

	listResult, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing tools on %s: %w", serverName, err)
	}

	tools := make([]chat.Tool, 0, len(listResult.Tools))
	for _, t := range listResult.Tools {
		tool, err := newRemoteTool(serverName, t, mcpClient)
		if err != nil {
			logger.Warn("skipping tool with bad schema", "server", serverName, "tool", t.Name, "error", err)
			continue
		}
		tools = append(tools, tool)
	}

	return tools, nil
}

// remoteTool proxies a tool hosted on an MCP server.
type remoteTool struct {
	serverName  string
	name        string
	description string
	schema      string
	mcpClient   *client.Client
}

var _ chat.Tool = &remoteTool{}

func newRemoteTool(serverName string, def mcp.Tool, mcpClient *client.Client) (*remoteTool, error) {
	inputSchema, err := json.Marshal(def.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("marshaling input schema: %w", err)
	}

	full, err := json.Marshal(map[string]json.RawMessage{
		"name":        json.RawMessage(fmt.Sprintf("%q", def.Name)),
		"description": json.RawMessage(fmt.Sprintf("%q", def.Description)),
		"inputSchema": inputSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling tool definition: %w", err)
	}

	return &remoteTool{
		serverName:  serverName,
		name:        def.Name,
		description: def.Description,
		schema:      string(full),
		mcpClient:   mcpClient,
	}, nil
}

func (t *remoteTool) Name() string          { return t.name }
func (t *remoteTool) Description() string   { return t.description }
func (t *remoteTool) MCPJsonSchema() string { return t.schema }

// Call invokes the remote tool and returns its text content. Failures are
// rendered as a JSON error payload since tool output goes straight back to
// the model.
func (t *remoteTool) Call(ctx context.Context, input string) string {
	var args map[string]any
	if strings.TrimSpace(input) != "" {
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return chat.ErrorJSON(fmt.Sprintf("invalid tool arguments: %s", err))
		}
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = t.name
	request.Params.Arguments = args

	logger.Debug("calling remote tool", "server", t.serverName, "tool", t.name)

	result, err := t.mcpClient.CallTool(ctx, request)
	if err != nil {
		return chat.ErrorJSON(err.Error())
	}

	var output strings.Builder
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			output.WriteString(textContent.Text)
		}
	}

	if result.IsError {
		return chat.ErrorJSON(output.String())
	}

	return output.String()
}

package mcptools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDocServer(t *testing.T) *server.MCPServer {
	t.Helper()

	srv := server.NewMCPServer("doc-server", "1.0.0")

	srv.AddTool(mcp.NewTool("createDoc",
		mcp.WithDescription("Create a document"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title := request.GetString("title", "")
		if title == "" {
			return mcp.NewToolResultError("title is required"), nil
		}
		return mcp.NewToolResultText(`{"documentId":"doc-1"}`), nil
	})

	srv.AddTool(mcp.NewTool("readDoc",
		mcp.WithDescription("Read a document"),
		mcp.WithString("documentId", mcp.Required()),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(`{"text":"hello"}`), nil
	})

	return srv
}

func connect(t *testing.T) *client.Client {
	t.Helper()

	mcpClient, err := client.NewInProcessClient(newDocServer(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mcpClient.Close() })

	require.NoError(t, mcpClient.Start(context.Background()))
	return mcpClient
}

func TestDiscoverTools(t *testing.T) {
	mcpClient := connect(t)

	tools, err := discoverTools(context.Background(), "doc-server", mcpClient)
	require.NoError(t, err)
	require.Len(t, tools, 2)

	assert.Equal(t, "createDoc", tools[0].Name())
	assert.Equal(t, "Create a document", tools[0].Description())
	assert.Equal(t, "readDoc", tools[1].Name())

	// The MCP schema carries name, description, and inputSchema.
	var def struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		InputSchema json.RawMessage `json:"inputSchema"`
	}
	require.NoError(t, json.Unmarshal([]byte(tools[0].MCPJsonSchema()), &def))
	assert.Equal(t, "createDoc", def.Name)
	assert.NotEmpty(t, def.InputSchema)

	var schema struct {
		Type       string                     `json:"type"`
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	require.NoError(t, json.Unmarshal(def.InputSchema, &schema))
	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Properties, "title")
	assert.Equal(t, []string{"title"}, schema.Required)
}

func TestRemoteToolCall(t *testing.T) {
	mcpClient := connect(t)

	tools, err := discoverTools(context.Background(), "doc-server", mcpClient)
	require.NoError(t, err)
	require.NotEmpty(t, tools)

	out := tools[0].Call(context.Background(), `{"title":"Notes"}`)
	assert.JSONEq(t, `{"documentId":"doc-1"}`, out)
}

func TestRemoteToolCallServerError(t *testing.T) {
	mcpClient := connect(t)

	tools, err := discoverTools(context.Background(), "doc-server", mcpClient)
	require.NoError(t, err)

	out := tools[0].Call(context.Background(), `{}`)
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Contains(t, payload["error"], "title is required")
}

func TestRemoteToolCallBadArguments(t *testing.T) {
	mcpClient := connect(t)

	tools, err := discoverTools(context.Background(), "doc-server", mcpClient)
	require.NoError(t, err)

	out := tools[0].Call(context.Background(), "{not json")
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Contains(t, payload["error"], "invalid tool arguments")
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := newClient(ctx, ServerConfig{Name: "a", Transport: TransportStreamableHTTP})
	assert.Error(t, err)

	_, err = newClient(ctx, ServerConfig{Name: "b", Transport: TransportSSE})
	assert.Error(t, err)

	_, err = newClient(ctx, ServerConfig{Name: "c", Transport: TransportStdio})
	assert.Error(t, err)

	_, err = newClient(ctx, ServerConfig{Name: "d", Transport: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestLoadAllServersFailedContinuesEmpty(t *testing.T) {
	t.Parallel()

	ts, err := Load(context.Background(), []ServerConfig{
		{Name: "bad", Transport: "carrier-pigeon"},
		{Name: "worse", Transport: TransportStreamableHTTP},
	})
	require.NoError(t, err)
	assert.Empty(t, ts.Tools())
	assert.NoError(t, ts.Close())
}

func TestLoadNoServers(t *testing.T) {
	t.Parallel()

	ts, err := Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ts.Tools())
	assert.NoError(t, ts.Close())
}

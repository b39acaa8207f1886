package claude

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastnlabs/fastn-agent/chat"
)

func TestMessageParamRoles(t *testing.T) {
	t.Parallel()

	user, err := messageParam(chat.UserMessage("hello"))
	require.NoError(t, err)
	assert.Equal(t, anthropic.MessageParamRoleUser, user.Role)

	assistant, err := messageParam(chat.AssistantMessage("hi there"))
	require.NoError(t, err)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, assistant.Role)

	// Tool results must be sent with the user role.
	toolMsg := chat.Message{Role: chat.ToolRole}
	toolMsg.AddToolResult(chat.ToolResult{ToolCallID: "toolu_1", Name: "createDoc", Content: `{"documentId":"d1"}`})
	converted, err := messageParam(toolMsg)
	require.NoError(t, err)
	assert.Equal(t, anthropic.MessageParamRoleUser, converted.Role)
	require.Len(t, converted.Content, 1)
	require.NotNil(t, converted.Content[0].OfToolResult)
	assert.Equal(t, "toolu_1", converted.Content[0].OfToolResult.ToolUseID)
}

func TestMessageParamAssistantWithToolCalls(t *testing.T) {
	t.Parallel()

	msg := chat.Message{Role: chat.AssistantRole}
	msg.AddText("creating a doc")
	msg.AddToolCall(chat.ToolCall{
		ID:        "toolu_1",
		Name:      "createDoc",
		Arguments: json.RawMessage(`{"title":"Notes"}`),
	})

	converted, err := messageParam(msg)
	require.NoError(t, err)
	require.Len(t, converted.Content, 2)
	require.NotNil(t, converted.Content[0].OfText)
	assert.Equal(t, "creating a doc", converted.Content[0].OfText.Text)
	require.NotNil(t, converted.Content[1].OfToolUse)
	assert.Equal(t, "toolu_1", converted.Content[1].OfToolUse.ID)
	assert.Equal(t, "createDoc", converted.Content[1].OfToolUse.Name)
}

func TestMessageParamRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := messageParam(chat.Message{Role: chat.UserRole})
	assert.Error(t, err)
}

func TestToolResultBlockError(t *testing.T) {
	t.Parallel()

	block := toolResultBlock(chat.ToolResult{ToolCallID: "toolu_1", Error: "boom"})
	require.NotNil(t, block.OfToolResult)
	assert.True(t, block.OfToolResult.IsError.Value)

	ok := toolResultBlock(chat.ToolResult{ToolCallID: "toolu_2", Content: "fine"})
	require.NotNil(t, ok.OfToolResult)
	assert.False(t, ok.OfToolResult.IsError.Value)
}

func TestMcpToClaudeTool(t *testing.T) {
	t.Parallel()

	def := staticToolDef{
		name: "createDoc",
		desc: "Create a document",
		schema: `{"name":"createDoc","description":"Create a document","inputSchema":` +
			`{"type":"object","properties":{"title":{"type":"string"}}}}`,
	}

	param, err := mcpToClaudeTool(def)
	require.NoError(t, err)
	require.NotNil(t, param.OfTool)
	assert.Equal(t, "createDoc", param.OfTool.Name)
	assert.Equal(t, "Create a document", param.OfTool.Description.Value)

	_, err = mcpToClaudeTool(staticToolDef{name: "bad", schema: "{not json"})
	assert.Error(t, err)
}

type staticToolDef struct {
	name   string
	desc   string
	schema string
}

func (d staticToolDef) Name() string          { return d.name }
func (d staticToolDef) Description() string   { return d.desc }
func (d staticToolDef) MCPJsonSchema() string { return d.schema }

func TestGetMaxOutputTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(64000), getMaxOutputTokens("claude-sonnet-4-5"))
	assert.Equal(t, int64(8192), getMaxOutputTokens("claude-3-5-haiku-latest"))
	assert.Equal(t, int64(4096), getMaxOutputTokens("claude-imaginary"))
}

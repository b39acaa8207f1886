package claude

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/fastnlabs/fastn-agent/chat"
	"github.com/fastnlabs/fastn-agent/llm/internal/common"
)

// messageParam converts a chat.Message to an anthropic.MessageParam.
//
// IMPORTANT INVARIANT: Tool results must NEVER be stored in assistant messages.
// - Assistant messages contain only text content and tool calls (ToolUseBlock)
// - Tool results live in ToolRole messages, which Claude requires to be sent
//   as User role messages. This is different from OpenAI, which has a
//   dedicated "tool" role.
func messageParam(msg chat.Message) (anthropic.MessageParam, error) {
	if len(msg.Contents) == 0 {
		return anthropic.MessageParam{}, fmt.Errorf("message has no contents")
	}

	var blocks []anthropic.ContentBlockParamUnion

	for _, content := range msg.Contents {
		if content.Text != "" {
			blocks = append(blocks, anthropic.NewTextBlock(content.Text))
		}

		if content.ToolCall != nil {
			blocks = append(blocks, anthropic.NewToolUseBlock(
				content.ToolCall.ID,
				content.ToolCall.Arguments,
				content.ToolCall.Name,
			))
		}

		if content.ToolResult != nil {
			blocks = append(blocks, toolResultBlock(*content.ToolResult))
		}
	}

	if len(blocks) == 0 {
		return anthropic.MessageParam{}, fmt.Errorf("message has no valid content blocks")
	}

	switch msg.Role {
	case chat.AssistantRole:
		return anthropic.NewAssistantMessage(blocks...), nil
	default:
		// Claude API requirement: tool results go in User role messages.
		return anthropic.NewUserMessage(blocks...), nil
	}
}

// messageParams converts a slice of chat messages.
func messageParams(msgs []chat.Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(msgs))
	for i, msg := range msgs {
		param, err := messageParam(msg)
		if err != nil {
			return nil, fmt.Errorf("converting message %d: %w", i, err)
		}
		result = append(result, param)
	}
	return result, nil
}

func toolResultBlock(tr chat.ToolResult) anthropic.ContentBlockParamUnion {
	isError := tr.Error != ""
	return anthropic.NewToolResultBlock(tr.ToolCallID, common.ToolResultContent(tr), isError)
}

func toolUseToChat(block anthropic.ToolUseBlock) chat.ToolCall {
	var args json.RawMessage
	if len(block.Input) > 0 {
		args = append(json.RawMessage(nil), block.Input...)
	}
	return chat.ToolCall{
		ID:        block.ID,
		Name:      block.Name,
		Arguments: args,
	}
}

// mcpToClaudeTool converts an MCP tool definition to Claude's tool format.
func mcpToClaudeTool(def chat.ToolDef) (anthropic.ToolUnionParam, error) {
	var mcp struct {
		InputSchema json.RawMessage `json:"inputSchema"`
	}

	if err := json.Unmarshal([]byte(def.MCPJsonSchema()), &mcp); err != nil {
		return anthropic.ToolUnionParam{}, fmt.Errorf("failed to parse MCP definition: %w", err)
	}

	var inputSchema anthropic.ToolInputSchemaParam
	if len(mcp.InputSchema) > 0 {
		if err := json.Unmarshal(mcp.InputSchema, &inputSchema); err != nil {
			return anthropic.ToolUnionParam{}, fmt.Errorf("failed to parse input schema: %w", err)
		}
	}

	toolParam := anthropic.ToolParam{
		Name:        def.Name(),
		InputSchema: inputSchema,
		Type:        anthropic.ToolTypeCustom,
	}

	if description := def.Description(); description != "" {
		toolParam.Description = anthropic.String(description)
	}

	return anthropic.ToolUnionParam{
		OfTool: &toolParam,
	}, nil
}

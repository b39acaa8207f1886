package openai

import (
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/fastnlabs/fastn-agent/chat"
	"github.com/fastnlabs/fastn-agent/llm/internal/common"
)

// messageToOpenAI converts a chat.Message to OpenAI message parameters.
//
// IMPORTANT INVARIANTS for OpenAI:
// - Tool calls must be in Assistant role messages
// - Tool results must be in separate Tool role messages
// - OpenAI uses "tool" role for tool results, not "user" like Claude
func messageToOpenAI(msg chat.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	if len(msg.Contents) == 0 {
		return nil, fmt.Errorf("message has no contents")
	}

	switch msg.Role {
	case chat.UserRole:
		text := msg.GetText()
		if text == "" {
			return nil, fmt.Errorf("user message has no text content")
		}
		return []openai.ChatCompletionMessageParamUnion{openai.UserMessage(text)}, nil

	case chat.AssistantRole:
		// Assistant messages can contain text and/or tool calls.
		assistant := openai.ChatCompletionAssistantMessageParam{}

		if text := msg.GetText(); text != "" {
			assistant.Content.OfString = param.NewOpt(text)
		}

		if toolCalls := msg.GetToolCalls(); len(toolCalls) > 0 {
			assistant.ToolCalls = buildOpenAIToolCallParams(toolCalls)
		}

		if assistant.Content.OfString.Value == "" && len(assistant.ToolCalls) == 0 {
			return nil, fmt.Errorf("assistant message has no valid content")
		}

		return []openai.ChatCompletionMessageParamUnion{{OfAssistant: &assistant}}, nil

	case chat.ToolRole:
		// OpenAI requires a separate message per tool result.
		toolResults := msg.GetToolResults()
		if len(toolResults) == 0 {
			return nil, fmt.Errorf("tool message has no tool results")
		}

		msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(toolResults))
		for _, tr := range toolResults {
			msgs = append(msgs, openai.ToolMessage(common.ToolResultContent(tr), tr.ToolCallID))
		}
		return msgs, nil

	default:
		return nil, fmt.Errorf("unknown message role: %s", msg.Role)
	}
}

// messagesToOpenAI converts a slice of chat messages, expanding tool-role
// messages into one OpenAI message per tool result.
func messagesToOpenAI(msgs []chat.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	var result []openai.ChatCompletionMessageParamUnion

	for i, msg := range msgs {
		converted, err := messageToOpenAI(msg)
		if err != nil {
			return nil, fmt.Errorf("converting message %d: %w", i, err)
		}
		result = append(result, converted...)
	}

	return result, nil
}

// buildOpenAIToolCallParams converts chat.ToolCall array to OpenAI tool call params.
func buildOpenAIToolCallParams(toolCalls []chat.ToolCall) []openai.ChatCompletionMessageToolCallParam {
	params := make([]openai.ChatCompletionMessageToolCallParam, len(toolCalls))
	for i, tc := range toolCalls {
		params[i] = openai.ChatCompletionMessageToolCallParam{
			ID: tc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Name,
				Arguments: string(tc.Arguments),
			},
		}
	}
	return params
}

// openaiToolCallToChat converts a completed tool call from the API response.
func openaiToolCallToChat(tc openai.ChatCompletionMessageToolCall) chat.ToolCall {
	var args json.RawMessage
	if tc.Function.Arguments != "" {
		args = json.RawMessage(tc.Function.Arguments)
	}
	return chat.ToolCall{
		ID:        tc.ID,
		Name:      tc.Function.Name,
		Arguments: args,
	}
}

// mcpToOpenAITool converts an MCP tool definition to OpenAI format.
func mcpToOpenAITool(def chat.ToolDef) (openai.ChatCompletionToolParam, error) {
	var mcp struct {
		InputSchema json.RawMessage `json:"inputSchema"`
	}

	if err := json.Unmarshal([]byte(def.MCPJsonSchema()), &mcp); err != nil {
		return openai.ChatCompletionToolParam{}, fmt.Errorf("failed to parse MCP definition: %w", err)
	}

	var parameters shared.FunctionParameters
	if len(mcp.InputSchema) > 0 {
		// The inputSchema is already in JSON Schema format, which OpenAI expects.
		if err := json.Unmarshal(mcp.InputSchema, &parameters); err != nil {
			return openai.ChatCompletionToolParam{}, fmt.Errorf("failed to parse input schema: %w", err)
		}
	}

	return openai.ChatCompletionToolParam{
		Function: shared.FunctionDefinitionParam{
			Name:        def.Name(),
			Description: param.NewOpt(def.Description()),
			Parameters:  parameters,
		},
	}, nil
}

package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/fastnlabs/fastn-agent/chat"
)

// messageToGemini converts a chat.Message to Gemini Content format.
//
// IMPORTANT INVARIANTS for Gemini:
// - Tool calls are FunctionCall parts within a Content
// - Tool results are FunctionResponse parts with "function" role
// - Assistant role maps to "model", User role maps to "user", Tool role maps to "function"
func messageToGemini(msg chat.Message) (*genai.Content, error) {
	if len(msg.Contents) == 0 {
		return nil, fmt.Errorf("message has no contents")
	}

	switch msg.Role {
	case chat.UserRole:
		text := msg.GetText()
		if text == "" {
			return nil, fmt.Errorf("user message has no text content")
		}
		return &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{{Text: text}},
		}, nil

	case chat.AssistantRole:
		var parts []*genai.Part

		if text := msg.GetText(); text != "" {
			parts = append(parts, &genai.Part{Text: text})
		}

		for _, tc := range msg.GetToolCalls() {
			var args map[string]any
			if len(tc.Arguments) > 0 {
				if err := json.Unmarshal(tc.Arguments, &args); err != nil {
					args = map[string]any{"raw": string(tc.Arguments)}
				}
			}

			id := tc.ID
			if id == "" {
				id = generateFunctionCallID()
			}

			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   id,
					Name: tc.Name,
					Args: args,
				},
			})
		}

		if len(parts) == 0 {
			return nil, fmt.Errorf("assistant message has no valid content")
		}

		return &genai.Content{
			Role:  "model",
			Parts: parts,
		}, nil

	case chat.ToolRole:
		toolResults := msg.GetToolResults()
		if len(toolResults) == 0 {
			return nil, fmt.Errorf("tool message has no tool results")
		}

		parts := make([]*genai.Part, 0, len(toolResults))
		for _, tr := range toolResults {
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       tr.ToolCallID,
					Name:     tr.Name,
					Response: functionResponsePayload(tr),
				},
			})
		}

		return &genai.Content{
			Role:  "function",
			Parts: parts,
		}, nil

	default:
		return nil, fmt.Errorf("unknown message role: %s", msg.Role)
	}
}

// functionResponsePayload builds the response map Gemini expects. Non-JSON
// tool output is wrapped so the payload is always a JSON object.
func functionResponsePayload(tr chat.ToolResult) map[string]any {
	response := make(map[string]any)

	if tr.Error != "" {
		response["error"] = tr.Error
	} else if tr.Content != "" {
		if err := json.Unmarshal([]byte(tr.Content), &response); err != nil {
			response = map[string]any{"result": tr.Content}
		}
	} else {
		response["result"] = "success"
	}

	return response
}

// messagesToGemini converts a slice of chat messages to Gemini Content format.
func messagesToGemini(msgs []chat.Message) ([]*genai.Content, error) {
	result := make([]*genai.Content, 0, len(msgs))

	for i, msg := range msgs {
		converted, err := messageToGemini(msg)
		if err != nil {
			return nil, fmt.Errorf("converting message %d: %w", i, err)
		}
		if converted != nil && len(converted.Parts) > 0 {
			result = append(result, converted)
		}
	}

	return result, nil
}

func functionCallToChat(fc *genai.FunctionCall) chat.ToolCall {
	argsJSON, err := json.Marshal(fc.Args)
	if err != nil {
		argsJSON = []byte("{}")
	}

	id := fc.ID
	if id == "" {
		id = generateFunctionCallID()
	}

	return chat.ToolCall{
		ID:        id,
		Name:      fc.Name,
		Arguments: json.RawMessage(argsJSON),
	}
}

// generateFunctionCallID synthesizes an ID for function calls the API
// returned without one, so results can still be paired with their calls.
func generateFunctionCallID() string {
	return "call_" + uuid.NewString()
}

// mcpToGeminiFunctionDeclaration converts an MCP tool definition to Gemini
// FunctionDeclaration format.
func mcpToGeminiFunctionDeclaration(def chat.ToolDef) (*genai.FunctionDeclaration, error) {
	var mcp struct {
		InputSchema json.RawMessage `json:"inputSchema"`
	}

	if err := json.Unmarshal([]byte(def.MCPJsonSchema()), &mcp); err != nil {
		return nil, fmt.Errorf("failed to parse MCP definition: %w", err)
	}

	var parameters *genai.Schema
	if len(mcp.InputSchema) > 0 {
		var schemaMap map[string]interface{}
		if err := json.Unmarshal(mcp.InputSchema, &schemaMap); err != nil {
			return nil, fmt.Errorf("failed to parse input schema: %w", err)
		}

		parameters = &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema),
		}

		if props, ok := schemaMap["properties"].(map[string]interface{}); ok {
			for propName, propSchema := range props {
				if propMap, ok := propSchema.(map[string]interface{}); ok {
					geminiProp := &genai.Schema{}

					if typeStr, ok := propMap["type"].(string); ok {
						switch typeStr {
						case "string":
							geminiProp.Type = genai.TypeString
						case "integer":
							geminiProp.Type = genai.TypeInteger
						case "number":
							geminiProp.Type = genai.TypeNumber
						case "boolean":
							geminiProp.Type = genai.TypeBoolean
						case "array":
							geminiProp.Type = genai.TypeArray
						case "object":
							geminiProp.Type = genai.TypeObject
						}
					}

					if desc, ok := propMap["description"].(string); ok {
						geminiProp.Description = desc
					}

					parameters.Properties[propName] = geminiProp
				}
			}
		}

		if required, ok := schemaMap["required"].([]interface{}); ok {
			requiredFields := make([]string, 0, len(required))
			for _, field := range required {
				if fieldName, ok := field.(string); ok {
					requiredFields = append(requiredFields, fieldName)
				}
			}
			parameters.Required = requiredFields
		}
	}

	return &genai.FunctionDeclaration{
		Name:        def.Name(),
		Description: def.Description(),
		Parameters:  parameters,
	}, nil
}

package common

import (
	"github.com/fastnlabs/fastn-agent/chat"
)

// BuildToolResult returns a ToolResult for a completed tool execution.
// Execution errors are carried in the Error field so providers can render
// them in whatever shape their API expects.
func BuildToolResult(toolName, toolCallID, raw string, execErr error) chat.ToolResult {
	result := chat.ToolResult{
		ToolCallID: toolCallID,
		Name:       toolName,
	}

	if execErr != nil {
		result.Error = execErr.Error()
		return result
	}

	result.Content = raw
	return result
}

// ToolResultContent returns the wire content for a tool result, substituting
// a structured error payload when the execution failed and "{}" when the tool
// produced no output at all.
func ToolResultContent(tr chat.ToolResult) string {
	if tr.Error != "" {
		return chat.ErrorJSON(tr.Error)
	}
	if tr.Content == "" {
		return "{}"
	}
	return tr.Content
}

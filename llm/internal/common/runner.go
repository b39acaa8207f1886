package common

import (
	"context"
	"fmt"

	"github.com/fastnlabs/fastn-agent/chat"
)

// MaxToolRounds bounds how many rounds of tool calls a single turn may make
// before the loop is abandoned, preventing the model from spinning forever.
const MaxToolRounds = 10

// ExecuteToolCalls runs each requested tool in order, emitting tool_call and
// tool_result stream events around each execution. Tool failures become
// error-carrying results rather than aborting the round; a callback error
// does abort, since it means the caller wants out.
func ExecuteToolCalls(ctx context.Context, tools *Tools, calls []chat.ToolCall, callback chat.StreamCallback) ([]chat.ToolResult, error) {
	results := make([]chat.ToolResult, 0, len(calls))

	for _, tc := range calls {
		if callback != nil {
			event := chat.StreamEvent{
				Type:      chat.StreamEventTypeToolCall,
				ToolCalls: []chat.ToolCall{tc},
			}
			if err := callback(event); err != nil {
				return nil, fmt.Errorf("callback error: %w", err)
			}
		}

		raw, execErr := tools.Execute(ctx, tc.Name, string(tc.Arguments))
		result := BuildToolResult(tc.Name, tc.ID, raw, execErr)

		if callback != nil {
			event := chat.StreamEvent{
				Type:        chat.StreamEventTypeToolResult,
				ToolResults: []chat.ToolResult{result},
			}
			if err := callback(event); err != nil {
				return nil, fmt.Errorf("callback error: %w", err)
			}
		}

		results = append(results, result)
	}

	return results, nil
}

// AssistantToolCallMessage builds the assistant message that records a round
// of tool calls, including any text the model produced alongside them.
func AssistantToolCallMessage(text string, calls []chat.ToolCall) chat.Message {
	msg := chat.Message{Role: chat.AssistantRole}
	if text != "" {
		msg.AddText(text)
	}
	for _, tc := range calls {
		msg.AddToolCall(tc)
	}
	return msg
}

// ToolResultMessage groups a round's tool results into a single tool-role message.
func ToolResultMessage(results []chat.ToolResult) chat.Message {
	msg := chat.Message{Role: chat.ToolRole}
	for _, tr := range results {
		msg.AddToolResult(tr)
	}
	return msg
}

// EmitContent sends the final assistant text and a done event to the callback,
// if one is registered.
func EmitContent(callback chat.StreamCallback, text, finishReason string) error {
	if callback == nil {
		return nil
	}
	if text != "" {
		if err := callback(chat.StreamEvent{Type: chat.StreamEventTypeContent, Content: text}); err != nil {
			return err
		}
	}
	return callback(chat.StreamEvent{Type: chat.StreamEventTypeDone, FinishReason: finishReason})
}

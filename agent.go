// Package agent ties a chat client, a set of tools, and a session transcript
// into a conversational agent. Each ProcessMessage call runs one turn of the
// tool-calling loop and reconciles the tool results it produced.
package agent

import (
	"context"

	"github.com/fastnlabs/fastn-agent/chat"
	"github.com/fastnlabs/fastn-agent/internal/logging"
)

var logger = logging.Logger().With("component", "agent")

// SystemPrompt instructs the model to send concrete argument values rather
// than echoing a tool's JSON schema back, and to carry IDs from earlier tool
// results into later calls.
const SystemPrompt = `You are a helpful assistant that processes user requests through various tools.

CRITICAL INSTRUCTION FOR ALL TOOL CALLS:

When a tool requires JSON input, you MUST follow these instructions exactly:

1. DO NOT SEND THE JSON SCHEMA. ALWAYS SEND ACTUAL JSON OBJECTS WITH VALUES.
2. For each property in the schema, provide an appropriate VALUE, not the property definition.
3. Include only the actual data fields and values, not type information, descriptions, or titles.

For example, for a schema describing a "name" string property and an "age"
integer property, send {"name": "John Smith", "age": 30}, never the schema
itself.

When working with ANY tool:
- Analyze the schema to understand required fields and data types
- Create actual JSON with appropriate values for those fields
- Never include schema metadata like "type", "properties", "description", etc.
- For dates and times, use standard formats (ISO 8601)
- For arrays, include actual array items with appropriate values

IMPORTANT FOR SEQUENTIAL OPERATIONS:
- The results of previous tool calls are stored and available to you
- If you created a document with createDoc, you can refer to the document ID in the tool response
- When updating a document, you MUST use the document ID from the previous createDoc result
- Always check tool responses for IDs, URLs, or other data needed for subsequent operations

This is EXTREMELY important. If you send schemas instead of values, the tools will fail.`

// Status reports how a turn ended.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Response is the outcome of a single ProcessMessage turn.
type Response struct {
	// Status is success or error.
	Status Status `json:"status"`
	// AssistantMessage is the final assistant text for the turn.
	AssistantMessage string `json:"assistant_message,omitzero"`
	// Err holds the invocation error when Status is error.
	Err error `json:"-"`
	// ToolResults maps tool call IDs (and any aliases hooks added) to the
	// results extracted during this turn.
	ToolResults map[string]ToolResultRecord `json:"tool_results,omitzero"`
	// Transcript is the session transcript after the turn.
	Transcript chat.Transcript `json:"transcript,omitzero"`
}

// Agent is the session object for one conversation: it owns the transcript,
// the accumulated tool results, and the tools offered to the model.
type Agent struct {
	client       chat.Client
	tools        []chat.Tool
	systemPrompt string

	transcript chat.Transcript
	results    *ResultStore
	hooks      map[string][]ResultHook
}

// Option configures an Agent.
type Option func(*Agent)

// WithSystemPrompt overrides the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

// WithTranscript seeds the agent with a previously saved transcript.
func WithTranscript(transcript chat.Transcript) Option {
	return func(a *Agent) {
		a.transcript = transcript.Clone()
	}
}

// WithHook registers a post-result hook for a tool, in addition to the
// defaults.
func WithHook(toolName string, hook ResultHook) Option {
	return func(a *Agent) {
		a.hooks[toolName] = append(a.hooks[toolName], hook)
	}
}

// New creates an agent against the given chat client and tools. The
// createDoc document-ID hook is registered by default.
func New(client chat.Client, tools []chat.Tool, opts ...Option) *Agent {
	a := &Agent{
		client:       client,
		tools:        tools,
		systemPrompt: SystemPrompt,
		results:      NewResultStore(),
		hooks:        make(map[string][]ResultHook),
	}
	a.hooks["createDoc"] = []ResultHook{DocumentIDHook}

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Transcript returns the current session transcript.
func (a *Agent) Transcript() chat.Transcript {
	return a.transcript.Clone()
}

// Results returns the accumulated tool results for the session.
func (a *Agent) Results() *ResultStore {
	return a.results
}

// Reset clears the transcript and accumulated tool results.
func (a *Agent) Reset() {
	a.transcript = chat.Transcript{}
	a.results.Reset()
	logger.Info("conversation reset")
}

// ProcessMessage runs one turn: the user text is appended to the transcript,
// the validated history is replayed to a fresh chat with all tools
// registered, and the tool loop runs to completion. On success the transcript
// gains the turn's user, tool, and assistant messages; on invocation failure
// it keeps only the user message so the next turn can retry cleanly.
func (a *Agent) ProcessMessage(ctx context.Context, text string) Response {
	userMsg := chat.UserMessage(text)

	valid := a.transcript.ValidForModel()
	if dropped := len(a.transcript) - len(valid); dropped > 0 {
		logger.Warn("dropped invalid messages from history", "count", dropped)
	}

	c := a.client.NewChat(a.systemPrompt, valid...)
	for _, tool := range a.tools {
		if err := c.RegisterTool(tool); err != nil {
			logger.Warn("skipping tool", "tool", tool.Name(), "error", err)
		}
	}

	// The trace of tool calls and results is observed through stream events
	// emitted by the provider's tool loop.
	var trace []chat.StreamEvent
	callback := func(event chat.StreamEvent) error {
		switch event.Type {
		case chat.StreamEventTypeToolCall, chat.StreamEventTypeToolResult:
			trace = append(trace, event)
		}
		return nil
	}

	respMsg, err := c.Message(ctx, userMsg, chat.WithStreamingCb(callback))
	if err != nil {
		logger.Error("turn failed", "error", err)
		a.transcript = append(a.transcript, userMsg)
		return Response{
			Status:     StatusError,
			Err:        err,
			Transcript: a.transcript.Clone(),
		}
	}

	// The chat history now holds the validated prefix plus everything this
	// turn produced; graft only the new messages onto the raw transcript so
	// messages the validator dropped are not silently erased from the record.
	_, history := c.History()
	if len(history) > len(valid) {
		a.transcript = append(a.transcript, history[len(valid):]...)
	} else {
		a.transcript = append(a.transcript, userMsg, respMsg)
	}

	newResults := a.extractResults(trace)

	return Response{
		Status:           StatusSuccess,
		AssistantMessage: respMsg.GetText(),
		ToolResults:      newResults,
		Transcript:       a.transcript.Clone(),
	}
}

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastnlabs/fastn-agent/chat"
	"github.com/fastnlabs/fastn-agent/persistence"
)

// scriptedTurn describes what the fake model does for one Message call.
type scriptedTurn struct {
	toolCalls   []chat.ToolCall
	toolResults []chat.ToolResult
	reply       string
	err         error
}

type fakeClient struct {
	turns []scriptedTurn
	// lastChat exposes the most recent chat so tests can inspect what
	// history the agent replayed.
	lastChat *fakeChat
}

var _ chat.Client = &fakeClient{}

func (f *fakeClient) NewChat(systemPrompt string, initialMsgs ...chat.Message) chat.Chat {
	f.lastChat = &fakeChat{
		client:       f,
		systemPrompt: systemPrompt,
		initial:      append([]chat.Message(nil), initialMsgs...),
		messages:     append([]chat.Message(nil), initialMsgs...),
	}
	return f.lastChat
}

type fakeChat struct {
	client       *fakeClient
	systemPrompt string
	initial      []chat.Message
	messages     []chat.Message
	tools        []string
}

func (f *fakeChat) Message(ctx context.Context, msg chat.Message, opts ...chat.Option) (chat.Message, error) {
	if len(f.client.turns) == 0 {
		return chat.Message{}, errors.New("no scripted turns left")
	}
	turn := f.client.turns[0]
	f.client.turns = f.client.turns[1:]

	if turn.err != nil {
		return chat.Message{}, turn.err
	}

	reqOpts := chat.ApplyOptions(opts...)
	callback := reqOpts.StreamingCb

	f.messages = append(f.messages, msg)

	if len(turn.toolCalls) > 0 {
		assistant := chat.Message{Role: chat.AssistantRole}
		toolMsg := chat.Message{Role: chat.ToolRole}
		for i, tc := range turn.toolCalls {
			assistant.AddToolCall(tc)
			toolMsg.AddToolResult(turn.toolResults[i])
			if callback != nil {
				if err := callback(chat.StreamEvent{Type: chat.StreamEventTypeToolCall, ToolCalls: []chat.ToolCall{tc}}); err != nil {
					return chat.Message{}, err
				}
				if err := callback(chat.StreamEvent{Type: chat.StreamEventTypeToolResult, ToolResults: []chat.ToolResult{turn.toolResults[i]}}); err != nil {
					return chat.Message{}, err
				}
			}
		}
		f.messages = append(f.messages, assistant, toolMsg)
	}

	respMsg := chat.AssistantMessage(turn.reply)
	f.messages = append(f.messages, respMsg)
	return respMsg, nil
}

func (f *fakeChat) History() (string, []chat.Message) {
	return f.systemPrompt, append([]chat.Message(nil), f.messages...)
}

func (f *fakeChat) TokenUsage() (chat.TokenUsage, error) {
	return chat.TokenUsage{}, nil
}

func (f *fakeChat) RegisterTool(tool chat.Tool) error {
	f.tools = append(f.tools, tool.Name())
	return nil
}

func (f *fakeChat) DeregisterTool(name string) {}

func (f *fakeChat) ListTools() []string {
	return f.tools
}

func TestProcessMessagePlainReply(t *testing.T) {
	t.Parallel()

	client := &fakeClient{turns: []scriptedTurn{{reply: "hi there"}}}
	a := New(client, nil)

	resp := a.ProcessMessage(context.Background(), "hello")
	require.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "hi there", resp.AssistantMessage)
	assert.Empty(t, resp.ToolResults)

	require.Len(t, resp.Transcript, 2)
	assert.Equal(t, chat.UserRole, resp.Transcript[0].Role)
	assert.Equal(t, chat.AssistantRole, resp.Transcript[1].Role)
}

func TestProcessMessageWithToolRound(t *testing.T) {
	t.Parallel()

	client := &fakeClient{turns: []scriptedTurn{{
		toolCalls: []chat.ToolCall{
			{ID: "call_1", Name: "createDoc", Arguments: json.RawMessage(`{"title":"Notes"}`)},
		},
		toolResults: []chat.ToolResult{
			{ToolCallID: "call_1", Name: "createDoc", Content: `{"documentId":"doc-42"}`},
		},
		reply: "created your document",
	}}}
	a := New(client, nil)

	resp := a.ProcessMessage(context.Background(), "make a doc")
	require.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "created your document", resp.AssistantMessage)

	// user + assistant-with-calls + tool + assistant
	require.Len(t, resp.Transcript, 4)
	assert.True(t, resp.Transcript[1].HasToolCalls())
	assert.True(t, resp.Transcript[2].HasToolResults())

	record, ok := resp.ToolResults["call_1"]
	require.True(t, ok)
	assert.Equal(t, "createDoc", record.Tool)
	assert.Equal(t, `{"documentId":"doc-42"}`, record.Output)
	assert.JSONEq(t, `{"title":"Notes"}`, string(record.Input))

	// The document ID alias is part of the turn's results, not just the store.
	assert.Equal(t, "doc-42", resp.ToolResults[LastDocumentIDKey].Output)

	docID, ok := a.Results().Alias(LastDocumentIDKey)
	require.True(t, ok)
	assert.Equal(t, "doc-42", docID)
}

func TestProcessMessageErrorKeepsUserMessageOnly(t *testing.T) {
	t.Parallel()

	client := &fakeClient{turns: []scriptedTurn{
		{err: errors.New("rate limited")},
		{reply: "recovered"},
	}}
	a := New(client, nil)

	resp := a.ProcessMessage(context.Background(), "first try")
	require.Equal(t, StatusError, resp.Status)
	require.Error(t, resp.Err)
	assert.Empty(t, resp.AssistantMessage)

	require.Len(t, resp.Transcript, 1)
	assert.Equal(t, chat.UserRole, resp.Transcript[0].Role)
	assert.Equal(t, "first try", resp.Transcript[0].GetText())

	// The next turn proceeds on top of the kept user message.
	resp = a.ProcessMessage(context.Background(), "second try")
	require.Equal(t, StatusSuccess, resp.Status)
	assert.Len(t, resp.Transcript, 3)
}

func TestProcessMessageValidatesHistoryBeforeReplay(t *testing.T) {
	t.Parallel()

	orphanTool := chat.Message{Role: chat.ToolRole}
	orphanTool.AddToolResult(chat.ToolResult{ToolCallID: "ghost", Name: "createDoc", Content: "{}"})

	seed := chat.Transcript{
		chat.UserMessage("earlier"),
		orphanTool,
		chat.AssistantMessage("earlier reply"),
	}

	client := &fakeClient{turns: []scriptedTurn{{reply: "ok"}}}
	a := New(client, nil, WithTranscript(seed))

	resp := a.ProcessMessage(context.Background(), "now")
	require.Equal(t, StatusSuccess, resp.Status)

	// The orphan tool message was not replayed to the model.
	require.Len(t, client.lastChat.initial, 2)
	assert.Equal(t, "earlier", client.lastChat.initial[0].GetText())
	assert.Equal(t, "earlier reply", client.lastChat.initial[1].GetText())

	// But it stays in the raw transcript.
	assert.Len(t, resp.Transcript, 5)
}

func TestReset(t *testing.T) {
	t.Parallel()

	client := &fakeClient{turns: []scriptedTurn{{
		toolCalls:   []chat.ToolCall{{ID: "call_1", Name: "createDoc", Arguments: json.RawMessage(`{}`)}},
		toolResults: []chat.ToolResult{{ToolCallID: "call_1", Name: "createDoc", Content: `{"documentId":"d"}`}},
		reply:       "done",
	}}}
	a := New(client, nil)

	a.ProcessMessage(context.Background(), "make a doc")
	require.NotEmpty(t, a.Transcript())

	a.Reset()
	assert.Empty(t, a.Transcript())
	records, aliases := a.Results().Snapshot()
	assert.Empty(t, records)
	assert.Empty(t, aliases)
}

func TestTranscriptSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	client := &fakeClient{turns: []scriptedTurn{{
		toolCalls:   []chat.ToolCall{{ID: "call_1", Name: "createDoc", Arguments: json.RawMessage(`{"title":"x"}`)}},
		toolResults: []chat.ToolResult{{ToolCallID: "call_1", Name: "createDoc", Content: `{"documentId":"d1"}`}},
		reply:       "done",
	}}}
	a := New(client, nil)
	resp := a.ProcessMessage(context.Background(), "make a doc")
	require.Equal(t, StatusSuccess, resp.Status)

	store := persistence.NewMemoryStore()
	require.NoError(t, store.Save("s1", a.Transcript()))

	loaded, err := store.Load("s1")
	require.NoError(t, err)
	assert.Equal(t, a.Transcript(), loaded)

	// A new agent seeded with the loaded transcript picks up where the
	// previous one stopped.
	client2 := &fakeClient{turns: []scriptedTurn{{reply: "still here"}}}
	resumed := New(client2, nil, WithTranscript(loaded))
	resp = resumed.ProcessMessage(context.Background(), "are you there?")
	require.Equal(t, StatusSuccess, resp.Status)
	assert.Len(t, resp.Transcript, 6)
}

func TestWithSystemPromptAndHook(t *testing.T) {
	t.Parallel()

	var hooked []string
	client := &fakeClient{turns: []scriptedTurn{{
		toolCalls:   []chat.ToolCall{{ID: "call_1", Name: "search", Arguments: json.RawMessage(`{}`)}},
		toolResults: []chat.ToolResult{{ToolCallID: "call_1", Name: "search", Content: `{"hits":3}`}},
		reply:       "found some",
	}}}
	a := New(client, nil,
		WithSystemPrompt("be terse"),
		WithHook("search", func(record ToolResultRecord, store *ResultStore) {
			hooked = append(hooked, record.Tool)
		}),
	)

	a.ProcessMessage(context.Background(), "search for cats")
	assert.Equal(t, []string{"search"}, hooked)
	assert.Equal(t, "be terse", client.lastChat.systemPrompt)
}

package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agent "github.com/fastnlabs/fastn-agent"
	"github.com/fastnlabs/fastn-agent/chat"
	"github.com/fastnlabs/fastn-agent/persistence"
)

// cannedClient replies with a fixed string to every message.
type cannedClient struct {
	reply string
}

func (c *cannedClient) NewChat(systemPrompt string, initialMsgs ...chat.Message) chat.Chat {
	return &cannedChat{reply: c.reply, messages: append([]chat.Message(nil), initialMsgs...)}
}

type cannedChat struct {
	reply    string
	messages []chat.Message
}

func (c *cannedChat) Message(ctx context.Context, msg chat.Message, opts ...chat.Option) (chat.Message, error) {
	respMsg := chat.AssistantMessage(c.reply)
	c.messages = append(c.messages, msg, respMsg)
	return respMsg, nil
}

func (c *cannedChat) History() (string, []chat.Message) {
	return "", append([]chat.Message(nil), c.messages...)
}

func (c *cannedChat) TokenUsage() (chat.TokenUsage, error) { return chat.TokenUsage{}, nil }
func (c *cannedChat) RegisterTool(tool chat.Tool) error    { return nil }
func (c *cannedChat) DeregisterTool(name string)           {}
func (c *cannedChat) ListTools() []string                  { return nil }

func TestChatLoopTurnAndExit(t *testing.T) {
	t.Parallel()

	a := agent.New(&cannedClient{reply: "hello back"}, nil)
	store := persistence.NewMemoryStore()

	in := bufio.NewReader(strings.NewReader("hello\nexit\n"))
	var out bytes.Buffer

	err := chatLoop(context.Background(), in, &out, a, store, "s1")
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Agent: hello back")
	assert.Contains(t, out.String(), "Saving chat history and exiting...")

	transcript, err := store.Load("s1")
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, "hello", transcript[0].GetText())
	assert.Equal(t, "hello back", transcript[1].GetText())
}

func TestChatLoopReset(t *testing.T) {
	t.Parallel()

	a := agent.New(&cannedClient{reply: "ok"}, nil)
	store := persistence.NewMemoryStore()

	in := bufio.NewReader(strings.NewReader("hello\nreset\nexit\n"))
	var out bytes.Buffer

	err := chatLoop(context.Background(), in, &out, a, store, "s1")
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Resetting conversation history...")

	transcript, err := store.Load("s1")
	require.NoError(t, err)
	assert.Empty(t, transcript)
}

func TestChatLoopEOFSavesAndReturns(t *testing.T) {
	t.Parallel()

	a := agent.New(&cannedClient{reply: "ok"}, nil)
	store := persistence.NewMemoryStore()

	in := bufio.NewReader(strings.NewReader("hello\n"))
	var out bytes.Buffer

	err := chatLoop(context.Background(), in, &out, a, store, "s1")
	require.NoError(t, err)

	transcript, err := store.Load("s1")
	require.NoError(t, err)
	assert.Len(t, transcript, 2)
}

func TestChatLoopSkipsBlankLines(t *testing.T) {
	t.Parallel()

	a := agent.New(&cannedClient{reply: "ok"}, nil)
	store := persistence.NewMemoryStore()

	in := bufio.NewReader(strings.NewReader("\n\nexit\n"))
	var out bytes.Buffer

	err := chatLoop(context.Background(), in, &out, a, store, "s1")
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "Agent:")
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 50))
	assert.Equal(t, strings.Repeat("x", 50)+"...", truncate(strings.Repeat("x", 80), 50))
	assert.Equal(t, "", truncate("", 50))
}

func TestPrintToolResults(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printToolResults(&out, map[string]agent.ToolResultRecord{
		"call_1": {Tool: "createDoc", Output: `{"documentId":"doc-1"}`},
	})
	assert.Contains(t, out.String(), "Tool Results:")
	assert.Contains(t, out.String(), "call_1: createDoc")

	out.Reset()
	printToolResults(&out, nil)
	assert.Empty(t, out.String())
}

func TestApiKeyEnvVar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4o", "OPENAI_API_KEY"},
		{"claude-sonnet-4-5", "ANTHROPIC_API_KEY"},
		{"gemini-2.5-flash", "GEMINI_API_KEY"},
		{"llama3.2", "OPENAI_API_KEY"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, apiKeyEnvVar(tt.model), tt.model)
	}
}

func TestPromptLine(t *testing.T) {
	t.Parallel()

	in := bufio.NewReader(strings.NewReader("  my-key  \n"))
	var out bytes.Buffer
	got := promptLine(in, &out, "Enter your API key: ")
	assert.Equal(t, "my-key", got)
	assert.Equal(t, "Enter your API key: ", out.String())
}

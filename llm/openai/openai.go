// Package openai implements the chat.Client interface on top of the OpenAI
// chat completions API. It also serves any OpenAI-compatible endpoint, which
// is how Ollama-hosted models are reached.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/fastnlabs/fastn-agent/chat"
	"github.com/fastnlabs/fastn-agent/internal/logging"
	"github.com/fastnlabs/fastn-agent/llm/internal/common"
)

// logger is the package-level structured logger with provider context.
var logger = logging.Logger().With("provider", "openai")

const (
	OpenAIURL = "https://api.openai.com/v1"
	OllamaURL = "http://localhost:11434/v1"
)

type client struct {
	openaiClient openai.Client
	modelName    string
	baseURL      string
	headers      map[string]string
}

var _ chat.Client = &client{}

type Option func(*client)

func WithModel(modelName string) Option {
	return func(c *client) {
		c.modelName = strings.TrimSpace(modelName)
	}
}

func WithHeaders(headers map[string]string) Option {
	return func(c *client) {
		c.headers = headers
	}
}

// NewClient returns a chat client for an LLM service that speaks the OpenAI
// chat completion API.
func NewClient(apiBase string, apiKey string, opts ...Option) (chat.Client, error) {
	c := &client{
		baseURL: apiBase,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.modelName == "" {
		return nil, fmt.Errorf("WithModel is a required option")
	}

	clientOpts := []option.RequestOption{
		option.WithBaseURL(apiBase),
	}

	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}

	for key, value := range c.headers {
		clientOpts = append(clientOpts, option.WithHeader(key, value))
	}

	c.openaiClient = openai.NewClient(clientOpts...)

	return c, nil
}

// BaseURL is exported for integration testing only.
func (c *client) BaseURL() string {
	return c.baseURL
}

// NewChat returns a chat instance.
func (c client) NewChat(systemPrompt string, initialMsgs ...chat.Message) chat.Chat {
	return &chatClient{
		client: c,
		state:  common.NewState(systemPrompt, initialMsgs),
		tools:  common.NewTools(),
	}
}

type chatClient struct {
	client
	state *common.State
	tools *common.Tools
}

// Message sends a message and runs the tool loop to completion, returning the
// final assistant message.
func (c *chatClient) Message(ctx context.Context, msg chat.Message, opts ...chat.Option) (chat.Message, error) {
	reqOpts := chat.ApplyOptions(opts...)
	callback := reqOpts.StreamingCb

	systemPrompt, history := c.state.History()

	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}

	historyMsgs, err := messagesToOpenAI(history)
	if err != nil {
		return chat.Message{}, fmt.Errorf("converting history messages: %w", err)
	}
	messages = append(messages, historyMsgs...)

	currentMsgs, err := messageToOpenAI(msg)
	if err != nil {
		return chat.Message{}, fmt.Errorf("converting current message: %w", err)
	}
	messages = append(messages, currentMsgs...)

	c.state.AppendMessages([]chat.Message{msg}, nil)

	toolParams, err := c.toolParams()
	if err != nil {
		return chat.Message{}, err
	}

	for round := 0; round < common.MaxToolRounds; round++ {
		params := openai.ChatCompletionNewParams{
			Messages: messages,
			Model:    c.modelName,
		}
		if len(toolParams) > 0 {
			params.Tools = toolParams
		}
		if reqOpts.Temperature != nil {
			params.Temperature = openai.Float(*reqOpts.Temperature)
		}
		if reqOpts.MaxTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(reqOpts.MaxTokens))
		}

		logger.Debug("sending request", "model", c.modelName, "round", round, "messages", len(messages))

		completion, err := c.openaiClient.Chat.Completions.New(ctx, params)
		if err != nil {
			return chat.Message{}, fmt.Errorf("chat completion request: %w", err)
		}
		if len(completion.Choices) == 0 {
			return chat.Message{}, fmt.Errorf("chat completion returned no choices")
		}

		choice := completion.Choices[0]
		usage := chat.TokenUsageDetails{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:  int(completion.Usage.TotalTokens),
		}

		if len(choice.Message.ToolCalls) == 0 {
			respMsg := chat.AssistantMessage(choice.Message.Content)
			c.state.AppendMessages([]chat.Message{respMsg}, &usage)
			if err := common.EmitContent(callback, choice.Message.Content, string(choice.FinishReason)); err != nil {
				return chat.Message{}, err
			}
			return respMsg, nil
		}

		calls := make([]chat.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			calls[i] = openaiToolCallToChat(tc)
		}
		logger.Debug("processing tool calls", "count", len(calls), "round", round)

		assistantMsg := common.AssistantToolCallMessage(choice.Message.Content, calls)

		results, err := common.ExecuteToolCalls(ctx, c.tools, calls, callback)
		if err != nil {
			return chat.Message{}, err
		}
		toolMsg := common.ToolResultMessage(results)

		c.state.AppendMessages([]chat.Message{assistantMsg, toolMsg}, &usage)

		assistantParams, err := messageToOpenAI(assistantMsg)
		if err != nil {
			return chat.Message{}, fmt.Errorf("converting assistant message with tool calls: %w", err)
		}
		messages = append(messages, assistantParams...)

		toolResultParams, err := messageToOpenAI(toolMsg)
		if err != nil {
			return chat.Message{}, fmt.Errorf("converting tool result messages: %w", err)
		}
		messages = append(messages, toolResultParams...)
	}

	return chat.Message{}, fmt.Errorf("tool loop did not settle after %d rounds", common.MaxToolRounds)
}

func (c *chatClient) toolParams() ([]openai.ChatCompletionToolParam, error) {
	allTools := c.tools.All()
	if len(allTools) == 0 {
		return nil, nil
	}

	params := make([]openai.ChatCompletionToolParam, 0, len(allTools))
	for _, tool := range allTools {
		toolParam, err := mcpToOpenAITool(tool)
		if err != nil {
			return nil, fmt.Errorf("failed to convert tool: %w", err)
		}
		params = append(params, toolParam)
	}
	return params, nil
}

func (c *chatClient) History() (systemPrompt string, msgs []chat.Message) {
	return c.state.History()
}

// TokenUsage returns token usage for both the last message and cumulative session
func (c *chatClient) TokenUsage() (chat.TokenUsage, error) {
	return c.state.TokenUsage()
}

// RegisterTool registers a tool that can be called by the LLM
func (c *chatClient) RegisterTool(tool chat.Tool) error {
	return c.tools.Register(tool)
}

// DeregisterTool removes a tool by name
func (c *chatClient) DeregisterTool(name string) {
	c.tools.Deregister(name)
}

// ListTools returns the names of all registered tools
func (c *chatClient) ListTools() []string {
	return c.tools.List()
}

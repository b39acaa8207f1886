// Package claude implements the chat.Client interface on top of Claude's
// Messages API.
package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fastnlabs/fastn-agent/chat"
	"github.com/fastnlabs/fastn-agent/internal/logging"
	"github.com/fastnlabs/fastn-agent/llm/internal/common"
)

var logger = logging.Logger().With("provider", "claude")

const (
	AnthropicURL = "https://api.anthropic.com/v1"
)

type client struct {
	anthropicClient anthropic.Client
	modelName       string
	baseURL         string
	headers         map[string]string
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

// NewClient returns a chat client that can begin chat sessions with Claude's Messages API.
func NewClient(apiBase string, apiKey string, opts ...Option) (chat.Client, error) {
	c := &client{
		baseURL: apiBase,
	}

	if c.baseURL == "" {
		c.baseURL = AnthropicURL
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.modelName == "" {
		return nil, fmt.Errorf("WithModel is a required option")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for Claude API")
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if apiBase != "" && apiBase != AnthropicURL {
		clientOpts = append(clientOpts, option.WithBaseURL(apiBase))
	}

	for key, value := range c.headers {
		clientOpts = append(clientOpts, option.WithHeader(key, value))
	}

	c.anthropicClient = anthropic.NewClient(clientOpts...)

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

var modelMaxOutputTokens = map[string]int64{
	"claude-opus-4-1":   32000,
	"claude-opus-4":     32000,
	"claude-sonnet-4-5": 64000,
	"claude-sonnet-4":   64000,
	"claude-3-7-sonnet": 64000,
	"claude-3-5-haiku":  8192,
	"claude-3-haiku":    4096,
}

func getMaxOutputTokens(modelName string) int64 {
	for prefix, limit := range modelMaxOutputTokens {
		if strings.HasPrefix(modelName, prefix) {
			return limit
		}
	}
	logger.Warn("unknown model, using conservative default output token limit", "model", modelName)
	return 4096
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

	msgs, err := messageParams(history)
	if err != nil {
		return chat.Message{}, fmt.Errorf("converting history messages: %w", err)
	}

	currentParam, err := messageParam(msg)
	if err != nil {
		return chat.Message{}, fmt.Errorf("converting current message: %w", err)
	}
	msgs = append(msgs, currentParam)

	c.state.AppendMessages([]chat.Message{msg}, nil)

	toolParams, err := c.toolParams()
	if err != nil {
		return chat.Message{}, err
	}

	maxTokens := getMaxOutputTokens(c.modelName)
	if reqOpts.MaxTokens > 0 {
		maxTokens = int64(reqOpts.MaxTokens)
	}

	for round := 0; round < common.MaxToolRounds; round++ {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(c.modelName),
			MaxTokens: maxTokens,
			Messages:  msgs,
		}
		if systemPrompt != "" {
			params.System = []anthropic.TextBlockParam{
				{Text: systemPrompt},
			}
		}
		if len(toolParams) > 0 {
			params.Tools = toolParams
		}
		if reqOpts.Temperature != nil {
			params.Temperature = anthropic.Float(*reqOpts.Temperature)
		}

		logger.Debug("sending request", "model", c.modelName, "round", round, "messages", len(msgs))

		resp, err := c.anthropicClient.Messages.New(ctx, params)
		if err != nil {
			return chat.Message{}, fmt.Errorf("messages request: %w", err)
		}

		usage := chat.TokenUsageDetails{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		}

		var text strings.Builder
		var calls []chat.ToolCall
		for _, block := range resp.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				text.WriteString(variant.Text)
			case anthropic.ToolUseBlock:
				calls = append(calls, toolUseToChat(variant))
			}
		}

		if len(calls) == 0 {
			respMsg := chat.AssistantMessage(text.String())
			c.state.AppendMessages([]chat.Message{respMsg}, &usage)
			if err := common.EmitContent(callback, text.String(), string(resp.StopReason)); err != nil {
				return chat.Message{}, err
			}
			return respMsg, nil
		}

		logger.Debug("processing tool calls", "count", len(calls), "round", round)

		assistantMsg := common.AssistantToolCallMessage(text.String(), calls)

		results, err := common.ExecuteToolCalls(ctx, c.tools, calls, callback)
		if err != nil {
			return chat.Message{}, err
		}
		toolMsg := common.ToolResultMessage(results)

		c.state.AppendMessages([]chat.Message{assistantMsg, toolMsg}, &usage)

		assistantParam, err := messageParam(assistantMsg)
		if err != nil {
			return chat.Message{}, fmt.Errorf("converting assistant message with tool calls: %w", err)
		}
		toolParam, err := messageParam(toolMsg)
		if err != nil {
			return chat.Message{}, fmt.Errorf("converting tool result message: %w", err)
		}
		msgs = append(msgs, assistantParam, toolParam)
	}

	return chat.Message{}, fmt.Errorf("tool loop did not settle after %d rounds", common.MaxToolRounds)
}

func (c *chatClient) toolParams() ([]anthropic.ToolUnionParam, error) {
	allTools := c.tools.All()
	if len(allTools) == 0 {
		return nil, nil
	}

	params := make([]anthropic.ToolUnionParam, 0, len(allTools))
	for _, tool := range allTools {
		toolParam, err := mcpToClaudeTool(tool)
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

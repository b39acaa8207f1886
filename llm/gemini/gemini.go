// Package gemini implements the chat.Client interface on top of Google's
// Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/fastnlabs/fastn-agent/chat"
	"github.com/fastnlabs/fastn-agent/internal/logging"
	"github.com/fastnlabs/fastn-agent/llm/internal/common"
)

var logger = logging.Logger().With("provider", "gemini")

type client struct {
	genaiClient *genai.Client
	modelName   string
	baseURL     string
}

var _ chat.Client = &client{}

type Option func(*client)

func WithModel(modelName string) Option {
	return func(c *client) {
		c.modelName = strings.TrimSpace(modelName)
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.baseURL = baseURL
	}
}

// BaseURL is exported for integration testing only.
func (c *client) BaseURL() string {
	return c.baseURL
}

// NewClient returns a chat client that can begin chat sessions with Google's Gemini API.
func NewClient(apiKey string, opts ...Option) (chat.Client, error) {
	c := &client{}

	for _, opt := range opts {
		opt(c)
	}

	if c.modelName == "" {
		return nil, fmt.Errorf("WithModel is a required option")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for Gemini API")
	}

	ctx := context.Background()
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c.genaiClient = genaiClient

	return c, nil
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

	contents, err := messagesToGemini(history)
	if err != nil {
		return chat.Message{}, fmt.Errorf("converting history messages: %w", err)
	}

	current, err := messageToGemini(msg)
	if err != nil {
		return chat.Message{}, fmt.Errorf("converting current message: %w", err)
	}
	contents = append(contents, current)

	c.state.AppendMessages([]chat.Message{msg}, nil)

	config := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	if c.baseURL != "" {
		config.HTTPOptions = &genai.HTTPOptions{
			BaseURL: c.baseURL,
		}
	}
	if reqOpts.Temperature != nil {
		temp := float32(*reqOpts.Temperature)
		config.Temperature = &temp
	}
	if reqOpts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(reqOpts.MaxTokens)
	}

	allTools := c.tools.All()
	if len(allTools) > 0 {
		functionDeclarations := make([]*genai.FunctionDeclaration, 0, len(allTools))
		for _, tool := range allTools {
			funcDecl, err := mcpToGeminiFunctionDeclaration(tool)
			if err != nil {
				return chat.Message{}, fmt.Errorf("failed to convert tool: %w", err)
			}
			functionDeclarations = append(functionDeclarations, funcDecl)
		}
		// Gemini takes a single Tool holding all function declarations.
		config.Tools = []*genai.Tool{
			{FunctionDeclarations: functionDeclarations},
		}
	}

	for round := 0; round < common.MaxToolRounds; round++ {
		logger.Debug("sending request", "model", c.modelName, "round", round, "contents", len(contents))

		resp, err := c.genaiClient.Models.GenerateContent(ctx, c.modelName, contents, config)
		if err != nil {
			return chat.Message{}, fmt.Errorf("generate content request: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return chat.Message{}, fmt.Errorf("generate content returned no candidates")
		}

		var usage chat.TokenUsageDetails
		if resp.UsageMetadata != nil {
			usage = chat.TokenUsageDetails{
				InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
				OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
			}
		}

		candidate := resp.Candidates[0]
		var text strings.Builder
		var calls []chat.ToolCall
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				calls = append(calls, functionCallToChat(part.FunctionCall))
			}
		}

		if len(calls) == 0 {
			respMsg := chat.AssistantMessage(text.String())
			c.state.AppendMessages([]chat.Message{respMsg}, &usage)
			if err := common.EmitContent(callback, text.String(), string(candidate.FinishReason)); err != nil {
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

		assistantContent, err := messageToGemini(assistantMsg)
		if err != nil {
			return chat.Message{}, fmt.Errorf("converting assistant message with tool calls: %w", err)
		}
		toolContent, err := messageToGemini(toolMsg)
		if err != nil {
			return chat.Message{}, fmt.Errorf("converting tool result message: %w", err)
		}
		contents = append(contents, assistantContent, toolContent)
	}

	return chat.Message{}, fmt.Errorf("tool loop did not settle after %d rounds", common.MaxToolRounds)
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

// Package llm selects and constructs a chat client for a model based on its
// name, so callers don't need to know which provider hosts it.
package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/fastnlabs/fastn-agent/chat"
	"github.com/fastnlabs/fastn-agent/internal/logging"
	"github.com/fastnlabs/fastn-agent/llm/claude"
	"github.com/fastnlabs/fastn-agent/llm/gemini"
	"github.com/fastnlabs/fastn-agent/llm/openai"
)

var logger = logging.Logger().With("component", "llm")

// Config holds the LLM client configuration
type Config struct {
	Model   string
	APIKey  string
	BaseURL string // Optional base URL override for the API endpoint
}

// ModelProvider represents the different LLM providers
type ModelProvider int

const (
	ProviderOpenAI ModelProvider = iota
	ProviderClaude
	ProviderGemini
	ProviderOllama
	ProviderUnknown
)

// NewClient creates a chat client based on the configuration
func NewClient(config *Config) (chat.Client, error) {
	provider := detectProvider(config.Model)
	apiKey := config.APIKey

	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("openAI API key required (set -api-key or OPENAI_API_KEY)")
		}

		baseURL := config.BaseURL
		if baseURL == "" {
			baseURL = openai.OpenAIURL
		}
		logger.Info("using OpenAI client", "model", config.Model)
		return openai.NewClient(baseURL, apiKey, openai.WithModel(config.Model))

	case ProviderClaude:
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic API key required (set -api-key or ANTHROPIC_API_KEY)")
		}

		baseURL := config.BaseURL
		if baseURL == "" {
			baseURL = claude.AnthropicURL
		}
		logger.Info("using Claude client", "model", config.Model)
		return claude.NewClient(baseURL, apiKey, claude.WithModel(config.Model))

	case ProviderGemini:
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
			if apiKey == "" {
				apiKey = os.Getenv("GOOGLE_API_KEY")
			}
		}
		if apiKey == "" {
			return nil, fmt.Errorf("gemini API key required (set -api-key, GEMINI_API_KEY, or GOOGLE_API_KEY)")
		}

		opts := []gemini.Option{
			gemini.WithModel(config.Model),
		}
		if config.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(config.BaseURL))
		}
		logger.Info("using Gemini client", "model", config.Model)
		return gemini.NewClient(apiKey, opts...)

	case ProviderOllama:
		// Ollama doesn't require an API key
		baseURL := config.BaseURL
		if baseURL == "" {
			baseURL = openai.OllamaURL
		}
		logger.Info("using OpenAI-compatible client via ollama", "model", config.Model)
		return openai.NewClient(baseURL, "", openai.WithModel(config.Model))

	default:
		return nil, fmt.Errorf("unknown model provider for model: %s", config.Model)
	}
}

// detectProvider detects the provider from the model name
func detectProvider(model string) ModelProvider {
	modelLower := strings.ToLower(model)

	// OpenAI models
	if strings.HasPrefix(modelLower, "gpt-") ||
		strings.HasPrefix(modelLower, "o1-") ||
		strings.HasPrefix(modelLower, "o3") { // o3 doesn't have a dash
		return ProviderOpenAI
	}

	// Claude models
	if strings.HasPrefix(modelLower, "claude-") {
		return ProviderClaude
	}

	// Gemini models
	if strings.HasPrefix(modelLower, "gemini-") {
		return ProviderGemini
	}

	// Ollama models (common ones)
	if strings.HasPrefix(modelLower, "llama") ||
		strings.HasPrefix(modelLower, "mistral") ||
		strings.HasPrefix(modelLower, "mixtral") ||
		strings.HasPrefix(modelLower, "qwen") ||
		strings.HasPrefix(modelLower, "phi") ||
		strings.HasPrefix(modelLower, "deepseek") ||
		strings.HasPrefix(modelLower, "codellama") {
		return ProviderOllama
	}

	return ProviderUnknown
}

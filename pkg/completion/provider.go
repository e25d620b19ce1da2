package completion

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider names accepted by NewProvider.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultOllamaBaseURL is the OpenAI-compatible endpoint of a local Ollama runtime.
const DefaultOllamaBaseURL = "http://localhost:11434/v1/"

// Role of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. The system contract travels separately.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage creates a user turn
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant turn
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Request contains the parameters of one completion call
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	// Temperature is sent whenever it is non-nil, including 0
	Temperature  *float64
	MaxTokens    int
}

// Provider is a completion backend
type Provider interface {
	// Call returns the text of the first completion choice
	Call(ctx context.Context, request Request) (string, error)

	// Provider returns the provider name
	Provider() string
}

// Config selects and tunes a provider
type Config struct {
	Provider    string        `json:"provider" yaml:"provider" mapstructure:"provider"`
	Model       string        `json:"model" yaml:"model" mapstructure:"model"`
	BaseURL     string        `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	APIKey      string        `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	Temperature float64       `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	default:
		return "llama3.1"
	}
}

// NewProvider creates a provider from config
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaBaseURL
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			// Ollama ignores the key but the client always sends one
			apiKey = ProviderOllama
		}
		return NewOpenAIProvider(ProviderOllama, apiKey, baseURL), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("api key is required for provider %s", cfg.Provider)
		}
		return NewOpenAIProvider(ProviderOpenAI, cfg.APIKey, cfg.BaseURL), nil
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("api key is required for provider %s", cfg.Provider)
		}
		return NewAnthropicProvider(cfg.APIKey, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

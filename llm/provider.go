// Package llm provides the model invocation client consumed by the task
// executor. Providers return a text completion; everything above this package
// treats the call as invoke(prompt) -> text.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Message represents one conversation message.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// ChatRequest represents a chat request to the model.
type ChatRequest struct {
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// ChatResponse represents a model response.
type ChatResponse struct {
	Content      string `json:"content"`
	StopReason   string `json:"stop_reason"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model"`
}

// Provider is the interface for LLM providers.
type Provider interface {
	// Chat sends a chat request and returns the response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// RetryConfig holds retry settings for provider calls.
type RetryConfig struct {
	MaxRetries  int           `json:"max_retries"`  // Max retry attempts (default 3)
	MaxBackoff  time.Duration `json:"max_backoff"`  // Max backoff duration (default 30s)
	InitBackoff time.Duration `json:"init_backoff"` // Initial backoff (default 1s)
}

// ProviderConfig selects and configures a provider implementation.
type ProviderConfig struct {
	Provider  string      `json:"provider"` // google, anthropic, openai
	Model     string      `json:"model"`
	APIKey    string      `json:"api_key"`
	MaxTokens int         `json:"max_tokens"`
	BaseURL   string      `json:"base_url,omitempty"` // Custom API endpoint
	Retry     RetryConfig `json:"retry"`
}

// Validate validates the configuration.
func (c *ProviderConfig) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if c.MaxTokens == 0 {
		return fmt.Errorf("max_tokens is required")
	}
	return nil
}

// NewProvider creates a provider based on the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "google":
		return NewGoogleProvider(GoogleConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Retry:     cfg.Retry,
		})

	case "anthropic":
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Retry:     cfg.Retry,
		})

	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Retry:     cfg.Retry,
		})

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// --- Mock Provider for Testing ---

// MockProvider is a mock LLM provider for testing.
type MockProvider struct {
	response    string
	stopReason  string
	lastRequest *ChatRequest
	err         error
	callCount   int

	// ChatFunc can be overridden for custom behavior.
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Responses queues per-call responses; once exhausted the fixed
	// response is returned.
	Responses []string
}

// NewMockProvider creates a new mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{stopReason: "end_turn"}
}

// SetResponse sets the response content.
func (p *MockProvider) SetResponse(content string) {
	p.response = content
}

// SetError sets an error to return.
func (p *MockProvider) SetError(err error) {
	p.err = err
}

// LastRequest returns the last request.
func (p *MockProvider) LastRequest() *ChatRequest {
	return p.lastRequest
}

// CallCount returns the number of Chat calls made.
func (p *MockProvider) CallCount() int {
	return p.callCount
}

// Chat implements the Provider interface.
func (p *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p.callCount++
	p.lastRequest = &req

	if p.ChatFunc != nil {
		return p.ChatFunc(ctx, req)
	}
	if p.err != nil {
		return nil, p.err
	}

	content := p.response
	if len(p.Responses) > 0 {
		content = p.Responses[0]
		p.Responses = p.Responses[1:]
	}

	return &ChatResponse{
		Content:    content,
		StopReason: p.stopReason,
		Model:      "mock",
	}, nil
}

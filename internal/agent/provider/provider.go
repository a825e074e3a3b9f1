// Package provider abstracts the chat-completion backends used by the LLM
// agents.
package provider

import (
	"context"
	"errors"
	"time"
)

// Message represents a conversation message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role represents the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response represents the model's response.
type Response struct {
	// Content is the text content of the response
	Content string

	// StopReason indicates why the model stopped generating
	StopReason StopReason

	// Usage contains token usage information
	Usage Usage
}

// StopReason indicates why the model stopped generating.
type StopReason string

const (
	StopReasonEndTurn   StopReason = "end_turn"
	StopReasonMaxTokens StopReason = "max_tokens"
	StopReasonError     StopReason = "error"
)

// Usage contains token usage information.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Provider defines the interface for LLM providers.
type Provider interface {
	// Chat sends messages to the model and returns the complete response.
	Chat(ctx context.Context, systemPrompt string, messages []Message) (*Response, error)

	// Name returns the provider name for logging and display.
	Name() string

	// Model returns the model identifier being used.
	Model() string
}

var (
	// ErrUnsupportedProvider is returned by New for unknown provider names.
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrEmptyResponse is returned when a backend answers without any choice.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrScenarioExhausted is returned by the mock once every step was used.
	ErrScenarioExhausted = errors.New("mock scenario exhausted")
)

// Config contains common configuration for providers.
type Config struct {
	// Model is the model identifier (e.g., "llama-3.1-70b-versatile")
	Model string

	// APIKey authenticates against the backend
	APIKey string

	// BaseURL overrides the backend endpoint
	BaseURL string

	// MaxTokens is the maximum number of tokens to generate
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative)
	Temperature float64

	// Timeout for a single request
	Timeout time.Duration
}

// DefaultConfig returns the defaults the troubleshooter was tuned with.
func DefaultConfig() Config {
	return Config{
		Model:       "llama-3.1-70b-versatile",
		MaxTokens:   4096,
		Temperature: 0.0, // deterministic diagnosis
		Timeout:     120 * time.Second,
	}
}

func (c Config) withDefaults(model string) Config {
	d := DefaultConfig()
	if c.Model == "" {
		c.Model = model
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// ContextWindowSizes maps model identifiers to their context window sizes in tokens.
var ContextWindowSizes = map[string]int{
	"llama-3.1-70b-versatile":    131072,
	"llama-3.3-70b-versatile":    131072,
	"llama-3.1-8b-instant":       131072,
	"gpt-4o":                     128000,
	"gpt-4o-mini":                128000,
	"claude-sonnet-4-5-20250929": 200000,
	"claude-3-5-haiku-20241022":  200000,
	"gemini-2.5-pro":             1048576,
	"gemini-2.5-flash":           1048576,
	"default":                    128000,
}

// GetContextWindowSize returns the context window size for a given model.
func GetContextWindowSize(model string) int {
	if size, ok := ContextWindowSizes[model]; ok {
		return size
	}
	return ContextWindowSizes["default"]
}

// EstimateTokens is a rough four-characters-per-token estimate used to warn
// before an oversized prompt is sent.
func EstimateTokens(systemPrompt string, messages []Message) int {
	n := len(systemPrompt)
	for _, m := range messages {
		n += len(m.Content)
	}
	return n / 4
}

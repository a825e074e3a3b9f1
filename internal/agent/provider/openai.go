package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// Base URLs of the OpenAI-compatible backends.
const (
	GroqBaseURL   = "https://api.groq.com/openai/v1"
	OllamaBaseURL = "http://localhost:11434/v1"
)

// Default models of the OpenAI-compatible backends. Groq uses DefaultConfig.
const (
	DefaultOpenAIModel = "gpt-4o"
	DefaultOllamaModel = "llama3.1"
)

// OpenAIProvider implements Provider for OpenAI and OpenAI-compatible
// endpoints (Groq, Ollama).
type OpenAIProvider struct {
	client *openai.Client
	config Config
	name   string
}

// NewOpenAIProvider creates a provider named name talking to cfg.BaseURL, or
// to the default endpoint for that name.
func NewOpenAIProvider(name string, cfg Config) (*OpenAIProvider, error) {
	model := DefaultConfig().Model
	switch name {
	case "openai":
		model = DefaultOpenAIModel
	case "ollama":
		model = DefaultOllamaModel
	}
	cfg = cfg.withDefaults(model)

	apiKey := cfg.APIKey
	baseURL := cfg.BaseURL
	switch name {
	case "groq":
		if baseURL == "" {
			baseURL = GroqBaseURL
		}
	case "ollama":
		if baseURL == "" {
			baseURL = OllamaBaseURL
		}
		if apiKey == "" {
			apiKey = "ollama"
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key is required", name)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
		name:   name,
	}, nil
}

// Chat implements Provider.Chat.
func (p *OpenAIProvider) Chat(ctx context.Context, systemPrompt string, messages []Message) (*Response, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(systemPrompt, messages))
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%s API error (status %d): %s: %w", p.name, apiErr.HTTPStatusCode, apiErr.Message, err)
		}
		return nil, fmt.Errorf("%s API call failed: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	response := &Response{
		Content: choice.Message.Content,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		StopReason: StopReasonEndTurn,
	}
	if choice.FinishReason == openai.FinishReasonLength {
		response.StopReason = StopReasonMaxTokens
	}
	return response, nil
}

func (p *OpenAIProvider) buildRequest(systemPrompt string, messages []Message) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	return openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Messages:    msgs,
		MaxTokens:   p.config.MaxTokens,
		Temperature: temperature(p.config.Temperature),
	}
}

// temperature sends 0 as the smallest positive float32 since the request
// field is omitempty.
func temperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// Name implements Provider.Name.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Model implements Provider.Model.
func (p *OpenAIProvider) Model() string {
	return p.config.Model
}

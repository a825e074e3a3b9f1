package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// AzureFoundryProvider implements Provider using Azure AI Foundry with Anthropic models.
// Azure AI Foundry uses the same authentication as the standard Anthropic API:
// - Uses "x-api-key" header for authentication
// - Base URL format: https://{resource}.services.ai.azure.com/anthropic/
type AzureFoundryProvider struct {
	client   *http.Client
	config   Config
	endpoint string
}

// NewAzureFoundryProvider creates a new Azure AI Foundry provider. cfg.BaseURL
// is the resource endpoint.
func NewAzureFoundryProvider(cfg Config) (*AzureFoundryProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("endpoint is required for Azure AI Foundry")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required for Azure AI Foundry")
	}
	cfg = cfg.withDefaults(DefaultAnthropicModel)

	// Normalize endpoint - ensure it ends with /anthropic
	endpoint := strings.TrimSuffix(cfg.BaseURL, "/")
	if !strings.HasSuffix(endpoint, "/anthropic") {
		endpoint += "/anthropic"
	}

	return &AzureFoundryProvider{
		client:   &http.Client{Timeout: cfg.Timeout},
		config:   cfg,
		endpoint: endpoint,
	}, nil
}

// Chat implements Provider.Chat for Azure AI Foundry.
func (p *AzureFoundryProvider) Chat(ctx context.Context, systemPrompt string, messages []Message) (*Response, error) {
	jsonBody, err := json.Marshal(p.buildRequest(systemPrompt, messages))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, p.parseErrorResponse(resp.StatusCode, body)
	}
	return p.parseResponse(body)
}

// Name implements Provider.Name.
func (p *AzureFoundryProvider) Name() string {
	return "azure-foundry"
}

// Model implements Provider.Model.
func (p *AzureFoundryProvider) Model() string {
	return p.config.Model
}

type azureRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	Messages    []azureMessage   `json:"messages"`
	System      []azureTextBlock `json:"system,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
}

type azureMessage struct {
	Role    string           `json:"role"`
	Content []azureTextBlock `json:"content"`
}

type azureTextBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type azureResponse struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Role       string           `json:"role"`
	Content    []azureTextBlock `json:"content"`
	Model      string           `json:"model"`
	StopReason string           `json:"stop_reason"`
	Usage      azureUsage       `json:"usage"`
}

type azureUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type azureErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *AzureFoundryProvider) buildRequest(systemPrompt string, messages []Message) azureRequest {
	temp := p.config.Temperature
	req := azureRequest{
		Model:       p.config.Model,
		MaxTokens:   p.config.MaxTokens,
		Temperature: &temp,
	}
	if systemPrompt != "" {
		req.System = []azureTextBlock{{Type: "text", Text: systemPrompt}}
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, azureMessage{
			Role:    string(msg.Role),
			Content: []azureTextBlock{{Type: "text", Text: msg.Content}},
		})
	}
	return req
}

func (p *AzureFoundryProvider) parseResponse(body []byte) (*Response, error) {
	var azureResp azureResponse
	if err := json.Unmarshal(body, &azureResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	response := &Response{
		Usage: Usage{
			InputTokens:  azureResp.Usage.InputTokens,
			OutputTokens: azureResp.Usage.OutputTokens,
		},
		StopReason: StopReasonEndTurn,
	}

	var textParts []string
	for _, block := range azureResp.Content {
		if block.Type == "text" {
			textParts = append(textParts, block.Text)
		}
	}
	response.Content = strings.Join(textParts, "")

	if azureResp.StopReason == "max_tokens" {
		response.StopReason = StopReasonMaxTokens
	}
	return response, nil
}

func (p *AzureFoundryProvider) parseErrorResponse(statusCode int, body []byte) error {
	var errResp azureErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("azure-foundry API error (status %d): %s", statusCode, string(body))
	}

	return fmt.Errorf("azure-foundry API error (status %d, type: %s): %s",
		statusCode, errResp.Error.Type, errResp.Error.Message)
}

package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	scenario := writeScenario(t, scenarioYAML)

	tests := []struct {
		name     string
		opts     Options
		wantName string
		wantErr  error
	}{
		{name: "groq", opts: Options{Name: "groq", Config: Config{APIKey: "k"}}, wantName: "groq"},
		{name: "openai", opts: Options{Name: "openai", Config: Config{APIKey: "k", Model: "gpt-4o"}}, wantName: "openai"},
		{name: "ollama", opts: Options{Name: "ollama"}, wantName: "ollama"},
		{name: "anthropic", opts: Options{Name: "anthropic", Config: Config{APIKey: "k"}}, wantName: "anthropic"},
		{name: "azure", opts: Options{Name: "azure-foundry", Config: Config{APIKey: "k", BaseURL: "https://r.services.ai.azure.com"}}, wantName: "azure-foundry"},
		{name: "gemini", opts: Options{Name: "gemini", Config: Config{APIKey: "k"}}, wantName: "gemini"},
		{name: "mock", opts: Options{Name: "mock", MockScenario: scenario}, wantName: "mock"},
		{name: "unknown", opts: Options{Name: "bard"}, wantErr: ErrUnsupportedProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(ctx, tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}

	_, err := New(ctx, Options{Name: "mock"})
	assert.Error(t, err)
}

type countingProvider struct {
	calls int
}

func (c *countingProvider) Chat(context.Context, string, []Message) (*Response, error) {
	c.calls++
	return &Response{Content: "ok"}, nil
}
func (c *countingProvider) Name() string  { return "counting" }
func (c *countingProvider) Model() string { return "m" }

func TestWithRateLimit(t *testing.T) {
	inner := &countingProvider{}
	assert.Same(t, Provider(inner), WithRateLimit(inner, 0))

	limited := WithRateLimit(inner, 60) // one per second, burst one
	assert.Equal(t, "counting", limited.Name())

	_, err := limited.Chat(context.Background(), "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Chat(ctx, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
	assert.Equal(t, 1, inner.calls)
}

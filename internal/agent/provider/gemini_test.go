package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiProviderChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent"), r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		contents, _ := body["contents"].([]interface{})
		require.Len(t, contents, 2)
		assert.Equal(t, "model", contents[1].(map[string]interface{})["role"])
		assert.Contains(t, body, "systemInstruction")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "Check "}, {"text": "the logs"}]},
				"finishReason": "MAX_TOKENS"
			}],
			"usageMetadata": {"promptTokenCount": 9, "candidatesTokenCount": 4, "totalTokenCount": 13}
		}`))
	}))
	defer server.Close()

	p, err := NewGeminiProvider(context.Background(), Config{APIKey: "g-key", BaseURL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())
	assert.Equal(t, DefaultGeminiModel, p.Model())

	resp, err := p.Chat(context.Background(), "You are the Planner.", []Message{
		{Role: RoleUser, Content: "User: issue"},
		{Role: RoleAssistant, Content: "plan"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Check the logs", resp.Content)
	assert.Equal(t, StopReasonMaxTokens, resp.StopReason)
	assert.Equal(t, Usage{InputTokens: 9, OutputTokens: 4}, resp.Usage)
}

func TestNewGeminiProviderRequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), Config{})
	require.Error(t, err)
	assert.Equal(t, "gemini API key is required", err.Error())
}

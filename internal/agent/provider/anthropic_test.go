package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicProviderChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-3-5-haiku-20241022", body["model"])
		assert.Equal(t, float64(0), body["temperature"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant",
			"model": "claude-3-5-haiku-20241022",
			"content": [{"type": "text", "text": "Diagnosis complete. TERMINATE"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 11, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	p, err := NewAnthropicProvider(Config{APIKey: "sk-ant", BaseURL: server.URL, Model: "claude-3-5-haiku-20241022"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	resp, err := p.Chat(context.Background(), "system", []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "Diagnosis complete. TERMINATE", resp.Content)
	assert.Equal(t, StopReasonEndTurn, resp.StopReason)
	assert.Equal(t, Usage{InputTokens: 11, OutputTokens: 5}, resp.Usage)
}

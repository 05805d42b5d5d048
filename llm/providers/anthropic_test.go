package providers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aegisinsight/aegis/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicProvider_BuildURL(t *testing.T) {
	p := &AnthropicProvider{}

	assert.Equal(t, "https://api.anthropic.com/v1/messages", p.BuildURL(""))
	assert.Equal(t, "http://localhost:9999/v1/messages", p.BuildURL("http://localhost:9999/"))
}

func TestAnthropicProvider_BuildRequestBody_LiftsSystemMessage(t *testing.T) {
	p := &AnthropicProvider{}

	body, err := p.BuildRequestBody("claude-test", []llm.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, nil, 0, false)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "be brief", req["system"])
	assert.Len(t, req["messages"], 1)
	assert.Equal(t, float64(4096), req["max_tokens"], "max_tokens is mandatory and defaulted")
}

func TestAnthropicProvider_SetHeaders(t *testing.T) {
	p := &AnthropicProvider{}

	req, _ := http.NewRequest(http.MethodPost, "http://x", nil)
	p.SetHeaders(req, "key-123")
	assert.Equal(t, "key-123", req.Header.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, req.Header.Get("anthropic-version"))
}

func TestAnthropicProvider_ParseResponse(t *testing.T) {
	p := &AnthropicProvider{}

	resp, err := p.ParseResponse([]byte(`{
		"model": "claude-test",
		"content": [{"type": "text", "text": "hello "}, {"type": "text", "text": "there"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 4, "output_tokens": 3}
	}`), "claude-test")
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	assert.Equal(t, "end_turn", resp.FinishReason)
}

func TestAnthropicProvider_DecodeStreamEvent(t *testing.T) {
	p := &AnthropicProvider{}

	event, err := p.DecodeStreamEvent([]byte(`{"type":"content_block_delta","delta":{"type":"text_delta","text":"hi"}}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", event.Content)

	event, err = p.DecodeStreamEvent([]byte(`{"type":"message_stop"}`))
	require.NoError(t, err)
	assert.True(t, event.Done)

	event, err = p.DecodeStreamEvent([]byte(`{"type":"ping"}`))
	require.NoError(t, err)
	assert.Empty(t, event.Content)
	assert.False(t, event.Done)
}

package providers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aegisinsight/aegis/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_BuildURL(t *testing.T) {
	p := &OpenAIProvider{}

	assert.Equal(t, "https://api.openai.com/v1/chat/completions", p.BuildURL(""))
	assert.Equal(t, "https://openrouter.ai/api/v1/chat/completions", p.BuildURL("https://openrouter.ai/api/v1"))
	assert.Equal(t, "http://x/v1/chat/completions", p.BuildURL("http://x/v1/chat/completions"))
}

func TestOpenAIProvider_BuildRequestBody(t *testing.T) {
	p := &OpenAIProvider{}
	temp := 0.3

	body, err := p.BuildRequestBody("gpt-test", []llm.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, &temp, 0, true)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "gpt-test", req["model"])
	assert.Equal(t, 0.3, req["temperature"])
	assert.Equal(t, true, req["stream"])
	assert.Len(t, req["messages"], 2)
	_, hasMax := req["max_tokens"]
	assert.False(t, hasMax, "max_tokens should be omitted when zero")
}

func TestOpenAIProvider_SetHeaders(t *testing.T) {
	p := &OpenAIProvider{}

	req, _ := http.NewRequest(http.MethodPost, "http://x", nil)
	p.SetHeaders(req, "sk-test")
	assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))

	req, _ = http.NewRequest(http.MethodPost, "http://x", nil)
	p.SetHeaders(req, "")
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestOpenAIProvider_ParseResponse(t *testing.T) {
	p := &OpenAIProvider{}

	resp, err := p.ParseResponse([]byte(`{
		"model": "gpt-test",
		"choices": [{"message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
	}`), "gpt-test")
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	assert.Equal(t, "stop", resp.FinishReason)

	_, err = p.ParseResponse([]byte(`{"choices": []}`), "gpt-test")
	assert.Error(t, err)
}

func TestOpenAIProvider_DecodeStreamEvent(t *testing.T) {
	p := &OpenAIProvider{}

	event, err := p.DecodeStreamEvent([]byte(`{"choices":[{"delta":{"content":"hi"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", event.Content)
	assert.False(t, event.Done)

	event, err = p.DecodeStreamEvent([]byte(`{"choices":[{"delta":{},"finish_reason":"stop"}]}`))
	require.NoError(t, err)
	assert.True(t, event.Done)

	_, err = p.DecodeStreamEvent([]byte(`nope`))
	assert.Error(t, err)
}

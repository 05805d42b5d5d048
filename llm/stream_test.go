package llm_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aegisinsight/aegis/llm"
	_ "github.com/aegisinsight/aegis/llm/providers" // Register providers
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Stream_RelaysDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		for _, chunk := range []string{"Hello", " ", "world"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", chunk)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	client := llm.NewClient([]llm.Endpoint{
		{Provider: "openai", Model: "test-model", URL: server.URL},
	})

	deltas, err := client.Stream(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "Hi"}},
	})
	require.NoError(t, err)

	var got string
	for d := range deltas {
		require.NoError(t, d.Err)
		got += d.Content
	}
	assert.Equal(t, "Hello world", got)
}

func TestClient_Stream_SkipsUndecodableEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := llm.NewClient([]llm.Endpoint{
		{Provider: "openai", Model: "test-model", URL: server.URL},
	})

	deltas, err := client.Stream(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "Hi"}},
	})
	require.NoError(t, err)

	var got string
	for d := range deltas {
		require.NoError(t, d.Err)
		got += d.Content
	}
	assert.Equal(t, "ok", got)
}

func TestClient_Stream_RateLimitSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer server.Close()

	client := llm.NewClient(
		[]llm.Endpoint{{Provider: "openai", Model: "test-model", URL: server.URL}},
	)

	_, err := client.Stream(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "Hi"}},
	})
	require.Error(t, err)
	assert.True(t, llm.IsRateLimited(err))
}

func TestClient_Stream_OutlivesClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
		flusher.Flush()
		time.Sleep(120 * time.Millisecond)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" second\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	client := llm.NewClient(
		[]llm.Endpoint{{Provider: "openai", Model: "test-model", URL: server.URL}},
		llm.WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
	)

	deltas, err := client.Stream(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "Hi"}},
	})
	require.NoError(t, err)

	var got string
	for d := range deltas {
		require.NoError(t, d.Err)
		got += d.Content
	}
	assert.Equal(t, "first second", got)
}

func TestClient_Stream_FinalChunkContentDelivered(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"almost\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" done\"},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := llm.NewClient([]llm.Endpoint{
		{Provider: "openai", Model: "test-model", URL: server.URL},
	})

	deltas, err := client.Stream(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "Hi"}},
	})
	require.NoError(t, err)

	var got string
	for d := range deltas {
		require.NoError(t, d.Err)
		got += d.Content
	}
	assert.Equal(t, "almost done", got)
}

func TestClient_Stream_CancelStopsRelay(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
		flusher.Flush()
		<-blocked // hold the connection open
	}))
	defer server.Close()
	defer close(blocked)

	ctx, cancel := context.WithCancel(context.Background())
	client := llm.NewClient([]llm.Endpoint{
		{Provider: "openai", Model: "test-model", URL: server.URL},
	})

	deltas, err := client.Stream(ctx, llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "Hi"}},
	})
	require.NoError(t, err)

	first := <-deltas
	assert.Equal(t, "first", first.Content)

	cancel()

	// Channel must close once the relay notices cancellation.
	for range deltas {
	}
}

package search_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisinsight/aegis/search"
)

func TestClient_Search_Success(t *testing.T) {
	var gotKey string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"organic": [
				{"title": "Acme security review", "link": "https://example.com/review", "snippet": "An independent audit."},
				{"title": "Acme CVE roundup", "link": "https://example.com/cve", "snippet": "Two issues patched."}
			]
		}`))
	}))
	defer server.Close()

	client := search.NewClient("test-key", search.WithEndpoint(server.URL))
	got := client.Search(context.Background(), "Acme AI security vulnerabilities 2025")

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "Acme AI security vulnerabilities 2025", gotBody["q"])
	assert.Equal(t, float64(8), gotBody["num"])

	assert.Equal(t, "Acme AI security vulnerabilities 2025", got.Query)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "Acme security review", got.Results[0].Title)
	assert.Equal(t, "https://example.com/cve", got.Results[1].Link)
}

func TestClient_Search_ServerErrorDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer server.Close()

	client := search.NewClient("test-key", search.WithEndpoint(server.URL))
	got := client.Search(context.Background(), "Acme AI data privacy concerns CVE")

	assert.Equal(t, "Acme AI data privacy concerns CVE", got.Query)
	assert.NotNil(t, got.Results)
	assert.Empty(t, got.Results)
}

func TestClient_Search_UnreachableDegrades(t *testing.T) {
	client := search.NewClient("test-key", search.WithEndpoint("http://127.0.0.1:1"))
	got := client.Search(context.Background(), "Acme vs competitors comparison features pricing")

	assert.NotNil(t, got.Results)
	assert.Empty(t, got.Results)
}

func TestClient_Search_MalformedPayloadDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	client := search.NewClient("test-key", search.WithEndpoint(server.URL))
	got := client.Search(context.Background(), "Acme AI bias fairness audit")

	assert.NotNil(t, got.Results)
	assert.Empty(t, got.Results)
}

func TestClient_Search_NoAPIKeyDegrades(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := search.NewClient("", search.WithEndpoint(server.URL))
	got := client.Search(context.Background(), "Acme AI security vulnerabilities 2025")

	assert.False(t, called)
	assert.Empty(t, got.Results)
}

func TestClient_Search_MissingOrganicDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"searchParameters": {"q": "whatever"}}`))
	}))
	defer server.Close()

	client := search.NewClient("test-key", search.WithEndpoint(server.URL))
	got := client.Search(context.Background(), "Acme AI bias fairness audit")

	assert.NotNil(t, got.Results)
	assert.Empty(t, got.Results)
}

func TestFormatCitation(t *testing.T) {
	line := search.FormatCitation(search.Result{
		Title:   "Acme audit",
		Link:    "https://example.com/audit",
		Snippet: "Findings summary.",
	})
	assert.Equal(t, "- [Acme audit](https://example.com/audit): Findings summary.", line)
}

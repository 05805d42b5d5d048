package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "raw object",
			content: `{"a": 1}`,
			want:    `{"a": 1}`,
		},
		{
			name:    "fenced with language tag",
			content: "```json\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
		},
		{
			name:    "fenced without language tag",
			content: "```\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
		},
		{
			name:    "prose around the object",
			content: "Here is the analysis you requested:\n\n{\"a\": 1}\n\nLet me know if you need more.",
			want:    `{"a": 1}`,
		},
		{
			name:    "trailing comma removed",
			content: `{"a": 1,}`,
			want:    `{"a": 1}`,
		},
		{
			name:    "line comment stripped outside strings",
			content: "{\n\"a\": 1 // count\n}",
			want:    "{\n\"a\": 1\n}",
		},
		{
			name:    "url inside string survives",
			content: `{"url": "https://example.com/x"}`,
			want:    `{"url": "https://example.com/x"}`,
		},
		{
			name:    "no object present",
			content: "sorry, I cannot do that",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.content))
		})
	}
}

func TestExtractJSON_ResultParses(t *testing.T) {
	content := "```json\n{\n  \"trustScore\": 62, // out of 100\n  \"items\": [1, 2, 3,],\n}\n```"

	extracted := ExtractJSON(content)
	require.NotEmpty(t, extracted)

	var parsed struct {
		TrustScore int   `json:"trustScore"`
		Items      []int `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(extracted), &parsed))
	assert.Equal(t, 62, parsed.TrustScore)
	assert.Equal(t, []int{1, 2, 3}, parsed.Items)
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "raw array",
			content: `[{"step_number": 1}]`,
			want:    `[{"step_number": 1}]`,
		},
		{
			name:    "fenced array",
			content: "```json\n[1, 2]\n```",
			want:    `[1, 2]`,
		},
		{
			name:    "no array present",
			content: "nothing here",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSONArray(tt.content))
		})
	}
}

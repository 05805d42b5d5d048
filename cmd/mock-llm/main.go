// Package main implements a mock LLM server for offline aegis
// development and e2e testing. It serves OpenAI-compatible
// /v1/chat/completions responses from JSON fixture files, routed by
// the "model" field, so scans, maturity assessments, and the
// streaming assistant can run without a real provider.
//
// Usage:
//
//	mock-llm -fixtures ./fixtures -port 8089
//
// A fixture file named "mock-analyst.json" answers model
// "mock-analyst". Numbered files ("mock-analyst.1.json",
// "mock-analyst.2.json") answer sequential calls in order, with the
// base file repeating once they run out. Requests with "stream": true
// get the same content as SSE chunks.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type streamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
}

type streamChoice struct {
	Index int         `json:"index"`
	Delta chatMessage `json:"delta"`
}

// streamChunkSize is how many bytes of fixture content go into each
// SSE delta.
const streamChunkSize = 64

type server struct {
	fixtures map[string][]string

	mu    sync.Mutex
	calls map[string]int
}

func newServer(fixtures map[string][]string) *server {
	return &server{fixtures: fixtures, calls: make(map[string]int)}
}

func main() {
	fixtureDir := flag.String("fixtures", "./fixtures", "directory containing fixture response files")
	port := flag.Int("port", 8089, "port to listen on")
	flag.Parse()

	if envDir := os.Getenv("MOCK_LLM_FIXTURES"); envDir != "" {
		*fixtureDir = envDir
	}

	fixtures, err := loadFixtures(*fixtureDir)
	if err != nil {
		slog.Error("Failed to load fixtures", "dir", *fixtureDir, "error", err)
		os.Exit(1)
	}
	for model, seq := range fixtures {
		slog.Info("Loaded fixture", "model", model, "responses", len(seq))
	}

	s := newServer(fixtures)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("GET /stats", s.handleStats)

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Mock LLM server listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	seq, ok := s.fixtures[req.Model]
	if !ok {
		http.Error(w, fmt.Sprintf("no fixture for model %q", req.Model), http.StatusNotFound)
		return
	}

	s.mu.Lock()
	idx := s.calls[req.Model]
	s.calls[req.Model]++
	s.mu.Unlock()

	content := seq[len(seq)-1]
	if idx < len(seq) {
		content = seq[idx]
	}
	slog.Info("Serving fixture", "model", req.Model, "call", idx+1, "stream", req.Stream)

	if req.Stream {
		s.writeStream(w, req.Model, content)
		return
	}

	resp := chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{
			{
				Message:      chatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// writeStream emits the fixture content as OpenAI-style SSE chunks
// terminated by [DONE].
func (s *server) writeStream(w http.ResponseWriter, model, content string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	id := fmt.Sprintf("mock-%d", time.Now().UnixNano())
	for off := 0; off < len(content); off += streamChunkSize {
		end := off + streamChunkSize
		if end > len(content) {
			end = len(content)
		}
		chunk := streamChunk{
			ID:     id,
			Object: "chat.completion.chunk",
			Model:  model,
			Choices: []streamChoice{
				{Delta: chatMessage{Content: content[off:end]}},
			},
		}
		data, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	calls := make(map[string]int, len(s.calls))
	total := 0
	for model, n := range s.calls {
		calls[model] = n
		total += n
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_calls":    total,
		"calls_by_model": calls,
	})
}

// numberedFileRe matches sequential fixtures like "mock-analyst.2.json".
var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.json$`)

// loadFixtures reads JSON files from dir into model → ordered response
// sequences. Numbered files come first in numeric order; the base
// model.json file is appended as the repeating fallback.
func loadFixtures(dir string) (map[string][]string, error) {
	base := make(map[string]string)
	numbered := make(map[string]map[int]string)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("invalid JSON in %s", name)
		}

		if m := numberedFileRe.FindStringSubmatch(name); m != nil {
			idx, _ := strconv.Atoi(m[2])
			if numbered[m[1]] == nil {
				numbered[m[1]] = make(map[int]string)
			}
			numbered[m[1]][idx] = string(data)
			continue
		}
		base[strings.TrimSuffix(name, ".json")] = string(data)
	}

	fixtures := make(map[string][]string)
	for model, content := range base {
		fixtures[model] = append(fixtures[model], content)
	}
	for model, byIndex := range numbered {
		indices := make([]int, 0, len(byIndex))
		for idx := range byIndex {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		seq := make([]string, 0, len(indices)+1)
		for _, idx := range indices {
			seq = append(seq, byIndex[idx])
		}
		// Base file repeats after the numbered sequence runs out.
		seq = append(seq, fixtures[model]...)
		fixtures[model] = seq
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return fixtures, nil
}

// Package testutil provides test doubles for the llm package.
package testutil

import (
	"context"
	"sync"

	"github.com/aegisinsight/aegis/llm"
)

// MockCompleter is a thread-safe mock completion client for testing.
// It captures the requests passed to Complete() and returns configured
// responses in sequence.
//
// Usage:
//
//	mock := &testutil.MockCompleter{
//	    Responses: []*llm.Response{
//	        {Content: `{"result": "success"}`, Model: "test-model"},
//	    },
//	}
type MockCompleter struct {
	mu            sync.Mutex
	requests      []llm.Request
	Responses     []*llm.Response // Responses to return in sequence
	Err           error           // Error to return (takes precedence over Responses)
	responseIndex int
}

// Complete implements llm.Completer.
func (m *MockCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.Err != nil {
		return nil, m.Err
	}

	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp, nil
	}

	return &llm.Response{Content: "", Model: "test-model"}, nil
}

// Requests returns a copy of all captured requests.
func (m *MockCompleter) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns the number of times Complete() was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Reset clears captured state so the mock can be reused across test cases.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.responseIndex = 0
}

// MockStreamer is a mock streaming client that replays configured deltas.
type MockStreamer struct {
	mu       sync.Mutex
	requests []llm.Request
	Deltas   []llm.Delta // Deltas to emit before closing
	Err      error       // Error returned from Stream itself
}

// Stream implements llm.Streamer.
func (m *MockStreamer) Stream(_ context.Context, req llm.Request) (<-chan llm.Delta, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	deltas := make([]llm.Delta, len(m.Deltas))
	copy(deltas, m.Deltas)
	err := m.Err
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}

	out := make(chan llm.Delta, 1)
	go func() {
		defer close(out)
		for _, d := range deltas {
			out <- d
		}
	}()
	return out, nil
}

// Requests returns a copy of all captured requests.
func (m *MockStreamer) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

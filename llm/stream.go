package llm

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Delta is one increment of a streaming completion. A non-nil Err terminates
// the stream; the channel is closed after the final delta either way.
type Delta struct {
	Content string
	Err     error
}

// streamScanBuffer sizes the line scanner for event-stream payloads.
// Individual deltas are small but providers occasionally batch large events.
const streamScanBuffer = 1024 * 1024

// Stream opens a streaming completion and relays content deltas as they
// arrive. The returned channel holds at most one delta and is closed when the
// upstream signals completion or errors. Cancelling ctx stops the relay and
// releases the upstream connection.
//
// Connection establishment walks the endpoint chain like Complete does;
// once a stream is open there is no mid-stream fallback.
func (c *Client) Stream(ctx context.Context, req Request) (<-chan Delta, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}
	if len(c.endpoints) == 0 {
		return nil, fmt.Errorf("no completion endpoints configured")
	}

	var lastErr error
	for _, ep := range c.endpoints {
		ch, err := c.openStream(ctx, ep, req)
		if err == nil {
			return ch, nil
		}
		lastErr = err
		if IsFatal(err) {
			return nil, err
		}
		c.logger.Warn("Stream endpoint failed, trying fallback",
			"provider", ep.Provider,
			"model", ep.Model,
			"error", err)
	}

	return nil, fmt.Errorf("all completion endpoints failed: %w", lastErr)
}

// openStream issues the streaming request against one endpoint and, on
// success, starts the relay goroutine.
func (c *Client) openStream(ctx context.Context, ep Endpoint, req Request) (<-chan Delta, error) {
	provider := GetProvider(ep.Provider)
	if provider == nil {
		return nil, NewFatalError(fmt.Errorf("unknown provider: %s", ep.Provider))
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = ep.MaxTokens
	}

	body, err := provider.BuildRequestBody(ep.Model, req.Messages, req.Temperature, maxTokens, true)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.BuildURL(ep.URL), bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	provider.SetHeaders(httpReq, ep.APIKey)

	httpResp, err := c.streamHTTPClient().Do(httpReq)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
		httpResp.Body.Close()
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	out := make(chan Delta, 1)
	go c.relay(ctx, provider, httpResp.Body, out)
	return out, nil
}

// streamHTTPClient returns the configured client stripped of its total
// request timeout. http.Client.Timeout spans the entire body read,
// which would cut a long-lived event stream mid-relay; connection
// setup still honors the transport's dial timeout and cancellation
// comes from the request context.
func (c *Client) streamHTTPClient() *http.Client {
	sc := *c.httpClient
	sc.Timeout = 0
	return &sc
}

// relay reads event-stream lines from upstream and forwards decoded content
// deltas without buffering more than one at a time.
func (c *Client) relay(ctx context.Context, provider Provider, upstream io.ReadCloser, out chan<- Delta) {
	defer close(out)
	defer upstream.Close()

	scanner := bufio.NewScanner(upstream)
	scanner.Buffer(make([]byte, 0, 64*1024), streamScanBuffer)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			return
		}

		event, err := provider.DecodeStreamEvent([]byte(payload))
		if err != nil {
			c.logger.Warn("Undecodable stream event skipped", "error", err)
			continue
		}
		// A final chunk may carry both content and a finish signal;
		// the content goes out first.
		if event.Content != "" {
			select {
			case out <- Delta{Content: event.Content}:
			case <-ctx.Done():
				return
			}
		}
		if event.Done {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		select {
		case out <- Delta{Err: NewTransientError(fmt.Errorf("read stream: %w", err))}:
		case <-ctx.Done():
		}
	}
}

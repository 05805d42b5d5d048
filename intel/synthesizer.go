package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aegisinsight/aegis/llm"
)

// synthesisTemperature favors determinism over creativity.
const synthesisTemperature = 0.3

// SynthesisError reports that the model output could not be coerced
// into a valid Assessment, or that the completion endpoint failed.
type SynthesisError struct {
	Reason string
	err    error
}

func (e *SynthesisError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("synthesis failed: %s: %v", e.Reason, e.err)
	}
	return fmt.Sprintf("synthesis failed: %s", e.Reason)
}

func (e *SynthesisError) Unwrap() error {
	return e.err
}

// NewSynthesisError builds a SynthesisError wrapping an upstream
// cause; err may be nil.
func NewSynthesisError(reason string, err error) *SynthesisError {
	return &SynthesisError{Reason: reason, err: err}
}

// Synthesizer turns an evidence corpus into a structured Assessment
// via a completion endpoint.
type Synthesizer struct {
	completer llm.Completer
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer. A nil logger defaults to
// slog.Default.
func NewSynthesizer(completer llm.Completer, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{completer: completer, logger: logger}
}

// Synthesize sends the flattened corpus plus scoring rubric to the
// completion endpoint and parses the response into an Assessment.
// There is no repair or retry loop here: a parse or validation failure
// means the caller must re-trigger the whole pipeline.
func (s *Synthesizer) Synthesize(ctx context.Context, subjectName string, corpus Corpus) (*Assessment, error) {
	temperature := synthesisTemperature
	resp, err := s.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: synthesisSystemPrompt()},
			{Role: "user", Content: synthesisUserPrompt(subjectName, FormatEvidence(corpus))},
		},
		Temperature: &temperature,
	})
	if err != nil {
		return nil, &SynthesisError{Reason: "completion request failed", err: err}
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		s.logger.Error("model returned no parseable analysis",
			"subject", subjectName,
			"content_prefix", prefix(resp.Content, 200))
		return nil, &SynthesisError{Reason: "model returned no JSON object"}
	}

	var assessment Assessment
	if err := json.Unmarshal([]byte(raw), &assessment); err != nil {
		return nil, &SynthesisError{Reason: "model output does not match assessment schema", err: err}
	}
	if err := assessment.Validate(); err != nil {
		return nil, &SynthesisError{Reason: "incomplete assessment", err: err}
	}

	s.logger.Info("synthesis complete",
		"subject", subjectName,
		"trust_score", assessment.TrustScore,
		"model", resp.Model)

	return &assessment, nil
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

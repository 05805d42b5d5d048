package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aegisinsight/aegis/intel"
	"github.com/aegisinsight/aegis/llm"
)

const planSystemPrompt = `You are an AI compliance advisor. Given an AI service's vulnerability assessment, generate a detailed, step-by-step compliance remediation plan.

Each step should be specific, actionable, and ordered by priority (most critical first). Include:
- A clear title
- A detailed description of what needs to be done
- The step should reference specific standards (SOC 2, ISO 27001, GDPR, NIST AI RMF, EU AI Act) where applicable

Return ONLY valid JSON array of steps:
[
  {
    "step_number": 1,
    "title": "Step title",
    "description": "Detailed description of what to do"
  }
]

Generate 8-15 steps depending on severity.`

const planTemperature = 0.3

// PlanStep is one ordered remediation action.
type PlanStep struct {
	StepNumber  int    `json:"step_number"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Plan is a generated remediation plan for one assessed service.
type Plan struct {
	Title string     `json:"title"`
	Steps []PlanStep `json:"steps"`
}

// Planner generates remediation plans from vulnerability assessments.
type Planner struct {
	completer llm.Completer
	logger    *slog.Logger
}

// NewPlanner creates a Planner. A nil logger defaults to slog.Default.
func NewPlanner(completer llm.Completer, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{completer: completer, logger: logger}
}

// GeneratePlan asks the model for an ordered remediation plan based on
// a service's vulnerability findings.
func (p *Planner) GeneratePlan(ctx context.Context, serviceName string, vulns intel.Vulnerabilities) (*Plan, error) {
	if strings.TrimSpace(serviceName) == "" {
		return nil, &intel.ValidationError{Field: "service name", Reason: "must not be empty"}
	}

	var summary strings.Builder
	for _, key := range intel.Categories {
		finding, _ := vulns.ByCategory(key)
		fmt.Fprintf(&summary, "- %s: Score %d/10 — %s\n", key, finding.Score, finding.Details)
	}

	temperature := planTemperature
	resp, err := p.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: planSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Generate a compliance plan for %q.\n\nVulnerability Assessment:\n%s", serviceName, summary.String())},
		},
		Temperature: &temperature,
	})
	if err != nil {
		return nil, intel.NewSynthesisError("plan completion failed", err)
	}

	raw := llm.ExtractJSONArray(resp.Content)
	if raw == "" {
		p.logger.Error("model returned no plan steps", "service", serviceName)
		return nil, intel.NewSynthesisError("model returned no JSON array", nil)
	}

	var steps []PlanStep
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		return nil, intel.NewSynthesisError("plan steps do not match schema", err)
	}
	if len(steps) == 0 {
		return nil, intel.NewSynthesisError("plan has no steps", nil)
	}

	return &Plan{
		Title: fmt.Sprintf("Compliance Plan: %s", serviceName),
		Steps: steps,
	}, nil
}

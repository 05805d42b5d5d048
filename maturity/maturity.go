// Package maturity derives an organization's governance maturity
// score from its tool and control records. The score is deterministic;
// the model contributes only the qualitative narrative.
package maturity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/aegisinsight/aegis/intel"
	"github.com/aegisinsight/aegis/llm"
	"github.com/aegisinsight/aegis/store"
)

const narrativeSystemPrompt = `You are an AI governance maturity advisor. Given org metrics, return JSON: { score, grade (A-F), strengths (array of strings), gaps (array of strings), recommendations (array of {title, description, priority: high|medium|low}) }`

// narrativeTemperature matches the synthesis discipline: structured
// JSON output wants determinism over creativity.
const narrativeTemperature = 0.3

// Recommendation is one prioritized improvement suggested by the
// narrative.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// Narrative is the qualitative half of a maturity assessment.
type Narrative struct {
	Score           int              `json:"score"`
	Grade           string           `json:"grade"`
	Strengths       []string         `json:"strengths"`
	Gaps            []string         `json:"gaps"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Result is a complete maturity assessment. Narrative is nil when
// narrative generation failed; the score is still authoritative.
type Result struct {
	Score     int        `json:"score"`
	Counts    Counts     `json:"counts"`
	Narrative *Narrative `json:"narrative,omitempty"`
}

// Counts are the raw inputs the score is derived from.
type Counts struct {
	TotalTools        int `json:"total_tools"`
	ApprovedTools     int `json:"approved_tools"`
	TotalControls     int `json:"total_controls"`
	CompliantControls int `json:"compliant_controls"`
}

// Score computes the deterministic maturity score from counts. A zero
// denominator contributes zero to its term.
func Score(c Counts) int {
	var toolRatio, controlRatio float64
	if c.TotalTools > 0 {
		toolRatio = float64(c.ApprovedTools) / float64(c.TotalTools)
	}
	if c.TotalControls > 0 {
		controlRatio = float64(c.CompliantControls) / float64(c.TotalControls)
	}
	return int(math.Round(toolRatio*40 + controlRatio*60))
}

// Assessor derives maturity assessments for organizations.
type Assessor struct {
	store     store.Store
	completer llm.Completer
	logger    *slog.Logger
}

// NewAssessor creates an Assessor. A nil logger defaults to
// slog.Default.
func NewAssessor(st store.Store, completer llm.Completer, logger *slog.Logger) *Assessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assessor{store: st, completer: completer, logger: logger}
}

// Assess computes the organization's maturity score and asks the model
// for a narrative. The model is never the source of truth for the
// number: whatever score it echoes back is overwritten. A narrative
// failure is logged and the deterministic score is returned alone.
func (a *Assessor) Assess(ctx context.Context, orgID string) (*Result, error) {
	if orgID == "" {
		return nil, &intel.ValidationError{Field: "organization id", Reason: "must not be empty"}
	}

	counts, err := a.gatherCounts(ctx, orgID)
	if err != nil {
		return nil, err
	}
	score := Score(counts)

	result := &Result{Score: score, Counts: counts}

	narrative, err := a.generateNarrative(ctx, counts, score)
	if err != nil {
		a.logger.Warn("maturity narrative generation failed, returning score only",
			"org_id", orgID,
			"error", err)
		return result, nil
	}
	narrative.Score = score
	result.Narrative = narrative

	return result, nil
}

func (a *Assessor) gatherCounts(ctx context.Context, orgID string) (Counts, error) {
	tools, err := a.store.ListTools(ctx, orgID)
	if err != nil {
		return Counts{}, fmt.Errorf("list tools: %w", err)
	}
	controls, err := a.store.ListControls(ctx, orgID)
	if err != nil {
		return Counts{}, fmt.Errorf("list controls: %w", err)
	}

	counts := Counts{TotalTools: len(tools), TotalControls: len(controls)}
	for _, t := range tools {
		if t.Status == store.ToolStatusApproved {
			counts.ApprovedTools++
		}
	}
	for _, c := range controls {
		if c.Status == store.ControlStatusCompliant {
			counts.CompliantControls++
		}
	}
	return counts, nil
}

func (a *Assessor) generateNarrative(ctx context.Context, counts Counts, score int) (*Narrative, error) {
	userPrompt := fmt.Sprintf(
		"Org has %d tools (%d approved), %d controls (%d attested). Maturity score: %d/100. Provide assessment.",
		counts.TotalTools, counts.ApprovedTools,
		counts.TotalControls, counts.CompliantControls,
		score)

	temperature := narrativeTemperature
	resp, err := a.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: narrativeSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: &temperature,
	})
	if err != nil {
		return nil, err
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		return nil, intel.NewSynthesisError("model returned no JSON object", nil)
	}

	var narrative Narrative
	if err := json.Unmarshal([]byte(raw), &narrative); err != nil {
		return nil, intel.NewSynthesisError("narrative does not match schema", err)
	}
	return &narrative, nil
}

// Package advisor implements the streaming advisory channel: a
// free-form assistant that answers questions with the organization's
// current governance data interpolated into its system prompt.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aegisinsight/aegis/intel"
	"github.com/aegisinsight/aegis/llm"
	"github.com/aegisinsight/aegis/store"
)

const platformPrompt = `You are an AI Security & Compliance Assistant for a GRC (Governance, Risk, Compliance) platform. You help users understand:
1. Their organization's security posture, tools, compliance status, and reports
2. AI security concepts (prompt injection, data privacy, model bias, etc.)
3. Compliance frameworks (NIST AI RMF, EU AI Act, SOC 2, ISO 27001)
4. How to use the platform features (requesting tools, compliance attestation, maturity assessment)

Be concise, helpful, and reference the org's actual data when relevant. Use markdown for formatting.
%s

Platform features:
- Dashboard: Overview of org security posture
- Requests: Users submit new AI tool requests which trigger automated security scans
- Tools: Inventory of approved/pending/rejected AI tools
- Vendors: Third-party vendor security research
- Compliance: Framework-based control attestation (toggle status, add notes)
- Maturity: AI governance maturity score calculated from tools + controls
- Reports: Detailed security analysis with trust scores, vulnerabilities, competitor analysis
- Admin: User management, invite members, activity log`

// recentReportLimit bounds how many report summaries the context
// snapshot carries.
const recentReportLimit = 10

// AdviseRequest is one advisory conversation turn.
type AdviseRequest struct {
	// Messages is the conversation history, oldest first.
	Messages []llm.Message

	// OrgID, when set, injects a snapshot of the organization's data
	// into the system prompt.
	OrgID string

	// OrgName labels the snapshot; falls back to OrgID when empty.
	OrgName string
}

// Advisor streams free-form answers with org context injected. No JSON
// contract is imposed on the output.
type Advisor struct {
	store    store.Store
	streamer llm.Streamer
	logger   *slog.Logger
}

// NewAdvisor creates an Advisor. A nil logger defaults to
// slog.Default.
func NewAdvisor(st store.Store, streamer llm.Streamer, logger *slog.Logger) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{store: st, streamer: streamer, logger: logger}
}

// Advise submits the conversation to the completion endpoint with
// streaming enabled and returns the delta channel. The channel closes
// when the upstream completes or errors; cancelling ctx stops the
// relay.
func (a *Advisor) Advise(ctx context.Context, req AdviseRequest) (<-chan llm.Delta, error) {
	if len(req.Messages) == 0 {
		return nil, &intel.ValidationError{Field: "messages", Reason: "must not be empty"}
	}

	orgContext := ""
	if req.OrgID != "" {
		snapshot, err := a.buildOrgContext(ctx, req.OrgID, req.OrgName)
		if err != nil {
			// A degraded snapshot is better than a dead assistant.
			a.logger.Warn("org context snapshot failed", "org_id", req.OrgID, "error", err)
		} else {
			orgContext = snapshot
		}
	}

	messages := make([]llm.Message, 0, len(req.Messages)+1)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: fmt.Sprintf(platformPrompt, orgContext),
	})
	messages = append(messages, req.Messages...)

	return a.streamer.Stream(ctx, llm.Request{Messages: messages})
}

// buildOrgContext assembles the organization data block interpolated
// into the system prompt.
func (a *Advisor) buildOrgContext(ctx context.Context, orgID, orgName string) (string, error) {
	tools, err := a.store.ListTools(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("list tools: %w", err)
	}
	requests, err := a.store.ListRequests(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("list requests: %w", err)
	}
	controls, err := a.store.ListControls(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("list controls: %w", err)
	}
	vendors, err := a.store.ListVendors(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("list vendors: %w", err)
	}
	reports, err := a.store.ListReports(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("list reports: %w", err)
	}
	if len(reports) > recentReportLimit {
		reports = reports[:recentReportLimit]
	}

	approvedTools := 0
	toolLines := make([]string, 0, len(tools))
	for _, t := range tools {
		if t.Status == store.ToolStatusApproved {
			approvedTools++
		}
		risk := string(t.RiskTier)
		if risk == "" {
			risk = "unassessed"
		}
		toolLines = append(toolLines, fmt.Sprintf("%s [%s, risk: %s]", t.Name, t.Status, risk))
	}

	pendingRequests := 0
	for _, r := range requests {
		if r.Status == store.RequestStatusPending {
			pendingRequests++
		}
	}

	compliantControls := 0
	frameworkSet := make(map[string]struct{})
	var frameworks []string
	for _, c := range controls {
		if c.Status == store.ControlStatusCompliant {
			compliantControls++
		}
		if _, seen := frameworkSet[c.Framework]; !seen {
			frameworkSet[c.Framework] = struct{}{}
			frameworks = append(frameworks, c.Framework)
		}
	}

	vendorNames := make([]string, 0, len(vendors))
	for _, v := range vendors {
		vendorNames = append(vendorNames, v.Name)
	}

	reportLines := make([]string, 0, len(reports))
	for _, r := range reports {
		score := "pending"
		if r.TrustScore != nil {
			score = fmt.Sprintf("%d", *r.TrustScore)
		}
		reportLines = append(reportLines, fmt.Sprintf("%s (score: %s)", r.ToolName, score))
	}

	label := orgName
	if label == "" {
		label = orgID
	}

	return fmt.Sprintf(`
CURRENT ORGANIZATION DATA for %q:
- Tools: %d total (%d approved). Names: %s
- Requests: %d total (%d pending review)
- Compliance Controls: %d total (%d compliant). Frameworks: %s
- Vendors: %s
- Recent Reports: %s
`,
		label,
		len(tools), approvedTools, orNone(strings.Join(toolLines, ", ")),
		len(requests), pendingRequests,
		len(controls), compliantControls, orNone(strings.Join(frameworks, ", ")),
		orNone(strings.Join(vendorNames, ", ")),
		orNone(strings.Join(reportLines, ", "))), nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

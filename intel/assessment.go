// Package intel implements the intelligence-gathering and scoring
// pipeline: evidence aggregation over web search, risk synthesis via a
// completion endpoint, and derivation of persisted scores.
package intel

import (
	"fmt"

	"github.com/aegisinsight/aegis/store"
)

// Vulnerability category keys, in rendering order.
const (
	CategoryDataPrivacy            = "dataPrivacy"
	CategoryPromptInjection        = "promptInjection"
	CategoryModelBias              = "modelBias"
	CategoryInfrastructureSecurity = "infrastructureSecurity"
	CategoryOutputReliability      = "outputReliability"
	CategoryComplianceRisk         = "complianceRisk"
)

// Categories lists the six required vulnerability categories in order.
var Categories = []string{
	CategoryDataPrivacy,
	CategoryPromptInjection,
	CategoryModelBias,
	CategoryInfrastructureSecurity,
	CategoryOutputReliability,
	CategoryComplianceRisk,
}

// VulnerabilityFinding is one category's synthesized risk rating.
// Score is 1-10, higher is worse.
type VulnerabilityFinding struct {
	Score   int    `json:"score"`
	Details string `json:"details"`
}

// Vulnerabilities holds all six required category findings.
type Vulnerabilities struct {
	DataPrivacy            VulnerabilityFinding `json:"dataPrivacy"`
	PromptInjection        VulnerabilityFinding `json:"promptInjection"`
	ModelBias              VulnerabilityFinding `json:"modelBias"`
	InfrastructureSecurity VulnerabilityFinding `json:"infrastructureSecurity"`
	OutputReliability      VulnerabilityFinding `json:"outputReliability"`
	ComplianceRisk         VulnerabilityFinding `json:"complianceRisk"`
}

// ByCategory returns the finding for a category key.
func (v Vulnerabilities) ByCategory(key string) (VulnerabilityFinding, bool) {
	switch key {
	case CategoryDataPrivacy:
		return v.DataPrivacy, true
	case CategoryPromptInjection:
		return v.PromptInjection, true
	case CategoryModelBias:
		return v.ModelBias, true
	case CategoryInfrastructureSecurity:
		return v.InfrastructureSecurity, true
	case CategoryOutputReliability:
		return v.OutputReliability, true
	case CategoryComplianceRisk:
		return v.ComplianceRisk, true
	default:
		return VulnerabilityFinding{}, false
	}
}

// FeedItem is one cited evidence entry in the knowledge feed.
type FeedItem struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	Date        string `json:"date"`
	Snippet     string `json:"snippet"`
	Credibility string `json:"credibility"`
}

// Competitor is one comparative market entry. Not persisted as a
// separate subject.
type Competitor struct {
	Name             string `json:"name"`
	TrustScore       int    `json:"trustScore"`
	Pricing          string `json:"pricing"`
	SecurityFeatures string `json:"securityFeatures"`
	Compliance       string `json:"compliance"`
}

// Assessment is the structured output of risk synthesis.
type Assessment struct {
	TrustScore       int             `json:"trustScore"`
	ExecutiveSummary string          `json:"executiveSummary"`
	Vulnerabilities  Vulnerabilities `json:"vulnerabilities"`
	KnowledgeFeed    []FeedItem      `json:"knowledgeFeed"`
	Competitors      []Competitor    `json:"competitors"`
}

// Validate checks schema completeness: trust score in range and every
// category present with a score in [1,10]. A partially populated
// assessment is a synthesis failure, not a valid partial result.
func (a *Assessment) Validate() error {
	if a.TrustScore < 0 || a.TrustScore > 100 {
		return fmt.Errorf("trustScore %d out of range [0,100]", a.TrustScore)
	}
	for _, key := range Categories {
		finding, _ := a.Vulnerabilities.ByCategory(key)
		if finding.Score < 1 || finding.Score > 10 {
			return fmt.Errorf("vulnerability category %q missing or score %d out of range [1,10]", key, finding.Score)
		}
	}
	return nil
}

// TierForScore derives the risk tier from a trust score.
func TierForScore(trustScore int) store.RiskTier {
	switch {
	case trustScore >= 70:
		return store.RiskTierLow
	case trustScore >= 40:
		return store.RiskTierMedium
	default:
		return store.RiskTierHigh
	}
}

// ValidationError reports a rejected input before any external call is
// made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

package intel

import (
	"fmt"
	"strings"
)

const synthesisPreamble = `You are Aegis Insight, an AI security intelligence analyst. You produce structured security intelligence reports about AI services and products.

Given web search results about an AI service, produce a comprehensive JSON analysis. Be specific, cite real data from the search results, and be balanced but thorough about risks.

Return ONLY valid JSON with this exact structure:
{
  "trustScore": <number 0-100>,
  "executiveSummary": "<3 sentences about the service's security posture>",
  "vulnerabilities": {
    "dataPrivacy": { "score": <1-10>, "details": "<specific findings>" },
    "promptInjection": { "score": <1-10>, "details": "<specific findings>" },
    "modelBias": { "score": <1-10>, "details": "<specific findings>" },
    "infrastructureSecurity": { "score": <1-10>, "details": "<specific findings>" },
    "outputReliability": { "score": <1-10>, "details": "<specific findings>" },
    "complianceRisk": { "score": <1-10>, "details": "<specific findings>" }
  },
  "knowledgeFeed": [
    {
      "title": "<article title>",
      "source": "<source name>",
      "url": "<url>",
      "date": "<date or 'Recent'>",
      "snippet": "<2-3 sentence summary>",
      "credibility": "<High|Medium|Low>"
    }
  ],
  "competitors": [
    {
      "name": "<competitor name>",
      "trustScore": <number 0-100>,
      "pricing": "<pricing info>",
      "securityFeatures": "<key security features>",
      "compliance": "<certifications>"
    }
  ]
}

Higher vulnerability scores mean HIGHER risk (worse). Trust score is inverse: higher means MORE trustworthy.`

const trustScoreGuidance = `Trust score guidance: start from 100 and subtract weighted category severities. Weight dataPrivacy and infrastructureSecurity at 2x; all other categories at 1x. Banding: 70-100 indicates a low-risk service, 40-69 moderate risk, below 40 high risk.`

// synthesisSystemPrompt assembles the fixed system instruction: output
// schema, per-category scoring rubrics, and trust-score weighting
// guidance.
func synthesisSystemPrompt() string {
	var b strings.Builder
	b.WriteString(synthesisPreamble)
	b.WriteString("\n\nScoring rubrics per category:\n")
	for _, key := range Categories {
		rubric := categoryRubrics[key]
		fmt.Fprintf(&b, "\n%s:\n  %s\n  %s\n  %s\n", key, rubric.Low, rubric.Mid, rubric.High)
	}
	b.WriteString("\n")
	b.WriteString(trustScoreGuidance)
	return b.String()
}

// synthesisUserPrompt frames the evidence block for one subject.
func synthesisUserPrompt(subjectName, evidence string) string {
	return fmt.Sprintf("Analyze the AI service %q based on these search results:\n\n%s", subjectName, evidence)
}

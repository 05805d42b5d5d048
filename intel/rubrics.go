package intel

// categoryRubric holds the three severity bands sent to the synthesis
// model as scoring guidance for one vulnerability category.
type categoryRubric struct {
	Low  string
	Mid  string
	High string
}

var categoryRubrics = map[string]categoryRubric{
	CategoryDataPrivacy: {
		Low:  "1-3: E2E encryption, no data retention, SOC 2 Type II",
		Mid:  "4-6: Standard encryption, some retention, opt-out available",
		High: "7-10: Data used for training, unclear policies, past breaches",
	},
	CategoryPromptInjection: {
		Low:  "1-3: Documented guardrails, red-team tested, no public exploits",
		Mid:  "4-6: Basic guardrails, some bypasses patched",
		High: "7-10: No protections, known unpatched exploits",
	},
	CategoryModelBias: {
		Low:  "1-3: Published model cards, regular bias audits, fairness benchmarks",
		Mid:  "4-6: Some bias docs, occasional audits",
		High: "7-10: No audits, documented discriminatory outputs",
	},
	CategoryInfrastructureSecurity: {
		Low:  "1-3: SOC 2 + ISO 27001, bug bounty, zero breaches",
		Mid:  "4-6: Basic certs, no bug bounty, minor incidents",
		High: "7-10: No certs, known breaches, poor incident response",
	},
	CategoryOutputReliability: {
		Low:  "1-3: Low hallucination, citations/grounding, benchmarks published",
		Mid:  "4-6: Moderate hallucination, some grounding",
		High: "7-10: High hallucination, no grounding, misinformation incidents",
	},
	CategoryComplianceRisk: {
		Low:  "1-3: GDPR, CCPA, HIPAA compliant, DPAs available",
		Mid:  "4-6: Partial compliance, DPA on request",
		High: "7-10: No compliance certs, regulatory actions pending",
	},
}

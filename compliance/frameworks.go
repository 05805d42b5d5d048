// Package compliance holds the static framework catalogs, control
// attestation, and remediation plan generation.
package compliance

// ControlDef is one control in a framework catalog.
type ControlDef struct {
	Ref   string `json:"ref"`
	Title string `json:"title"`
}

// Framework is a static compliance framework definition. Catalogs are
// reference data, not computed.
type Framework struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Controls    []ControlDef `json:"controls"`
}

// Frameworks lists the supported framework catalogs in display order.
var Frameworks = []Framework{
	{
		ID:          "nist-ai-rmf",
		Name:        "NIST AI RMF",
		Description: "AI Risk Management Framework",
		Controls: []ControlDef{
			{Ref: "GOV-1", Title: "AI governance policies established"},
			{Ref: "GOV-2", Title: "Roles and responsibilities defined"},
			{Ref: "MAP-1", Title: "AI system context documented"},
			{Ref: "MAP-2", Title: "Risk identification processes"},
			{Ref: "MEA-1", Title: "Performance monitoring in place"},
			{Ref: "MEA-2", Title: "Bias detection mechanisms"},
			{Ref: "MAN-1", Title: "Risk response procedures"},
			{Ref: "MAN-2", Title: "Incident response plan"},
		},
	},
	{
		ID:          "eu-ai-act",
		Name:        "EU AI Act",
		Description: "European AI Regulation",
		Controls: []ControlDef{
			{Ref: "ART-9", Title: "Risk management system"},
			{Ref: "ART-10", Title: "Data governance"},
			{Ref: "ART-11", Title: "Technical documentation"},
			{Ref: "ART-13", Title: "Transparency & information"},
			{Ref: "ART-14", Title: "Human oversight"},
			{Ref: "ART-15", Title: "Accuracy & robustness"},
		},
	},
	{
		ID:          "soc2",
		Name:        "SOC 2",
		Description: "Service Organization Controls",
		Controls: []ControlDef{
			{Ref: "CC1", Title: "Control environment"},
			{Ref: "CC2", Title: "Communication & information"},
			{Ref: "CC3", Title: "Risk assessment"},
			{Ref: "CC5", Title: "Control activities"},
			{Ref: "CC6", Title: "Logical & physical access"},
			{Ref: "CC7", Title: "System operations"},
		},
	},
	{
		ID:          "iso-27001",
		Name:        "ISO 27001",
		Description: "Information Security Management",
		Controls: []ControlDef{
			{Ref: "A.5", Title: "Information security policies"},
			{Ref: "A.6", Title: "Organization of information security"},
			{Ref: "A.8", Title: "Asset management"},
			{Ref: "A.9", Title: "Access control"},
			{Ref: "A.12", Title: "Operations security"},
			{Ref: "A.18", Title: "Compliance"},
		},
	},
	{
		ID:          "gdpr",
		Name:        "GDPR",
		Description: "General Data Protection Regulation",
		Controls: []ControlDef{
			{Ref: "ART-5", Title: "Principles of processing"},
			{Ref: "ART-6", Title: "Lawfulness of processing"},
			{Ref: "ART-25", Title: "Data protection by design"},
			{Ref: "ART-32", Title: "Security of processing"},
			{Ref: "ART-35", Title: "Data protection impact assessment"},
		},
	},
}

// FrameworkByID looks up a framework catalog.
func FrameworkByID(id string) (Framework, bool) {
	for _, fw := range Frameworks {
		if fw.ID == id {
			return fw, true
		}
	}
	return Framework{}, false
}

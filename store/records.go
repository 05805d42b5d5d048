// Package store provides record storage for aegis using NATS KV.
package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common storage errors.
var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("record already exists")
)

// ReportStatus tracks an intelligence report through its lifecycle.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusAnalyzing ReportStatus = "analyzing"
	ReportStatusComplete  ReportStatus = "complete"
	ReportStatusError     ReportStatus = "error"
)

// ToolStatus is the governance state of a registered AI tool.
type ToolStatus string

const (
	ToolStatusPending  ToolStatus = "pending"
	ToolStatusApproved ToolStatus = "approved"
	ToolStatusRejected ToolStatus = "rejected"
	ToolStatusSunset   ToolStatus = "sunset"
)

// RequestStatus is the review state of a tool adoption request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// ControlStatus is the attestation state of a compliance control.
type ControlStatus string

const (
	ControlStatusCompliant     ControlStatus = "compliant"
	ControlStatusNonCompliant  ControlStatus = "non_compliant"
	ControlStatusNotApplicable ControlStatus = "not_applicable"
)

// RiskTier buckets a trust score into a governance tier.
type RiskTier string

const (
	RiskTierLow    RiskTier = "low"
	RiskTierMedium RiskTier = "medium"
	RiskTierHigh   RiskTier = "high"
)

// Report is a persisted intelligence report for one tool scan.
type Report struct {
	ID         string          `json:"id"`
	OrgID      string          `json:"org_id"`
	ToolName   string          `json:"tool_name"`
	URL        string          `json:"url,omitempty"`
	Status     ReportStatus    `json:"status"`
	SearchData json.RawMessage `json:"search_data,omitempty"`
	Analysis   json.RawMessage `json:"analysis,omitempty"`
	TrustScore *int            `json:"trust_score,omitempty"`
	RiskTier   RiskTier        `json:"risk_tier,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Tool is a registered AI tool in an organization's inventory.
type Tool struct {
	ID         string     `json:"id"`
	OrgID      string     `json:"org_id"`
	Name       string     `json:"name"`
	Vendor     string     `json:"vendor,omitempty"`
	Category   string     `json:"category,omitempty"`
	Status     ToolStatus `json:"status"`
	TrustScore *int       `json:"trust_score,omitempty"`
	RiskTier   RiskTier   `json:"risk_tier,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Vendor aggregates assessment results per supplier. Name is unique
// within an organization.
type Vendor struct {
	ID             string          `json:"id"`
	OrgID          string          `json:"org_id"`
	Name           string          `json:"name"`
	Website        string          `json:"website,omitempty"`
	TrustScore     *int            `json:"trust_score,omitempty"`
	RiskTier       RiskTier        `json:"risk_tier,omitempty"`
	ResearchData   json.RawMessage `json:"research_data,omitempty"`
	LastAssessedAt *time.Time      `json:"last_assessed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Request is a pending tool adoption request raised by an employee.
type Request struct {
	ID            string        `json:"id"`
	OrgID         string        `json:"org_id"`
	ToolName      string        `json:"tool_name"`
	Requester     string        `json:"requester,omitempty"`
	Justification string        `json:"justification,omitempty"`
	Status        RequestStatus `json:"status"`
	TrustScore    *int          `json:"trust_score,omitempty"`
	RiskTier      RiskTier      `json:"risk_tier,omitempty"`

	// SubmissionData is the full assessment snapshotted onto the
	// request when a linked scan completes.
	SubmissionData json.RawMessage `json:"submission_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Control is one compliance control attestation within a framework.
// Framework plus ControlRef is unique within an organization.
type Control struct {
	ID         string        `json:"id"`
	OrgID      string        `json:"org_id"`
	Framework  string        `json:"framework"`
	ControlRef string        `json:"control_ref"`
	Title      string        `json:"title,omitempty"`
	Status     ControlStatus `json:"status"`
	Attestor   string        `json:"attestor,omitempty"`
	AttestedAt *time.Time    `json:"attested_at,omitempty"`
	Notes      string        `json:"notes,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Activity is an append-only audit log entry.
type Activity struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewID generates a new unique record identifier.
func NewID() string {
	return uuid.New().String()
}

package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aegisinsight/aegis/intel"
	"github.com/aegisinsight/aegis/store"
)

// Attestation is one control status change submitted by a user.
type Attestation struct {
	OrgID      string
	Framework  string
	ControlRef string
	Status     store.ControlStatus
	Attestor   string
	Notes      string
}

// FrameworkStats summarizes attestation progress for one framework.
type FrameworkStats struct {
	Framework     string `json:"framework"`
	Total         int    `json:"total"`
	Compliant     int    `json:"compliant"`
	NonCompliant  int    `json:"non_compliant"`
	NotApplicable int    `json:"not_applicable"`
}

// Service manages control attestations against the static catalogs.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// NewService creates a compliance Service. A nil logger defaults to
// slog.Default.
func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger}
}

// Attest upserts one control attestation. The control reference must
// exist in the framework's catalog. Attestor identity and timestamp
// are recorded when the status is compliant.
func (s *Service) Attest(ctx context.Context, att Attestation) (*store.Control, error) {
	fw, ok := FrameworkByID(att.Framework)
	if !ok {
		return nil, &intel.ValidationError{Field: "framework", Reason: fmt.Sprintf("unknown framework %q", att.Framework)}
	}

	var def *ControlDef
	for i := range fw.Controls {
		if fw.Controls[i].Ref == att.ControlRef {
			def = &fw.Controls[i]
			break
		}
	}
	if def == nil {
		return nil, &intel.ValidationError{Field: "control_ref", Reason: fmt.Sprintf("control %q not in framework %q", att.ControlRef, att.Framework)}
	}

	switch att.Status {
	case store.ControlStatusCompliant, store.ControlStatusNonCompliant, store.ControlStatusNotApplicable:
	default:
		return nil, &intel.ValidationError{Field: "status", Reason: fmt.Sprintf("invalid status %q", att.Status)}
	}

	control := &store.Control{
		OrgID:      att.OrgID,
		Framework:  att.Framework,
		ControlRef: att.ControlRef,
		Title:      def.Title,
		Status:     att.Status,
		Notes:      att.Notes,
	}
	if att.Status == store.ControlStatusCompliant {
		now := time.Now()
		control.Attestor = att.Attestor
		control.AttestedAt = &now
	}

	if err := s.store.UpsertControl(ctx, control); err != nil {
		return nil, fmt.Errorf("upsert control: %w", err)
	}

	s.logger.Info("control attested",
		"org_id", att.OrgID,
		"framework", att.Framework,
		"control_ref", att.ControlRef,
		"status", att.Status)

	return control, nil
}

// Stats summarizes attestation progress per framework, covering every
// catalog framework even when no controls are recorded yet.
func (s *Service) Stats(ctx context.Context, orgID string) ([]FrameworkStats, error) {
	controls, err := s.store.ListControls(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list controls: %w", err)
	}

	byFramework := make(map[string]*FrameworkStats)
	stats := make([]FrameworkStats, len(Frameworks))
	for i, fw := range Frameworks {
		stats[i] = FrameworkStats{Framework: fw.ID, Total: len(fw.Controls)}
		byFramework[fw.ID] = &stats[i]
	}

	for _, c := range controls {
		fs, ok := byFramework[c.Framework]
		if !ok {
			continue
		}
		switch c.Status {
		case store.ControlStatusCompliant:
			fs.Compliant++
		case store.ControlStatusNonCompliant:
			fs.NonCompliant++
		case store.ControlStatusNotApplicable:
			fs.NotApplicable++
		}
	}

	return stats, nil
}

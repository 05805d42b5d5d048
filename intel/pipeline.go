package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aegisinsight/aegis/search"
	"github.com/aegisinsight/aegis/store"
)

// ScanRequest identifies the subject of a scan and the records the
// results fan out to.
type ScanRequest struct {
	OrgID       string
	SubjectName string
	SubjectURL  string

	// ReportID, when set, resumes an existing report record instead of
	// creating one.
	ReportID string

	// ToolID links the scan to a tracked tool whose risk tier is
	// rederived from the new trust score.
	ToolID string

	// RequestID links the scan to an adoption request; the assessment
	// summary is snapshotted onto it best-effort.
	RequestID string

	// VendorResearch marks the scan as vendor research; results upsert
	// a vendor record keyed by name within the organization.
	VendorResearch bool
}

// ScanResult is the outcome of a completed scan.
type ScanResult struct {
	Report     *store.Report
	Assessment *Assessment
}

// Pipeline orchestrates one scan: gather evidence, synthesize, derive,
// persist. Each invocation is a single logical task; concurrent scans
// of the same subject race with last-write-wins semantics.
type Pipeline struct {
	searcher  search.Searcher
	synth     *Synthesizer
	store     store.Store
	extractor PageExtractor
	logger    *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPageExtractor enables deep evidence gathering: the top hit of
// each query is fetched and its extracted content joins the corpus.
func WithPageExtractor(extractor PageExtractor) PipelineOption {
	return func(p *Pipeline) {
		p.extractor = extractor
	}
}

// NewPipeline creates a Pipeline. A nil logger defaults to
// slog.Default.
func NewPipeline(searcher search.Searcher, synth *Synthesizer, st store.Store, logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		searcher: searcher,
		synth:    synth,
		store:    st,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scan runs the full pipeline for one subject. Evidence persistence
// happens before synthesis is attempted, and synthesis completes
// before the primary assessment write. On synthesis failure the report
// is marked errored but the gathered corpus remains for diagnosis.
func (p *Pipeline) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	if strings.TrimSpace(req.SubjectName) == "" {
		return nil, &ValidationError{Field: "subject name", Reason: "must not be empty"}
	}

	report, err := p.prepareReport(ctx, req)
	if err != nil {
		return nil, err
	}

	corpus, err := GatherEvidence(ctx, p.searcher, req.SubjectName)
	if err != nil {
		p.markError(ctx, report, err)
		return nil, fmt.Errorf("gather evidence: %w", err)
	}
	if p.extractor != nil {
		AttachTopPages(ctx, p.extractor, corpus, p.logger)
	}

	searchData, err := json.Marshal(corpus)
	if err != nil {
		p.markError(ctx, report, err)
		return nil, fmt.Errorf("encode corpus: %w", err)
	}
	report.SearchData = searchData
	report.Status = store.ReportStatusAnalyzing
	if err := p.store.UpdateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("persist evidence corpus: %w", err)
	}

	assessment, err := p.synth.Synthesize(ctx, req.SubjectName, corpus)
	if err != nil {
		p.markError(ctx, report, err)
		return nil, err
	}

	if err := p.applyAssessment(ctx, req, report, assessment); err != nil {
		p.markError(ctx, report, err)
		return nil, err
	}

	return &ScanResult{Report: report, Assessment: assessment}, nil
}

func (p *Pipeline) prepareReport(ctx context.Context, req ScanRequest) (*store.Report, error) {
	if req.ReportID != "" {
		report, err := p.store.GetReport(ctx, req.ReportID)
		if err != nil {
			return nil, fmt.Errorf("load report %s: %w", req.ReportID, err)
		}
		if report.URL == "" {
			report.URL = req.SubjectURL
		}
		return report, nil
	}

	report := &store.Report{
		OrgID:    req.OrgID,
		ToolName: req.SubjectName,
		URL:      req.SubjectURL,
		Status:   store.ReportStatusPending,
	}
	if err := p.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return report, nil
}

// applyAssessment performs the primary write plus derived and
// best-effort fan-out writes. Only the primary write can fail the
// operation.
func (p *Pipeline) applyAssessment(ctx context.Context, req ScanRequest, report *store.Report, assessment *Assessment) error {
	analysis, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("encode assessment: %w", err)
	}

	score := assessment.TrustScore
	tier := TierForScore(score)

	report.Analysis = analysis
	report.TrustScore = &score
	report.RiskTier = tier
	report.Status = store.ReportStatusComplete
	report.Error = ""
	if err := p.store.UpdateReport(ctx, report); err != nil {
		return fmt.Errorf("persist assessment: %w", err)
	}

	if req.ToolID != "" {
		if err := p.updateToolTier(ctx, req.ToolID, score, tier); err != nil {
			return err
		}
	}

	// Best-effort scatter: individual failures are logged, never fail
	// the scan.
	if req.RequestID != "" {
		if err := p.snapshotRequest(ctx, req.RequestID, analysis, score, tier); err != nil {
			p.logger.Warn("request snapshot failed",
				"request_id", req.RequestID,
				"error", err)
		}
	}
	if req.VendorResearch {
		if err := p.upsertVendor(ctx, req, analysis, score, tier); err != nil {
			p.logger.Warn("vendor upsert failed",
				"vendor", req.SubjectName,
				"error", err)
		}
	}

	return nil
}

func (p *Pipeline) updateToolTier(ctx context.Context, toolID string, score int, tier store.RiskTier) error {
	tool, err := p.store.GetTool(ctx, toolID)
	if err != nil {
		return fmt.Errorf("load tool %s: %w", toolID, err)
	}
	tool.TrustScore = &score
	tool.RiskTier = tier
	if err := p.store.UpdateTool(ctx, tool); err != nil {
		return fmt.Errorf("update tool %s: %w", toolID, err)
	}
	return nil
}

func (p *Pipeline) snapshotRequest(ctx context.Context, requestID string, analysis json.RawMessage, score int, tier store.RiskTier) error {
	request, err := p.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	request.TrustScore = &score
	request.RiskTier = tier
	request.SubmissionData = analysis
	return p.store.UpdateRequest(ctx, request)
}

func (p *Pipeline) upsertVendor(ctx context.Context, req ScanRequest, analysis json.RawMessage, score int, tier store.RiskTier) error {
	now := time.Now()
	return p.store.UpsertVendor(ctx, &store.Vendor{
		OrgID:          req.OrgID,
		Name:           req.SubjectName,
		Website:        req.SubjectURL,
		TrustScore:     &score,
		RiskTier:       tier,
		ResearchData:   analysis,
		LastAssessedAt: &now,
	})
}

// markError flips the report to errored so polling clients stop
// waiting. The store failure here is secondary to the original error.
func (p *Pipeline) markError(ctx context.Context, report *store.Report, cause error) {
	report.Status = store.ReportStatusError
	report.Error = cause.Error()
	if err := p.store.UpdateReport(ctx, report); err != nil {
		p.logger.Error("failed to mark report errored",
			"report_id", report.ID,
			"error", err)
	}
}

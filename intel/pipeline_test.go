package intel_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisinsight/aegis/intel"
	"github.com/aegisinsight/aegis/llm"
	"github.com/aegisinsight/aegis/llm/testutil"
	"github.com/aegisinsight/aegis/search"
	"github.com/aegisinsight/aegis/store"
)

func acmeSearcher() *stubSearcher {
	return &stubSearcher{
		results: map[string][]search.Result{
			"Acme Chat AI security vulnerabilities 2025": {
				{Title: "Review", Link: "https://example.com/review", Snippet: "audit findings"},
				{Title: "Advisory", Link: "https://example.com/advisory", Snippet: "patched issue"},
			},
		},
	}
}

func newPipeline(searcher search.Searcher, mock *testutil.MockCompleter, st store.Store) *intel.Pipeline {
	return intel.NewPipeline(searcher, intel.NewSynthesizer(mock, nil), st, nil)
}

func TestPipeline_Scan_EndToEnd(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	tool := &store.Tool{OrgID: "org-1", Name: "Acme Chat", Status: store.ToolStatusApproved}
	require.NoError(t, st.CreateTool(ctx, tool))

	mock := &testutil.MockCompleter{
		Responses: []*llm.Response{{Content: fencedAssessment, Model: "test-model"}},
	}
	pipeline := newPipeline(acmeSearcher(), mock, st)

	result, err := pipeline.Scan(ctx, intel.ScanRequest{
		OrgID:       "org-1",
		SubjectName: "Acme Chat",
		SubjectURL:  "https://acme.example",
		ToolID:      tool.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 62, result.Assessment.TrustScore)

	// The synthesis call received an evidence block with exactly the
	// two citation lines from the first query.
	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	userPrompt := reqs[0].Messages[1].Content
	assert.Equal(t, 2, strings.Count(userPrompt, "- ["))

	report, err := st.GetReport(ctx, result.Report.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ReportStatusComplete, report.Status)
	assert.Equal(t, "https://acme.example", report.URL)
	require.NotNil(t, report.TrustScore)
	assert.Equal(t, 62, *report.TrustScore)
	assert.Equal(t, store.RiskTierMedium, report.RiskTier)
	assert.NotEmpty(t, report.SearchData)
	assert.NotEmpty(t, report.Analysis)

	// The linked tool picks up the derived tier.
	gotTool, err := st.GetTool(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RiskTierMedium, gotTool.RiskTier)
	require.NotNil(t, gotTool.TrustScore)
	assert.Equal(t, 62, *gotTool.TrustScore)
}

func TestPipeline_Scan_EmptySubjectRejected(t *testing.T) {
	pipeline := newPipeline(acmeSearcher(), &testutil.MockCompleter{}, store.NewMemoryStore())

	_, err := pipeline.Scan(context.Background(), intel.ScanRequest{OrgID: "org-1", SubjectName: "  "})
	require.Error(t, err)

	var valErr *intel.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestPipeline_Scan_SynthesisFailureMarksReportErrored(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	mock := &testutil.MockCompleter{
		Responses: []*llm.Response{{Content: "no json here", Model: "test-model"}},
	}
	pipeline := newPipeline(acmeSearcher(), mock, st)

	_, err := pipeline.Scan(ctx, intel.ScanRequest{OrgID: "org-1", SubjectName: "Acme Chat"})
	require.Error(t, err)

	reports, listErr := st.ListReports(ctx, "org-1")
	require.NoError(t, listErr)
	require.Len(t, reports, 1)
	assert.Equal(t, store.ReportStatusError, reports[0].Status)
	assert.NotEmpty(t, reports[0].Error)

	// The gathered corpus survives the failed synthesis for diagnosis.
	assert.NotEmpty(t, reports[0].SearchData)
	var corpus intel.Corpus
	require.NoError(t, json.Unmarshal(reports[0].SearchData, &corpus))
	assert.Len(t, corpus, 4)
}

func TestPipeline_Scan_Rerun_OverwritesAssessment(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	high := strings.Replace(fencedAssessment, `"trustScore": 62`, `"trustScore": 85`, 1)
	mock := &testutil.MockCompleter{
		Responses: []*llm.Response{
			{Content: fencedAssessment, Model: "test-model"},
			{Content: high, Model: "test-model"},
		},
	}
	pipeline := newPipeline(acmeSearcher(), mock, st)

	first, err := pipeline.Scan(ctx, intel.ScanRequest{OrgID: "org-1", SubjectName: "Acme Chat"})
	require.NoError(t, err)

	second, err := pipeline.Scan(ctx, intel.ScanRequest{
		OrgID:       "org-1",
		SubjectName: "Acme Chat",
		ReportID:    first.Report.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, first.Report.ID, second.Report.ID)

	report, err := st.GetReport(ctx, first.Report.ID)
	require.NoError(t, err)
	require.NotNil(t, report.TrustScore)
	assert.Equal(t, 85, *report.TrustScore)
	assert.Equal(t, store.RiskTierLow, report.RiskTier)

	// Wholesale replacement: the stored analysis matches only the
	// second assessment.
	var stored intel.Assessment
	require.NoError(t, json.Unmarshal(report.Analysis, &stored))
	assert.Equal(t, 85, stored.TrustScore)
}

func TestPipeline_Scan_VendorResearchUpserts(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	mock := &testutil.MockCompleter{
		Responses: []*llm.Response{{Content: fencedAssessment, Model: "test-model"}},
	}
	pipeline := newPipeline(acmeSearcher(), mock, st)

	_, err := pipeline.Scan(ctx, intel.ScanRequest{
		OrgID:          "org-1",
		SubjectName:    "Acme Chat",
		SubjectURL:     "https://acme.example",
		VendorResearch: true,
	})
	require.NoError(t, err)

	vendor, err := st.GetVendorByName(ctx, "org-1", "Acme Chat")
	require.NoError(t, err)
	require.NotNil(t, vendor.TrustScore)
	assert.Equal(t, 62, *vendor.TrustScore)
	assert.Equal(t, store.RiskTierMedium, vendor.RiskTier)
	assert.Equal(t, "https://acme.example", vendor.Website)
	assert.NotNil(t, vendor.LastAssessedAt)

	// The vendor record carries the full assessment as its research
	// payload, not just the derived score.
	require.NotEmpty(t, vendor.ResearchData)
	var research intel.Assessment
	require.NoError(t, json.Unmarshal(vendor.ResearchData, &research))
	assert.Equal(t, 62, research.TrustScore)
	assert.NotEmpty(t, research.ExecutiveSummary)
}

func TestPipeline_Scan_RequestSnapshotBestEffort(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	mock := &testutil.MockCompleter{
		Responses: []*llm.Response{{Content: fencedAssessment, Model: "test-model"}},
	}
	pipeline := newPipeline(acmeSearcher(), mock, st)

	// A missing request record must not fail the scan.
	result, err := pipeline.Scan(ctx, intel.ScanRequest{
		OrgID:       "org-1",
		SubjectName: "Acme Chat",
		RequestID:   "no-such-request",
	})
	require.NoError(t, err)
	assert.Equal(t, store.ReportStatusComplete, result.Report.Status)
}

func TestPipeline_Scan_RequestSnapshotWritten(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	adoption := &store.Request{OrgID: "org-1", ToolName: "Acme Chat", Requester: "sam"}
	require.NoError(t, st.CreateRequest(ctx, adoption))

	mock := &testutil.MockCompleter{
		Responses: []*llm.Response{{Content: fencedAssessment, Model: "test-model"}},
	}
	pipeline := newPipeline(acmeSearcher(), mock, st)

	_, err := pipeline.Scan(ctx, intel.ScanRequest{
		OrgID:       "org-1",
		SubjectName: "Acme Chat",
		RequestID:   adoption.ID,
	})
	require.NoError(t, err)

	got, err := st.GetRequest(ctx, adoption.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TrustScore)
	assert.Equal(t, 62, *got.TrustScore)
	assert.Equal(t, store.RiskTierMedium, got.RiskTier)

	// The assessment itself is snapshotted onto the submission record.
	require.NotEmpty(t, got.SubmissionData)
	var snapshot intel.Assessment
	require.NoError(t, json.Unmarshal(got.SubmissionData, &snapshot))
	assert.Equal(t, 62, snapshot.TrustScore)
}

type stubExtractor struct {
	pages map[string]*search.Page
}

func (s *stubExtractor) Extract(_ context.Context, rawURL string) (*search.Page, error) {
	page, ok := s.pages[rawURL]
	if !ok {
		return nil, errors.New("fetch failed")
	}
	cp := *page
	return &cp, nil
}

func TestPipeline_Scan_DeepEvidencePersistedAndPrompted(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	mock := &testutil.MockCompleter{
		Responses: []*llm.Response{{Content: fencedAssessment, Model: "test-model"}},
	}
	extractor := &stubExtractor{pages: map[string]*search.Page{
		"https://example.com/review": {
			URL:      "https://example.com/review",
			Title:    "Review",
			Markdown: "Acme Chat stores transcripts for 90 days.",
		},
	}}
	pipeline := intel.NewPipeline(acmeSearcher(), intel.NewSynthesizer(mock, nil), st, nil,
		intel.WithPageExtractor(extractor))

	result, err := pipeline.Scan(ctx, intel.ScanRequest{OrgID: "org-1", SubjectName: "Acme Chat"})
	require.NoError(t, err)

	// The extracted page joins the persisted corpus.
	report, err := st.GetReport(ctx, result.Report.ID)
	require.NoError(t, err)
	var corpus intel.Corpus
	require.NoError(t, json.Unmarshal(report.SearchData, &corpus))
	require.Len(t, corpus, 4)
	require.NotNil(t, corpus[0].TopPage)
	assert.Equal(t, "Acme Chat stores transcripts for 90 days.", corpus[0].TopPage.Markdown)
	for _, qr := range corpus[1:] {
		assert.Nil(t, qr.TopPage)
	}

	// And reaches the synthesis prompt.
	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Messages[1].Content, "Extracted from https://example.com/review")
	assert.Contains(t, reqs[0].Messages[1].Content, "transcripts for 90 days")
}

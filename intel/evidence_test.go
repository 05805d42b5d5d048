package intel_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisinsight/aegis/intel"
	"github.com/aegisinsight/aegis/search"
)

// stubSearcher returns canned results per query and records the
// queries it received.
type stubSearcher struct {
	mu      sync.Mutex
	results map[string][]search.Result
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string) search.QueryResults {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	results := s.results[query]
	if results == nil {
		results = []search.Result{}
	}
	return search.QueryResults{Query: query, Results: results}
}

func TestBuildQueries(t *testing.T) {
	queries := intel.BuildQueries("Acme Chat")
	require.Len(t, queries, 4)
	assert.Equal(t, []string{
		"Acme Chat AI security vulnerabilities 2025",
		"Acme Chat AI data privacy concerns CVE",
		"Acme Chat vs competitors comparison features pricing",
		"Acme Chat AI bias fairness audit",
	}, queries)
}

func TestGatherEvidence_FourEntriesInQueryOrder(t *testing.T) {
	searcher := &stubSearcher{
		results: map[string][]search.Result{
			"Acme Chat AI security vulnerabilities 2025": {
				{Title: "Advisory", Link: "https://example.com/a", Snippet: "details"},
			},
			"Acme Chat AI bias fairness audit": {
				{Title: "Audit", Link: "https://example.com/b", Snippet: "details"},
			},
		},
	}

	corpus, err := intel.GatherEvidence(context.Background(), searcher, "Acme Chat")
	require.NoError(t, err)
	require.Len(t, corpus, 4)

	assert.Len(t, searcher.queries, 4)

	// Entries stay in query order regardless of completion order, and
	// every entry's result list is present even when empty.
	assert.Equal(t, "Acme Chat AI security vulnerabilities 2025", corpus[0].Query)
	assert.Equal(t, "Acme Chat AI data privacy concerns CVE", corpus[1].Query)
	assert.Equal(t, "Acme Chat vs competitors comparison features pricing", corpus[2].Query)
	assert.Equal(t, "Acme Chat AI bias fairness audit", corpus[3].Query)
	for _, entry := range corpus {
		assert.NotNil(t, entry.Results)
	}
	assert.Len(t, corpus[0].Results, 1)
	assert.Empty(t, corpus[1].Results)
}

func TestFormatEvidence_CitationLines(t *testing.T) {
	corpus := intel.Corpus{
		{Query: "q1", Results: []search.Result{
			{Title: "First", Link: "https://example.com/1", Snippet: "one"},
			{Title: "Second", Link: "https://example.com/2", Snippet: "two"},
		}},
		{Query: "q2", Results: []search.Result{}},
	}

	block := intel.FormatEvidence(corpus)
	assert.Equal(t,
		"- [First](https://example.com/1): one\n- [Second](https://example.com/2): two",
		block)
}

func TestFormatEvidence_Empty(t *testing.T) {
	assert.Empty(t, intel.FormatEvidence(intel.Corpus{{Query: "q", Results: []search.Result{}}}))
}

func TestFormatEvidence_IncludesExtractedPage(t *testing.T) {
	corpus := intel.Corpus{
		{
			Query:   "q1",
			Results: []search.Result{{Title: "First", Link: "https://example.com/1", Snippet: "one"}},
			TopPage: &search.Page{URL: "https://example.com/1", Markdown: "full article text"},
		},
	}

	block := intel.FormatEvidence(corpus)
	assert.Equal(t,
		"- [First](https://example.com/1): one\nExtracted from https://example.com/1:\nfull article text",
		block)
}

func TestAttachTopPages(t *testing.T) {
	long := strings.Repeat("x", 5000)
	extractor := &stubExtractor{pages: map[string]*search.Page{
		"https://example.com/a": {URL: "https://example.com/a", Markdown: long},
	}}
	corpus := intel.Corpus{
		{Query: "q1", Results: []search.Result{
			{Title: "A", Link: "https://example.com/a"},
			{Title: "Ignored", Link: "https://example.com/other"},
		}},
		{Query: "q2", Results: []search.Result{{Title: "B", Link: "https://example.com/broken"}}},
		{Query: "q3", Results: []search.Result{}},
	}

	intel.AttachTopPages(context.Background(), extractor, corpus, nil)

	// Only the top hit is fetched, and long pages are truncated.
	require.NotNil(t, corpus[0].TopPage)
	assert.Len(t, corpus[0].TopPage.Markdown, 4000)

	// Extraction failures and empty result lists leave the entry bare.
	assert.Nil(t, corpus[1].TopPage)
	assert.Nil(t, corpus[2].TopPage)
}

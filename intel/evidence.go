package intel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aegisinsight/aegis/search"
)

// queryTemplates are the fixed phrase patterns substituted with the
// subject name, covering security vulnerabilities, data-privacy/CVE
// concerns, competitive comparison, and bias/fairness audits.
var queryTemplates = []string{
	"%s AI security vulnerabilities 2025",
	"%s AI data privacy concerns CVE",
	"%s vs competitors comparison features pricing",
	"%s AI bias fairness audit",
}

// Corpus is the ordered set of search results gathered for a subject,
// one entry per query issued. Immutable once persisted.
type Corpus []search.QueryResults

// pageExcerptLimit caps the extracted markdown attached per corpus
// entry so a single long page cannot dominate the prompt.
const pageExcerptLimit = 4000

// PageExtractor fetches a cited URL and reduces it to readable
// markdown. *search.Extractor satisfies it.
type PageExtractor interface {
	Extract(ctx context.Context, rawURL string) (*search.Page, error)
}

// BuildQueries substitutes the subject name into the fixed templates.
func BuildQueries(subjectName string) []string {
	queries := make([]string, len(queryTemplates))
	for i, tmpl := range queryTemplates {
		queries[i] = fmt.Sprintf(tmpl, subjectName)
	}
	return queries
}

// GatherEvidence runs all queries for a subject concurrently and joins
// on completion of every one. Individual searches degrade to empty
// result lists, so the corpus always has one entry per query, in query
// order.
func GatherEvidence(ctx context.Context, searcher search.Searcher, subjectName string) (Corpus, error) {
	queries := BuildQueries(subjectName)
	corpus := make(Corpus, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		g.Go(func() error {
			corpus[i] = searcher.Search(gctx, query)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return corpus, nil
}

// AttachTopPages fetches the first hit of each corpus entry and
// attaches its extracted markdown, truncated to pageExcerptLimit.
// Extraction is enrichment: per-entry failures are logged and leave
// TopPage nil, never failing the gather.
func AttachTopPages(ctx context.Context, extractor PageExtractor, corpus Corpus, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range corpus {
		if len(corpus[i].Results) == 0 {
			continue
		}
		g.Go(func() error {
			link := corpus[i].Results[0].Link
			page, err := extractor.Extract(gctx, link)
			if err != nil {
				logger.Warn("page extraction failed",
					"url", link,
					"error", err)
				return nil
			}
			if len(page.Markdown) > pageExcerptLimit {
				page.Markdown = page.Markdown[:pageExcerptLimit]
			}
			corpus[i].TopPage = page
			return nil
		})
	}
	_ = g.Wait()
}

// FormatEvidence flattens a corpus into a single citation block, one
// line per result, preserving query order and per-query result order.
// Extracted page content, when present, follows its query's citations.
func FormatEvidence(corpus Corpus) string {
	var lines []string
	for _, qr := range corpus {
		for _, r := range qr.Results {
			lines = append(lines, search.FormatCitation(r))
		}
		if qr.TopPage != nil {
			lines = append(lines, fmt.Sprintf("Extracted from %s:\n%s", qr.TopPage.URL, qr.TopPage.Markdown))
		}
	}
	return strings.Join(lines, "\n")
}

package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// Page is the readable content of a fetched web page, converted to
// markdown for prompt inclusion.
type Page struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Markdown string `json:"markdown"`
}

// Extractor fetches a URL cited by a search result and reduces it to
// readable markdown for deeper evidence gathering.
type Extractor struct {
	httpClient *http.Client
	converter  *md.Converter
	userAgent  string
	maxSize    int64
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractorHTTPClient sets a custom HTTP client.
func WithExtractorHTTPClient(hc *http.Client) ExtractorOption {
	return func(e *Extractor) {
		e.httpClient = hc
	}
}

// NewExtractor creates a page extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	e := &Extractor{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		converter:  converter,
		userAgent:  "aegis-insight/1.0",
		maxSize:    2 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fetches the page at rawURL and returns its readable content
// as markdown.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Page, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if pageURL.Scheme != "http" && pageURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", pageURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	if err != nil {
		// Readability can fail on unusual markup; fall back to the
		// raw document.
		article.Content = string(body)
	}

	markdown, err := e.converter.ConvertString(article.Content)
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}
	markdown = cleanMarkdown(markdown)

	title := article.Title
	if title == "" {
		title = extractHTMLTitle(body)
	}

	return &Page{
		URL:      rawURL,
		Title:    title,
		Markdown: markdown,
	}, nil
}

func extractHTMLTitle(content []byte) string {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if title != "" {
				return
			}
			walk(c)
		}
	}
	walk(doc)

	return title
}

func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")

	return strings.TrimSpace(content)
}

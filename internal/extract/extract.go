// Package extract fetches article pages and pulls out readable body text.
// Extraction is a best-effort enrichment: every failure path degrades to the
// feed-provided summary, and nothing here returns an error.
package extract

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Content status values recorded on persisted items.
const (
	StatusFull    = "full"
	StatusRSSOnly = "rss_only"
)

// Extractor fetches article URLs and extracts their text.
type Extractor struct {
	client   *http.Client
	maxChars int
}

// New creates an extractor with a per-fetch timeout and an output cap.
func New(timeout time.Duration, maxChars int) *Extractor {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if maxChars == 0 {
		maxChars = 12000
	}
	return &Extractor{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		maxChars: maxChars,
	}
}

// Extract returns article text for the URL and a content status. With no URL,
// a failed fetch, or no extractable text, it degrades to the normalized
// fallback text with status "rss_only".
func (e *Extractor) Extract(ctx context.Context, articleURL, fallback string) (string, string) {
	if articleURL == "" {
		return Normalize(fallback), StatusRSSOnly
	}

	body, err := e.fetch(ctx, articleURL)
	if err != nil {
		return Normalize(fallback), StatusRSSOnly
	}

	text := extractReadability(body, articleURL)
	if text == "" {
		text = extractBodyText(body)
	}
	if text == "" {
		return Normalize(fallback), StatusRSSOnly
	}

	return truncate(text, e.maxChars), StatusFull
}

func (e *Extractor) fetch(ctx context.Context, articleURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", articleURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "newsdigest/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpError{code: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}

// extractReadability is the primary strategy: readability-style extraction
// of the main article body.
func extractReadability(body []byte, articleURL string) string {
	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return ""
	}
	return Normalize(article.TextContent)
}

// extractBodyText is the secondary strategy: the page's visible text with
// script, style, and noscript nodes dropped.
func extractBodyText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	return Normalize(doc.Find("body").Text())
}

// Normalize collapses whitespace runs to single spaces and trims the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncate(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars]
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}

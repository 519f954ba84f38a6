package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newsdigest/internal/config"
)

// WebSource scrapes an article listing page. When the config supplies CSS
// selectors those drive extraction; otherwise a heading-based heuristic is
// used. Scraped entries use their URL as GUID.
type WebSource struct {
	cfg    config.WebSource
	client *http.Client
}

// NewWebSource creates a scraped listing source from configuration.
func NewWebSource(cfg config.WebSource, timeout time.Duration) *WebSource {
	return &WebSource{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (w *WebSource) Name() string  { return w.cfg.Name }
func (w *WebSource) URL() string   { return w.cfg.ListURL }
func (w *WebSource) Enabled() bool { return w.cfg.IsEnabled() }

// Fetch downloads the listing page and extracts article entries.
func (w *WebSource) Fetch(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", w.cfg.ListURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "newsdigest/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("listing page returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing listing page: %w", err)
	}

	return w.extract(doc), nil
}

func (w *WebSource) extract(doc *goquery.Document) []Entry {
	var entries []Entry
	if w.cfg.ItemSelector != "" {
		entries = w.extractBySelectors(doc)
	}
	if len(entries) == 0 {
		entries = w.extractHeuristic(doc)
	}

	if len(entries) > w.cfg.MaxItems {
		entries = entries[:w.cfg.MaxItems]
	}
	return entries
}

// extractBySelectors walks the configured item selector and pulls title,
// link, date, and summary from each node.
func (w *WebSource) extractBySelectors(doc *goquery.Document) []Entry {
	var entries []Entry

	doc.Find(w.cfg.ItemSelector).Each(func(_ int, node *goquery.Selection) {
		var title, link, published, summary string

		if w.cfg.TitleSelector != "" {
			title = strings.TrimSpace(node.Find(w.cfg.TitleSelector).First().Text())
		}
		if w.cfg.URLSelector != "" {
			if href, ok := node.Find(w.cfg.URLSelector).First().Attr("href"); ok {
				link = w.safeURL(href)
			}
		}
		if w.cfg.DateSelector != "" {
			dnode := node.Find(w.cfg.DateSelector).First()
			published = parseTime(dnode.Text())
			if published == "" {
				if dt, ok := dnode.Attr("datetime"); ok {
					published = parseTime(dt)
				}
			}
		}
		if w.cfg.SummarySelector != "" {
			summary = strings.TrimSpace(node.Find(w.cfg.SummarySelector).First().Text())
		}

		if title != "" && link != "" {
			entries = append(entries, Entry{
				GUID:        link,
				URL:         link,
				Title:       title,
				PublishedAt: published,
				Summary:     summary,
			})
		}
	})

	return entries
}

// extractHeuristic finds article links via h2 headings: the nearest anchor
// wins, same-domain only, filtered by the include/exclude URL patterns.
func (w *WebSource) extractHeuristic(doc *goquery.Document) []Entry {
	var entries []Entry
	seen := make(map[string]struct{})

	include := compilePattern(w.cfg.IncludeURLRegex)
	exclude := compilePattern(w.cfg.ExcludeURLRegex)

	doc.Find("h2").Each(func(_ int, h2 *goquery.Selection) {
		title := strings.TrimSpace(h2.Text())
		if len(title) < 8 {
			return
		}

		href := nearestHref(h2)
		if href == "" {
			return
		}
		link := w.safeURL(href)
		if link == "" || !sameDomain(w.cfg.ListURL, link) {
			return
		}
		if include != nil && !include.MatchString(link) {
			return
		}
		if exclude != nil && exclude.MatchString(link) {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}

		var published string
		timeTag := h2.Parent().Find("time").First()
		if timeTag.Length() > 0 {
			if dt, ok := timeTag.Attr("datetime"); ok {
				published = parseTime(dt)
			}
			if published == "" {
				published = parseTime(timeTag.Text())
			}
		}

		entries = append(entries, Entry{
			GUID:        link,
			URL:         link,
			Title:       title,
			PublishedAt: published,
		})
	})

	return entries
}

// nearestHref looks for the anchor closest to a heading: an enclosing link,
// a link inside the heading, or one in the surrounding block.
func nearestHref(h2 *goquery.Selection) string {
	if parent := h2.ParentsFiltered("a[href]").First(); parent.Length() > 0 {
		href, _ := parent.Attr("href")
		return href
	}
	if inner := h2.Find("a[href]").First(); inner.Length() > 0 {
		href, _ := inner.Attr("href")
		return href
	}
	if sibling := h2.Parent().Find("a[href]").First(); sibling.Length() > 0 {
		href, _ := sibling.Attr("href")
		return href
	}
	return ""
}

// safeURL resolves a href against the listing URL, dropping anchors and
// mailto links.
func (w *WebSource) safeURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "#") {
		return ""
	}
	base, err := url.Parse(w.cfg.ListURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func sameDomain(baseURL, candidate string) bool {
	b, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	c, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return b.Host == c.Host
}

// compilePattern returns nil for empty or invalid patterns, which are
// treated as match-everything.
func compilePattern(pattern string) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	return re
}

// Package source provides adapters that turn external article listings
// (RSS/Atom feeds, scraped web pages) into raw entries for the pipeline.
package source

import (
	"context"
	"strings"

	"github.com/araddon/dateparse"
)

// Entry is an ephemeral raw entry produced by a source adapter.
// Identity fields may be absent; the orchestrator derives the dedup key.
type Entry struct {
	GUID        string
	URL         string
	Title       string
	Author      string
	PublishedAt string // RFC3339 or empty when unparsable
	Summary     string
}

// Source is a registered article source. Fetch returns an error only on
// total failure; malformed entries are skipped internally, never reported.
type Source interface {
	Name() string
	URL() string
	Enabled() bool
	Fetch(ctx context.Context) ([]Entry, error)
}

// parseTime parses a free-form date string into RFC3339, or "" if it
// cannot be understood.
func parseTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	t, err := dateparse.ParseAny(value)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02T15:04:05Z07:00")
}

// stripHTML removes tags and decodes common entities from feed-provided
// summary markup.
func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

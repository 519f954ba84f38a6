package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newsdigest/internal/config"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test Feed</title>
  <link>https://example.com</link>
  <item>
    <guid>tag:example.com,2026:post-1</guid>
    <link>https://example.com/post-1</link>
    <title>First Post</title>
    <author>jane@example.com (Jane)</author>
    <pubDate>Mon, 24 Aug 2026 09:00:00 GMT</pubDate>
    <description><![CDATA[<p>Some &amp; <b>rich</b>   summary.</p>]]></description>
  </item>
  <item>
    <guid>tag:example.com,2026:post-2</guid>
    <title>Post Without Link</title>
  </item>
</channel>
</rss>`

func TestFeedSourceFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testRSS))
	}))
	defer ts.Close()

	src := NewFeedSource(config.Feed{Name: "Test", URL: ts.URL}, 5*time.Second)
	entries, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.GUID != "tag:example.com,2026:post-1" {
		t.Errorf("unexpected guid %q", first.GUID)
	}
	if first.URL != "https://example.com/post-1" {
		t.Errorf("unexpected url %q", first.URL)
	}
	if first.Title != "First Post" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if !strings.HasPrefix(first.PublishedAt, "2026-08-24T09:00:00") {
		t.Errorf("unexpected published_at %q", first.PublishedAt)
	}
	if strings.Contains(first.Summary, "<") {
		t.Errorf("summary should have tags stripped, got %q", first.Summary)
	}
	if !strings.Contains(first.Summary, "Some & rich summary.") {
		t.Errorf("unexpected summary %q", first.Summary)
	}

	// Entries without a link are kept; the orchestrator decides their fate
	// via the dedup key.
	second := entries[1]
	if second.URL != "" {
		t.Errorf("expected empty url, got %q", second.URL)
	}
	if second.GUID == "" {
		t.Error("expected guid preserved")
	}
	if second.PublishedAt != "" {
		t.Errorf("expected empty published_at, got %q", second.PublishedAt)
	}
}

func TestFeedSourceFetchError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	src := NewFeedSource(config.Feed{Name: "Gone", URL: ts.URL}, 5*time.Second)
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Error("expected error for missing feed")
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML(`<p>Hello &amp; <a href="#">world</a>,&nbsp;  again</p>`)
	want := "Hello & world , again"
	if got != want {
		t.Errorf("stripHTML = %q, want %q", got, want)
	}
}

func TestParseTime(t *testing.T) {
	if got := parseTime("21 Aug 2026"); !strings.HasPrefix(got, "2026-08-21") {
		t.Errorf("parseTime = %q", got)
	}
	if got := parseTime("not a date"); got != "" {
		t.Errorf("expected empty result for garbage, got %q", got)
	}
	if got := parseTime(""); got != "" {
		t.Errorf("expected empty result for empty input, got %q", got)
	}
}

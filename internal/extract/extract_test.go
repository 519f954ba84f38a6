package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Test Article</title></head>
<body>
  <script>var tracking = true;</script>
  <article>
    <h1>Test Article</h1>
    <p>This is the first paragraph of a reasonably long article body that
    readability should be able to pick up without much trouble at all.</p>
    <p>This is the second paragraph, also carrying enough text to make the
    extraction heuristics comfortable with treating it as real content.</p>
    <p>And a third paragraph for good measure, because short pages tend to be
    rejected by readability scoring.</p>
  </article>
</body>
</html>`

func newExtractor() *Extractor {
	return New(5*time.Second, 12000)
}

func TestExtractNoURL(t *testing.T) {
	text, status := newExtractor().Extract(context.Background(), "", "  some\n\n fallback\ttext ")
	if status != StatusRSSOnly {
		t.Errorf("expected rss_only, got %q", status)
	}
	if text != "some fallback text" {
		t.Errorf("expected normalized fallback, got %q", text)
	}
}

func TestExtractFetchError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer ts.Close()

	text, status := newExtractor().Extract(context.Background(), ts.URL, " fallback  summary ")
	if status != StatusRSSOnly {
		t.Errorf("expected rss_only on 404, got %q", status)
	}
	if text != "fallback summary" {
		t.Errorf("expected normalized fallback, got %q", text)
	}
}

func TestExtractUnreachableHost(t *testing.T) {
	text, status := newExtractor().Extract(context.Background(), "http://127.0.0.1:1/nope", "fb")
	if status != StatusRSSOnly || text != "fb" {
		t.Errorf("expected degraded result, got (%q, %q)", text, status)
	}
}

func TestExtractFullContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleHTML))
	}))
	defer ts.Close()

	text, status := newExtractor().Extract(context.Background(), ts.URL, "fallback")
	if status != StatusFull {
		t.Fatalf("expected full status, got %q", status)
	}
	if !strings.Contains(text, "first paragraph") {
		t.Errorf("expected article text, got %q", text)
	}
	if strings.Contains(text, "tracking") {
		t.Error("script content leaked into extracted text")
	}
}

func TestExtractTruncates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>" + strings.Repeat("word ", 2000) + "</p></body></html>"))
	}))
	defer ts.Close()

	ex := New(5*time.Second, 100)
	text, status := ex.Extract(context.Background(), ts.URL, "fallback")
	if status != StatusFull {
		t.Fatalf("expected full status, got %q", status)
	}
	if len(text) > 100 {
		t.Errorf("expected truncation to 100 chars, got %d", len(text))
	}
}

func TestExtractEmptyPageDegrades(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body></body></html>"))
	}))
	defer ts.Close()

	text, status := newExtractor().Extract(context.Background(), ts.URL, " empty  page fallback ")
	if status != StatusRSSOnly {
		t.Errorf("expected rss_only for empty page, got %q", status)
	}
	if text != "empty page fallback" {
		t.Errorf("expected normalized fallback, got %q", text)
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"   ", ""},
		{"a  b\t\nc", "a b c"},
		{" leading and trailing ", "leading and trailing"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

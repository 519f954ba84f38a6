package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"newsdigest/internal/config"
)

type stubProvider struct {
	response string
	prompt   string
}

func (s *stubProvider) Complete(ctx context.Context, system, user string) (string, error) {
	s.prompt = user
	return s.response, nil
}

func (s *stubProvider) IsConfigured() bool { return true }

func TestGenerateBlogTruncatesInput(t *testing.T) {
	provider := &stubProvider{response: "# Weekly AI Roundup\n\nBody."}
	cfg := &config.Config{
		Summarizer: config.Summarizer{Language: "English"},
		Blog:       config.Blog{MaxCharsInput: 50},
	}

	weekMD := strings.Repeat("x", 200)
	out, err := GenerateBlog(context.Background(), provider, weekMD, cfg)
	if err != nil {
		t.Fatalf("GenerateBlog failed: %v", err)
	}
	if out != "# Weekly AI Roundup\n\nBody." {
		t.Errorf("unexpected output %q", out)
	}
	if strings.Contains(provider.prompt, strings.Repeat("x", 51)) {
		t.Error("digest was not truncated before prompting")
	}
	if !strings.Contains(provider.prompt, "English") {
		t.Error("prompt missing output language")
	}
}

func TestGenerateBlogNilProvider(t *testing.T) {
	cfg := &config.Config{Blog: config.Blog{MaxCharsInput: 100}}
	if _, err := GenerateBlog(context.Background(), nil, "digest", cfg); err == nil {
		t.Fatal("expected error with nil provider")
	}
}

func TestExtractTitle(t *testing.T) {
	md := "intro line\n# The Real Title\n\n# Second Heading"
	if got := ExtractTitle(md, "fallback"); got != "The Real Title" {
		t.Errorf("ExtractTitle = %q", got)
	}
	if got := ExtractTitle("no headings here", "fallback"); got != "fallback" {
		t.Errorf("ExtractTitle fallback = %q", got)
	}
}

func TestEnsureFrontmatter(t *testing.T) {
	md := "# Post\n\nBody."
	out := EnsureFrontmatter(md, "Post", "2026-08-26")
	if !strings.HasPrefix(out, "---\ntitle: Post\n") {
		t.Errorf("frontmatter not prepended:\n%s", out)
	}
	if !strings.HasSuffix(out, md) {
		t.Error("body altered")
	}
	// Already-frontmattered documents pass through unchanged.
	if again := EnsureFrontmatter(out, "Other", "2026-01-01"); again != out {
		t.Error("existing frontmatter must be preserved")
	}
}

func TestNormalizeAuthor(t *testing.T) {
	md := "# Post\n\nAuthor: Some Model\n\nBy the assistant\n\nReal content."
	out := NormalizeAuthor(md)
	if strings.Contains(out, "Author:") || strings.Contains(out, "By the assistant") {
		t.Errorf("byline not stripped:\n%s", out)
	}
	if !strings.Contains(out, "Real content.") {
		t.Error("content lost")
	}
}

func TestAppendReferenceSection(t *testing.T) {
	out := AppendReferenceSection("# Post\n\nBody.\n", "AI Weekly Digest — 2026-W35", "../2026/ai_news_2026-W35")
	if !strings.Contains(out, "## References") {
		t.Errorf("missing references section:\n%s", out)
	}
	if !strings.Contains(out, "[AI Weekly Digest — 2026-W35](../2026/ai_news_2026-W35)") {
		t.Errorf("missing digest link:\n%s", out)
	}
}

func TestWeeklyLink(t *testing.T) {
	link := WeeklyLink(filepath.Join("output", "ai_news_2026-W35.md"), filepath.Join("output", "blog"))
	if link != "../ai_news_2026-W35.md" {
		t.Errorf("WeeklyLink = %q", link)
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.md")
	if err := WriteAtomic(path, "hello"); err != nil {
		t.Fatalf("WriteAtomic failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

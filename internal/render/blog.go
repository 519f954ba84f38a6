package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newsdigest/internal/config"
	"newsdigest/internal/llm"
)

const blogPromptTemplate = `Write a blog post in %s based on the weekly news digest below.
Output Markdown with a title, several subheadings, paragraphs, and a closing "Trends and Outlook" section.
Do not restate every item; distill the main storylines and analyse them across multiple items.

[Weekly digest]
%s
`

// GenerateBlog asks the provider for a narrative blog post built from the
// rendered weekly digest.
func GenerateBlog(ctx context.Context, provider llm.Provider, weekMD string, cfg *config.Config) (string, error) {
	if provider == nil {
		return "", fmt.Errorf("no LLM provider configured for blog generation")
	}
	content := weekMD
	if len(content) > cfg.Blog.MaxCharsInput {
		content = content[:cfg.Blog.MaxCharsInput]
	}
	language := cfg.Summarizer.Language
	if language == "" {
		language = "English"
	}
	prompt := fmt.Sprintf(blogPromptTemplate, language, content)
	text, err := provider.Complete(ctx, "", prompt)
	if err != nil {
		return "", fmt.Errorf("generating blog: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// ExtractTitle returns the first H1 heading in md, or fallback if none.
func ExtractTitle(md, fallback string) string {
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return fallback
}

// EnsureFrontmatter prepends YAML frontmatter unless md already opens with a
// frontmatter block.
func EnsureFrontmatter(md, title, date string) string {
	if strings.HasPrefix(md, "---\n") {
		return md
	}
	return frontmatter(title, date) + md
}

// NormalizeAuthor strips author bylines the model sometimes invents near the
// top of the post.
func NormalizeAuthor(md string) string {
	lines := strings.Split(md, "\n")
	var out []string
	for i, line := range lines {
		trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), ">"))
		if i < 10 && (strings.HasPrefix(trimmed, "Author:") || strings.HasPrefix(trimmed, "By ")) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// AppendReferenceSection adds a references section linking back to the
// weekly digest the post was built from.
func AppendReferenceSection(md, weeklyTitle, relLink string) string {
	return strings.TrimRight(md, "\n") + fmt.Sprintf("\n\n---\n\n## References\n\n- [%s](%s)\n", weeklyTitle, relLink)
}

// BlogFilename resolves the blog output filename for now.
func BlogFilename(cfg *config.Config, now time.Time) string {
	return expandTemplate(cfg.Output.BlogFilenameTemplate, now)
}

// WeeklyLink computes the relative Markdown link from the blog directory to
// the digest file.
func WeeklyLink(digestPath, blogDir string) string {
	rel, err := filepath.Rel(blogDir, digestPath)
	if err != nil {
		return digestPath
	}
	return filepath.ToSlash(rel)
}

// WriteAtomic writes content to path via a temp file and rename so readers
// never observe a partial document.
func WriteAtomic(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Package render formats classified items into the weekly Markdown digest
// and derives output filenames from the configured templates.
package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"newsdigest/internal/config"
	"newsdigest/internal/database"
)

var impactRank = map[string]int{
	"High":   0,
	"Medium": 1,
	"Low":    2,
}

// Weekly renders the digest document for the given items. Items are grouped
// and ordered per the output configuration; items whose category is not in
// the taxonomy are omitted from grouped output.
func Weekly(items []*database.Item, cfg *config.Config, now time.Time) string {
	title := DigestTitle(now)
	lines := []string{
		"# " + title,
		fmt.Sprintf("Generated: %s (%s)", now.Format("2006-01-02 15:04"), now.Location()),
		"",
	}

	if cfg.Output.Grouping == "flat" {
		for _, item := range sortItems(items, cfg.Output.AppendOrder, now.Location()) {
			renderItem(&lines, item, now.Location())
		}
	} else {
		grouped := make(map[string][]*database.Item)
		for _, item := range items {
			if item.PrimaryCategory == nil {
				continue
			}
			grouped[*item.PrimaryCategory] = append(grouped[*item.PrimaryCategory], item)
		}

		if cfg.Output.TOC() {
			for _, cat := range cfg.Taxonomy.Categories {
				lines = append(lines, fmt.Sprintf("- [%s](#%s)", categoryName(cat), anchor(categoryName(cat))))
			}
			lines = append(lines, "")
		}

		for _, cat := range cfg.Taxonomy.Categories {
			lines = append(lines, "## "+categoryName(cat))
			for _, item := range sortItems(grouped[cat.ID], cfg.Output.AppendOrder, now.Location()) {
				renderItem(&lines, item, now.Location())
			}
		}
	}

	body := strings.Join(lines, "\n")
	if cfg.Output.IncludeFrontmatter {
		return frontmatter(title, now.Format("2006-01-02")) + body
	}
	return body
}

func renderItem(lines *[]string, item *database.Item, loc *time.Location) {
	title := item.Title
	if title == "" {
		title = "(Untitled)"
	}
	*lines = append(*lines,
		"### "+title,
		"- Source: "+deref(item.Source),
		"- Published: "+formatDatetime(deref(item.PublishedAt), loc),
		"- Collected: "+formatDatetime(item.CollectedAt, loc),
		"- Link: "+deref(item.URL),
		"",
		"**Summary**",
	)
	for _, bullet := range item.SummaryBullets {
		*lines = append(*lines, "- "+bullet)
	}
	*lines = append(*lines,
		"",
		"**Why it matters**",
		item.SoWhat,
		"",
		"**Tags**: "+strings.Join(item.Tags, " / "),
		"",
		"---",
		"",
	)
}

// sortItems orders by impact (High first, unknown last), then by published
// or collected time per the configured append order.
func sortItems(items []*database.Item, appendOrder string, loc *time.Location) []*database.Item {
	sorted := make([]*database.Item, len(items))
	copy(sorted, items)
	newestFirst := appendOrder == "newest_first"

	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := itemImpactRank(sorted[i]), itemImpactRank(sorted[j])
		if ri != rj {
			return ri < rj
		}
		ti, tj := itemTime(sorted[i]), itemTime(sorted[j])
		if newestFirst {
			return ti.After(tj)
		}
		return ti.Before(tj)
	})
	return sorted
}

func itemImpactRank(item *database.Item) int {
	if item.Impact == nil {
		return 3
	}
	if rank, ok := impactRank[*item.Impact]; ok {
		return rank
	}
	return 3
}

func itemTime(item *database.Item) time.Time {
	value := deref(item.PublishedAt)
	if value == "" {
		value = item.CollectedAt
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatDatetime(value string, loc *time.Location) string {
	if value == "" {
		return "Unknown"
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return t.In(loc).Format("2006-01-02 15:04")
}

func frontmatter(title, date string) string {
	return strings.Join([]string{
		"---",
		"title: " + title,
		"description:",
		"date: " + date,
		"scheduled: " + date,
		"tags:",
		"  - AI",
		"layout: layouts/post.njk",
		"---",
		"",
		"",
	}, "\n")
}

// Filename resolves the digest output filename for now. Single-file mode
// always writes the same file; weekly mode expands {year} and {week} in the
// configured template.
func Filename(cfg *config.Config, now time.Time) string {
	if cfg.Output.Mode == "single_file" {
		return "ai_news.md"
	}
	return expandTemplate(cfg.Output.FilenameTemplate, now)
}

func expandTemplate(template string, now time.Time) string {
	year, week := now.ISOWeek()
	out := strings.ReplaceAll(template, "{year}", fmt.Sprintf("%d", year))
	return strings.ReplaceAll(out, "{week}", fmt.Sprintf("%02d", week))
}

func categoryName(cat config.Category) string {
	if cat.Name != "" {
		return cat.Name
	}
	return cat.ID
}

func anchor(heading string) string {
	lower := strings.ToLower(heading)
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteByte('-')
		}
	}
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

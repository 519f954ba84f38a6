package classify

import (
	"fmt"
	"strings"

	"newsdigest/internal/config"
)

const systemPrompt = `You are a rigorous news editor and classifier. You must output strict JSON only: no extra text, no markdown, no code fences, no explanations.

Classification rules:
- Pick exactly one primary_category_id from the taxonomy's category ids.
- Choose the category of the article's main narrative; do not switch categories because a single word appears.
- The reason must restate, in your own words, the boundary from the chosen category's definition/include/exclude guidance.
- If information is thin, still pick the most plausible category and lower the confidence.`

const userPromptTemplate = `Generate a summary, primary category, tags, and impact rating for the article below. Write all prose in %s. Follow the output schema and field constraints exactly.

[Article]
title: %s
source: %s
url: %s
published_at: %s
content:
%s

[Taxonomy]
%s

[Output]
Respond with ONLY this JSON:
{
    "summary_bullets": ["5-10 bullets; each one short paragraph with concrete facts, numbers, actors, actions"],
    "so_what": "1-2 sentences on why this matters",
    "primary_category_id": "must be a taxonomy id",
    "tags": ["3-8 short tags, no # prefix"],
    "impact": "High | Medium | Low",
    "confidence": 0.0,
    "reason": "1-2 sentences citing the definition/include/exclude boundary"
}`

func buildUserPrompt(item ItemMeta, content string, taxonomy *config.Taxonomy, language string) string {
	if language == "" {
		language = "English"
	}
	return fmt.Sprintf(userPromptTemplate,
		language, item.Title, item.Source, item.URL, item.PublishedAt, content,
		formatTaxonomy(taxonomy))
}

func formatTaxonomy(taxonomy *config.Taxonomy) string {
	var lines []string
	lines = append(lines, "default_category: "+taxonomy.DefaultCategory)
	for _, cat := range taxonomy.Categories {
		lines = append(lines, fmt.Sprintf("- id: %s", cat.ID))
		lines = append(lines, fmt.Sprintf("  name: %s", cat.Name))
		if len(cat.Keywords) > 0 {
			lines = append(lines, fmt.Sprintf("  keywords: %s", strings.Join(cat.Keywords, ", ")))
		}
		if cat.Definition != "" {
			lines = append(lines, fmt.Sprintf("  definition: %s", cat.Definition))
		}
		if cat.Include != "" {
			lines = append(lines, fmt.Sprintf("  include: %s", cat.Include))
		}
		if cat.Exclude != "" {
			lines = append(lines, fmt.Sprintf("  exclude: %s", cat.Exclude))
		}
	}
	return strings.Join(lines, "\n")
}

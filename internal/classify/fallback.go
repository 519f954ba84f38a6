package classify

import (
	"strings"

	"newsdigest/internal/config"
	"newsdigest/internal/extract"
)

// Fixed output for keyword-degraded results. The schema requires five
// bullets, so five are supplied.
var fallbackBullets = []string{
	"Keyword fallback: automatic summary generation failed for this item.",
	"The category was assigned from keyword matches, not full analysis.",
	"See the original article for details.",
	"Structured summary information may be missing for this item.",
	"Visit the source link for the complete picture.",
}

const (
	fallbackSoWhat     = "Needs manual review."
	fallbackReason     = "LLM classification failed; keyword fallback applied."
	fallbackConfidence = 0.3
)

// fallbackClassify scores taxonomy categories by keyword matches and always
// produces a schema-valid result. It is the unconditional safety net: given
// a non-empty taxonomy it cannot fail.
func fallbackClassify(item ItemMeta, content string, taxonomy *config.Taxonomy) Result {
	head := content
	if len(head) > 2000 {
		head = head[:2000]
	}
	window := extract.Normalize(item.Title + " " + item.Summary + " " + head)

	var best *config.Category
	bestScore := -1
	var allTitleHits, allBodyHits []string

	for i := range taxonomy.Categories {
		cat := &taxonomy.Categories[i]
		bodyScore, bodyHits := keywordScore(window, cat.Keywords)
		titleScore, titleHits := keywordScore(item.Title, cat.Keywords)
		score := bodyScore + titleScore*2
		// Hits accumulate across every category; only the winner decides
		// the category id.
		allTitleHits = append(allTitleHits, titleHits...)
		allBodyHits = append(allBodyHits, bodyHits...)
		if score > bestScore {
			bestScore = score
			best = cat
		}
	}

	if best == nil || bestScore <= 0 {
		best = taxonomy.Category(taxonomy.DefaultCategory)
	}

	// Title hits lead the tag list; dedup keeps first occurrence.
	tags := dedupe(append(allTitleHits, allBodyHits...))
	if len(tags) > 5 {
		tags = tags[:5]
	}
	if len(tags) < 3 {
		tags = append(tags, categoryDisplayName(best))
	}
	tags = dropEmpty(tags)
	if len(tags) > 5 {
		tags = tags[:5]
	}

	return Result{
		SummaryBullets: fallbackBullets,
		SoWhat:         fallbackSoWhat,
		CategoryID:     best.ID,
		Tags:           tags,
		Impact:         ImpactMedium,
		Confidence:     fallbackConfidence,
		Reason:         fallbackReason,
	}
}

// keywordScore counts keyword occurrences in text (case-insensitive) and
// collects each matching keyword once, in keyword-list order.
func keywordScore(text string, keywords []string) (int, []string) {
	lower := strings.ToLower(text)
	score := 0
	var hits []string
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		n := strings.Count(lower, strings.ToLower(kw))
		if n > 0 {
			score += n
			hits = append(hits, kw)
		}
	}
	return score, hits
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func dropEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func categoryDisplayName(cat *config.Category) string {
	if cat.Name != "" {
		return cat.Name
	}
	return cat.ID
}

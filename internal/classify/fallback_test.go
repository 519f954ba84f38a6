package classify

import (
	"strings"
	"testing"

	"newsdigest/internal/config"
)

func testTaxonomy() *config.Taxonomy {
	return &config.Taxonomy{
		DefaultCategory: "products_apps",
		Categories: []config.Category{
			{ID: "products_apps", Name: "Products & Apps", Keywords: []string{"launch", "release"}},
			{ID: "research", Name: "Research", Keywords: []string{"paper", "study"}},
		},
	}
}

func checkSchemaValid(t *testing.T, taxonomy *config.Taxonomy, r Result) {
	t.Helper()
	if n := len(r.SummaryBullets); n < 5 || n > 10 {
		t.Errorf("expected 5-10 bullets, got %d", n)
	}
	if r.SoWhat == "" {
		t.Error("missing so_what")
	}
	if taxonomy.Category(r.CategoryID) == nil {
		t.Errorf("category %q not in taxonomy", r.CategoryID)
	}
	if n := len(r.Tags); n < 1 || n > 5 {
		t.Errorf("expected 1-5 tags from fallback, got %d (%v)", n, r.Tags)
	}
	if r.Impact != ImpactMedium {
		t.Errorf("fallback impact must be Medium, got %q", r.Impact)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		t.Errorf("confidence %v outside [0,1]", r.Confidence)
	}
	if r.Reason == "" {
		t.Error("missing reason")
	}
}

func TestFallbackWorkedExample(t *testing.T) {
	// Title "New paper on launch", empty content: both categories score 3
	// (body 1 + title 1x2); the tie goes to the first-evaluated category.
	taxonomy := testTaxonomy()
	item := ItemMeta{Title: "New paper on launch"}

	r := fallbackClassify(item, "", taxonomy)
	checkSchemaValid(t, taxonomy, r)

	if r.CategoryID != "products_apps" {
		t.Errorf("expected tie to keep first category, got %q", r.CategoryID)
	}
	want := []string{"launch", "paper", "Products & Apps"}
	if len(r.Tags) != len(want) {
		t.Fatalf("expected tags %v, got %v", want, r.Tags)
	}
	for i, w := range want {
		if r.Tags[i] != w {
			t.Errorf("tag[%d] = %q, want %q (all: %v)", i, r.Tags[i], w, r.Tags)
		}
	}
}

func TestFallbackTitleWeightsDouble(t *testing.T) {
	// products_apps matches once in the title (score 1 body + 2 title = 3),
	// research matches twice in body only (score 2). products_apps wins.
	taxonomy := testTaxonomy()
	item := ItemMeta{Title: "The launch"}
	content := "A paper describes the study in detail."

	r := fallbackClassify(item, content, taxonomy)
	if r.CategoryID != "products_apps" {
		t.Errorf("expected title weighting to win, got %q", r.CategoryID)
	}
}

func TestFallbackTieKeepsFirstCategory(t *testing.T) {
	// A scores 2 via title, B scores 2 via two body keywords. A is evaluated
	// first and must keep the tie.
	taxonomy := &config.Taxonomy{
		DefaultCategory: "a",
		Categories: []config.Category{
			{ID: "a", Name: "A", Keywords: []string{"alpha"}},
			{ID: "b", Name: "B", Keywords: []string{"beta", "gamma"}},
		},
	}
	item := ItemMeta{Title: "alpha"}
	content := "beta gamma"

	r := fallbackClassify(item, content, taxonomy)
	// a: body 1 ("alpha" in window via title) + title 1*2 = 3
	// b: body 2 = 2
	if r.CategoryID != "a" {
		t.Errorf("expected category a, got %q", r.CategoryID)
	}

	// Force an exact tie: both score 2 from body-only matches.
	item = ItemMeta{}
	content = "beta gamma alpha alpha"
	// a: 2 occurrences of alpha; b: 2 (beta + gamma)
	r = fallbackClassify(item, content, taxonomy)
	if r.CategoryID != "a" {
		t.Errorf("expected first-evaluated category to keep the tie, got %q", r.CategoryID)
	}
}

func TestFallbackDefaultCategory(t *testing.T) {
	taxonomy := testTaxonomy()
	item := ItemMeta{Title: "Nothing relevant here"}

	r := fallbackClassify(item, "no keywords at all", taxonomy)
	if r.CategoryID != taxonomy.DefaultCategory {
		t.Errorf("expected default category, got %q", r.CategoryID)
	}
	// No hits: tags are the padded category name only.
	if len(r.Tags) != 1 || r.Tags[0] != "Products & Apps" {
		t.Errorf("expected single category-name tag, got %v", r.Tags)
	}
}

func TestFallbackTagOrderTitleBeforeBody(t *testing.T) {
	taxonomy := &config.Taxonomy{
		DefaultCategory: "c",
		Categories: []config.Category{
			{ID: "c", Name: "C", Keywords: []string{"body1", "titlekw", "body2"}},
		},
	}
	item := ItemMeta{Title: "about titlekw only"}
	content := "body1 and body2 appear here"

	r := fallbackClassify(item, content, taxonomy)
	if len(r.Tags) != 3 {
		t.Fatalf("expected 3 tags, got %v", r.Tags)
	}
	// Title hit leads, body hits follow in keyword order. "titlekw" also hits
	// in the body window (title is part of it) but dedup keeps the first.
	want := []string{"titlekw", "body1", "body2"}
	for i, w := range want {
		if r.Tags[i] != w {
			t.Errorf("tag[%d] = %q, want %q (all: %v)", i, r.Tags[i], w, r.Tags)
		}
	}
}

func TestFallbackTagCap(t *testing.T) {
	taxonomy := &config.Taxonomy{
		DefaultCategory: "c",
		Categories: []config.Category{
			{ID: "c", Name: "C", Keywords: []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7"}},
		},
	}
	r := fallbackClassify(ItemMeta{}, "k1 k2 k3 k4 k5 k6 k7", taxonomy)
	if len(r.Tags) != 5 {
		t.Errorf("expected tags capped at 5, got %v", r.Tags)
	}
}

func TestFallbackContentWindow(t *testing.T) {
	// Keyword beyond the first 2000 content chars must not count.
	taxonomy := testTaxonomy()
	content := strings.Repeat("x ", 1100) + "launch"
	r := fallbackClassify(ItemMeta{Title: "irrelevant"}, content, taxonomy)
	if r.CategoryID != taxonomy.DefaultCategory {
		t.Errorf("expected default (keyword outside window), got %q", r.CategoryID)
	}

	// Inside the window it counts.
	r = fallbackClassify(ItemMeta{Title: "irrelevant"}, "launch "+content, taxonomy)
	if r.CategoryID != "products_apps" {
		t.Errorf("expected products_apps (keyword inside window), got %q", r.CategoryID)
	}
}

func TestFallbackNeverFails(t *testing.T) {
	taxonomy := testTaxonomy()
	inputs := []struct {
		item    ItemMeta
		content string
	}{
		{ItemMeta{}, ""},
		{ItemMeta{Title: "launch launch launch"}, strings.Repeat("paper ", 500)},
		{ItemMeta{Title: strings.Repeat("z", 10000)}, strings.Repeat("y", 10000)},
		{ItemMeta{Summary: "release paper study launch"}, "study"},
	}
	for i, in := range inputs {
		r := fallbackClassify(in.item, in.content, taxonomy)
		checkSchemaValid(t, taxonomy, r)
		_ = i
	}
}

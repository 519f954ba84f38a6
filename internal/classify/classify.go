// Package classify turns a collected item into summary bullets, a taxonomy
// category, tags, and an impact rating. The primary strategy is an LLM call
// with a strict response schema; a deterministic keyword scorer is the
// fallback.
package classify

import (
	"context"
	"fmt"
	"log"
	"time"

	"newsdigest/internal/config"
	"newsdigest/internal/llm"
)

// Mode selects the classification strategy.
type Mode string

const (
	ModeLLMWithFallback Mode = "llm_with_keyword_fallback"
	ModeLLMOnly         Mode = "llm_only"
	ModeKeywordOnly     Mode = "keyword_only"
)

// Impact levels.
const (
	ImpactHigh   = "High"
	ImpactMedium = "Medium"
	ImpactLow    = "Low"
)

// ItemMeta is the item metadata handed to classification.
type ItemMeta struct {
	Title       string
	Source      string
	URL         string
	PublishedAt string
	Summary     string
}

// Result is a validated classification outcome.
type Result struct {
	SummaryBullets []string `json:"summary_bullets"`
	SoWhat         string   `json:"so_what"`
	CategoryID     string   `json:"primary_category_id"`
	Tags           []string `json:"tags"`
	Impact         string   `json:"impact"`
	Confidence     float64  `json:"confidence"`
	Reason         string   `json:"reason"`
}

// Classifier classifies items against a taxonomy.
type Classifier struct {
	provider   llm.Provider
	taxonomy   *config.Taxonomy
	mode       Mode
	language   string
	maxChars   int
	retries    int
	retryDelay time.Duration
}

// New creates a classifier. The provider may be nil only in keyword-only
// mode.
func New(provider llm.Provider, cfg *config.Config) *Classifier {
	return &Classifier{
		provider:   provider,
		taxonomy:   &cfg.Taxonomy,
		mode:       Mode(cfg.Classification.Mode),
		language:   cfg.Summarizer.Language,
		maxChars:   cfg.Summarizer.MaxCharsInput,
		retries:    cfg.Summarizer.Retries,
		retryDelay: time.Second,
	}
}

// Classify produces a classification result for the item. In keyword-only
// mode it never fails. Otherwise transport failures after retries are
// terminal for the item; an unparsable or schema-invalid response degrades
// to the keyword fallback unless the mode is llm_only.
func (c *Classifier) Classify(ctx context.Context, item ItemMeta, content string) (Result, error) {
	if c.mode == ModeKeywordOnly {
		return fallbackClassify(item, content, c.taxonomy), nil
	}

	if c.provider == nil {
		return Result{}, fmt.Errorf("no LLM provider configured for mode %q", c.mode)
	}

	truncated := content
	if len(truncated) > c.maxChars {
		truncated = truncated[:c.maxChars]
	}

	text, err := llm.CompleteWithRetry(ctx, c.provider, systemPrompt,
		buildUserPrompt(item, truncated, c.taxonomy, c.language), c.retries, c.retryDelay)
	if err != nil {
		return Result{}, fmt.Errorf("classification call failed: %w", err)
	}

	var result Result
	if decodeErr := llm.DecodeJSONResponse(text, &result); decodeErr != nil {
		return c.degrade(item, content, fmt.Errorf("parsing classification response: %w", decodeErr))
	}
	if validErr := c.validate(&result); validErr != nil {
		return c.degrade(item, content, fmt.Errorf("invalid classification response: %w", validErr))
	}

	return result, nil
}

func (c *Classifier) degrade(item ItemMeta, content string, cause error) (Result, error) {
	if c.mode == ModeLLMOnly {
		return Result{}, cause
	}
	log.Printf("Degrading to keyword fallback: %v", cause)
	return fallbackClassify(item, content, c.taxonomy), nil
}

// validate checks the fixed response schema.
func (c *Classifier) validate(r *Result) error {
	if n := len(r.SummaryBullets); n < 5 || n > 10 {
		return fmt.Errorf("expected 5-10 summary bullets, got %d", n)
	}
	for _, b := range r.SummaryBullets {
		if b == "" {
			return fmt.Errorf("empty summary bullet")
		}
	}
	if r.SoWhat == "" {
		return fmt.Errorf("missing so_what")
	}
	if c.taxonomy.Category(r.CategoryID) == nil {
		return fmt.Errorf("category %q not in taxonomy", r.CategoryID)
	}
	if n := len(r.Tags); n < 3 || n > 8 {
		return fmt.Errorf("expected 3-8 tags, got %d", n)
	}
	switch r.Impact {
	case ImpactHigh, ImpactMedium, ImpactLow:
	default:
		return fmt.Errorf("impact %q not in High/Medium/Low", r.Impact)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", r.Confidence)
	}
	if r.Reason == "" {
		return fmt.Errorf("missing reason")
	}
	return nil
}

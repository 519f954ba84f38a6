// Package pipeline runs the ingest cycle: fetch entries from every enabled
// source, skip already-seen items, extract article content, classify what
// remains, and write the weekly digest. Failed items are persisted as they
// fail; successfully processed items are batched and persisted after the
// digest is written.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"newsdigest/internal/classify"
	"newsdigest/internal/config"
	"newsdigest/internal/database"
	"newsdigest/internal/extract"
	"newsdigest/internal/llm"
	"newsdigest/internal/render"
	"newsdigest/internal/source"
)

// Result summarizes a pipeline run.
type Result struct {
	Sources           int
	SourceFailures    int
	Entries           int
	SkippedNoKey      int
	SkippedDuplicates int
	Processed         int
	Failed            int
	DigestPath        string
	BlogPath          string
}

// Pipeline wires the stages of a run together.
type Pipeline struct {
	cfg        *config.Config
	db         *database.DB
	provider   llm.Provider
	extractor  *extract.Extractor
	classifier *classify.Classifier
	sources    []sourceBinding
	now        func() time.Time
}

// sourceBinding pairs a source with whether its items carry a feed id.
// Web sources get a health record in the feeds table but their items are
// not attributed to a feed row.
type sourceBinding struct {
	src    source.Source
	isFeed bool
}

// New builds a pipeline from configuration. The provider may be nil in
// keyword-only mode.
func New(cfg *config.Config, db *database.DB, provider llm.Provider) *Pipeline {
	timeout := time.Duration(cfg.Summarizer.TimeoutSec) * time.Second
	p := &Pipeline{
		cfg:        cfg,
		db:         db,
		provider:   provider,
		extractor:  extract.New(timeout, cfg.Summarizer.MaxCharsInput),
		classifier: classify.New(provider, cfg),
		now:        time.Now,
	}
	for _, feed := range cfg.Feeds {
		if !feed.IsEnabled() {
			continue
		}
		p.sources = append(p.sources, sourceBinding{src: source.NewFeedSource(feed, timeout), isFeed: true})
	}
	for _, ws := range cfg.WebSources {
		if !ws.IsEnabled() {
			continue
		}
		p.sources = append(p.sources, sourceBinding{src: source.NewWebSource(ws, timeout)})
	}
	return p
}

// Run executes one full cycle. Per-item failures are isolated; source fetch
// failures are recorded and skipped. Digest or blog write failures abort the
// run before the processed batch is persisted.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	now := p.now().In(p.cfg.Location())
	result := &Result{}
	var batch []*database.Item

	for _, binding := range p.sources {
		src := binding.src
		result.Sources++
		feedID, err := p.db.UpsertFeed(src.Name(), src.URL(), src.Enabled())
		if err != nil {
			return nil, fmt.Errorf("recording source %s: %w", src.Name(), err)
		}

		entries, err := src.Fetch(ctx)
		if err != nil {
			log.Printf("Source fetch failed for %s: %v", src.URL(), err)
			result.SourceFailures++
			if markErr := p.db.MarkFeedFailure(feedID, err.Error()); markErr != nil {
				return nil, markErr
			}
			continue
		}
		if err := p.db.MarkFeedSuccess(feedID, now.Format(time.RFC3339)); err != nil {
			return nil, err
		}
		log.Printf("Fetched %d entries from %s", len(entries), src.URL())
		result.Entries += len(entries)

		var itemFeedID *int64
		if binding.isFeed {
			itemFeedID = &feedID
		}

		for _, entry := range entries {
			key := p.dedupKey(entry)
			if key == "" {
				result.SkippedNoKey++
				continue
			}
			exists, err := p.db.ItemExists(key)
			if err != nil {
				return nil, fmt.Errorf("checking dedup key: %w", err)
			}
			if exists {
				result.SkippedDuplicates++
				continue
			}

			item := p.processEntry(ctx, entry, key, src.Name(), itemFeedID, now)
			if item.Status == database.StatusFailed {
				result.Failed++
				if err := p.db.InsertItem(item); err != nil && !errors.Is(err, database.ErrDuplicate) {
					return nil, fmt.Errorf("persisting failed item: %w", err)
				}
				continue
			}
			result.Processed++
			batch = append(batch, item)
		}
	}

	digestPath, digestMD, err := p.writeDigest(batch, now)
	if err != nil {
		return nil, err
	}
	result.DigestPath = digestPath

	if p.cfg.Output.WeeklyBlog() {
		blogPath, err := p.writeBlog(ctx, digestPath, digestMD, now)
		if err != nil {
			return nil, err
		}
		result.BlogPath = blogPath
	}

	for _, item := range batch {
		if err := p.db.InsertItem(item); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				log.Printf("Duplicate within run, skipping: %s", item.DedupKey)
				continue
			}
			return nil, fmt.Errorf("persisting item: %w", err)
		}
	}

	return result, nil
}

// processEntry extracts and classifies one new entry. It always returns an
// item ready to persist: StatusProcessed with classification fields, or
// StatusFailed with the error recorded.
func (p *Pipeline) processEntry(ctx context.Context, entry source.Entry, key, sourceName string, feedID *int64, now time.Time) *database.Item {
	content, contentStatus := p.extractor.Extract(ctx, entry.URL, entry.Summary)

	item := &database.Item{
		FeedID:        feedID,
		GUID:          optional(entry.GUID),
		URL:           optional(entry.URL),
		DedupKey:      key,
		Title:         entry.Title,
		Author:        optional(entry.Author),
		PublishedAt:   optional(entry.PublishedAt),
		CollectedAt:   now.Format(time.RFC3339),
		Source:        optional(sourceName),
		ContentStatus: contentStatus,
	}

	meta := classify.ItemMeta{
		Title:       entry.Title,
		Source:      sourceName,
		URL:         entry.URL,
		PublishedAt: entry.PublishedAt,
		Summary:     entry.Summary,
	}
	classification, err := p.classifier.Classify(ctx, meta, content)
	if err != nil {
		log.Printf("Item processing failed for %s: %v", entry.URL, err)
		item.Status = database.StatusFailed
		item.Error = optional(err.Error())
		return item
	}

	item.Status = database.StatusProcessed
	item.SummaryBullets = classification.SummaryBullets
	item.SoWhat = classification.SoWhat
	item.PrimaryCategory = &classification.CategoryID
	item.Tags = classification.Tags
	item.Impact = &classification.Impact
	item.Confidence = &classification.Confidence
	item.Reason = &classification.Reason
	return item
}

// writeDigest renders this ISO week's digest from already-stored items plus
// the in-memory batch and writes it atomically.
func (p *Pipeline) writeDigest(batch []*database.Item, now time.Time) (string, string, error) {
	start, end := render.WeekBounds(now)
	stored, err := p.db.ListItemsBetween(start.Format(time.RFC3339), end.Format(time.RFC3339))
	if err != nil {
		return "", "", fmt.Errorf("loading week items: %w", err)
	}

	all := make([]*database.Item, 0, len(stored)+len(batch))
	for i := range stored {
		all = append(all, &stored[i])
	}
	all = append(all, batch...)

	md := render.Weekly(all, p.cfg, now)
	path := filepath.Join(p.cfg.Output.Path, render.Filename(p.cfg, now))
	if err := render.WriteAtomic(path, md); err != nil {
		return "", "", fmt.Errorf("writing digest: %w", err)
	}
	log.Printf("Digest written: %s (%d items)", path, len(all))
	return path, md, nil
}

func (p *Pipeline) writeBlog(ctx context.Context, digestPath, digestMD string, now time.Time) (string, error) {
	md, err := render.GenerateBlog(ctx, p.provider, digestMD, p.cfg)
	if err != nil {
		return "", err
	}

	blogDir := p.cfg.Output.BlogPath
	weeklyTitle := render.DigestTitle(now)
	md = render.NormalizeAuthor(md)
	title := render.ExtractTitle(md, weeklyTitle)
	md = render.EnsureFrontmatter(md, title, now.Format("2006-01-02"))
	md = render.AppendReferenceSection(md, weeklyTitle, trimMarkdownExt(render.WeeklyLink(digestPath, blogDir)))

	path := filepath.Join(blogDir, render.BlogFilename(p.cfg, now))
	if err := render.WriteAtomic(path, md); err != nil {
		return "", fmt.Errorf("writing blog: %w", err)
	}
	log.Printf("Blog written: %s", path)
	return path, nil
}

// dedupKey computes an entry's identity per the configured mode.
func (p *Pipeline) dedupKey(entry source.Entry) string {
	switch p.cfg.Dedup.Key {
	case "url":
		return entry.URL
	case "guid":
		if entry.GUID != "" {
			return entry.GUID
		}
		return entry.URL
	default: // url_or_guid
		if entry.GUID != "" {
			return entry.GUID
		}
		return entry.URL
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func trimMarkdownExt(link string) string {
	return strings.TrimSuffix(link, ".md")
}

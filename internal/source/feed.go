package source

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"newsdigest/internal/config"
)

// FeedSource fetches entries from an RSS/Atom feed.
type FeedSource struct {
	name    string
	url     string
	enabled bool
	parser  *gofeed.Parser
}

// NewFeedSource creates a feed source from configuration.
func NewFeedSource(cfg config.Feed, timeout time.Duration) *FeedSource {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "newsdigest/1.0"
	return &FeedSource{
		name:    cfg.Name,
		url:     cfg.URL,
		enabled: cfg.IsEnabled(),
		parser:  parser,
	}
}

func (f *FeedSource) Name() string  { return f.name }
func (f *FeedSource) URL() string   { return f.url }
func (f *FeedSource) Enabled() bool { return f.enabled }

// Fetch parses the feed and returns its entries in feed order.
func (f *FeedSource) Fetch(ctx context.Context) ([]Entry, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, parseFeedItem(item))
	}
	return entries, nil
}

func parseFeedItem(item *gofeed.Item) Entry {
	e := Entry{
		GUID:  item.GUID,
		URL:   item.Link,
		Title: strings.TrimSpace(item.Title),
	}

	if item.Author != nil && item.Author.Name != "" {
		e.Author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		e.Author = item.Authors[0].Name
	}

	switch {
	case item.PublishedParsed != nil:
		e.PublishedAt = item.PublishedParsed.Format("2006-01-02T15:04:05Z07:00")
	case item.UpdatedParsed != nil:
		e.PublishedAt = item.UpdatedParsed.Format("2006-01-02T15:04:05Z07:00")
	case item.Published != "":
		e.PublishedAt = parseTime(item.Published)
	}

	if item.Description != "" {
		e.Summary = stripHTML(item.Description)
	} else if item.Content != "" {
		e.Summary = stripHTML(item.Content)
	}

	return e
}

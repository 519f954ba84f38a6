package database

// Item is a persisted news item, keyed by its dedup key. An item is either
// fully classified (status "processed") or fully failed (status "failed",
// classification fields nil, Error set). No partial state is stored.
type Item struct {
	ID            int64
	FeedID        *int64
	GUID          *string
	URL           *string
	DedupKey      string
	Title         string
	Author        *string
	PublishedAt   *string
	CollectedAt   string
	Source        *string
	ContentStatus string // "full" or "rss_only"

	SummaryBullets  []string
	SoWhat          string
	PrimaryCategory *string
	Tags            []string
	Impact          *string
	Confidence      *float64
	Reason          *string

	Status string // "processed" or "failed"
	Error  *string
}

// Processed reports whether the item carries classification output.
func (i *Item) Processed() bool {
	return i.Status == StatusProcessed
}

const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"

	ContentFull    = "full"
	ContentRSSOnly = "rss_only"
)

// Feed is a source health record, mutated after each fetch attempt.
type Feed struct {
	ID          int64
	Name        string
	URL         string
	Enabled     bool
	LastFetchAt *string
	FailCount   int
	LastError   *string
}

package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicate is returned by InsertItem when the dedup key is already taken.
// The orchestrator checks ItemExists first; the constraint is the backstop.
var ErrDuplicate = errors.New("item with this dedup key already exists")

type summaryPayload struct {
	Bullets []string `json:"bullets"`
	SoWhat  string   `json:"so_what"`
}

// ItemExists reports whether an item with the given dedup key is persisted.
func (db *DB) ItemExists(dedupKey string) (bool, error) {
	var one int
	err := db.conn.QueryRow("SELECT 1 FROM items WHERE dedup_key = ?", dedupKey).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertItem persists a fully-formed item, processed or failed.
func (db *DB) InsertItem(item *Item) error {
	if item.DedupKey == "" {
		return fmt.Errorf("refusing to insert item with empty dedup key")
	}

	var summaryJSON, tagsJSON *string
	if item.Status == StatusProcessed {
		data, err := json.Marshal(summaryPayload{Bullets: item.SummaryBullets, SoWhat: item.SoWhat})
		if err != nil {
			return fmt.Errorf("marshaling summary: %w", err)
		}
		s := string(data)
		summaryJSON = &s

		data, err = json.Marshal(item.Tags)
		if err != nil {
			return fmt.Errorf("marshaling tags: %w", err)
		}
		t := string(data)
		tagsJSON = &t
	}

	result, err := db.conn.Exec(
		`INSERT INTO items (
			feed_id, guid, url, dedup_key, title, author, published_at, collected_at,
			source, content_status, summary_json, primary_category, tags_json, impact,
			confidence, reason, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.FeedID, item.GUID, item.URL, item.DedupKey, item.Title, item.Author,
		item.PublishedAt, item.CollectedAt, item.Source, item.ContentStatus,
		summaryJSON, item.PrimaryCategory, tagsJSON, item.Impact,
		item.Confidence, item.Reason, item.Status, item.Error,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicate
		}
		return err
	}

	item.ID, _ = result.LastInsertId()
	return nil
}

// ListItemsBetween returns processed items with collected_at in [start, end),
// in insertion order. Presentation sorting is the renderer's job.
func (db *DB) ListItemsBetween(startISO, endISO string) ([]Item, error) {
	rows, err := db.conn.Query(
		`SELECT id, feed_id, guid, url, dedup_key, title, author, published_at,
			collected_at, source, content_status, summary_json, primary_category,
			tags_json, impact, confidence, reason, status, error
		FROM items
		WHERE collected_at >= ? AND collected_at < ? AND status = 'processed'
		ORDER BY id`,
		startISO, endISO,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// GetItemByKey returns the item with the given dedup key, or nil.
func (db *DB) GetItemByKey(dedupKey string) (*Item, error) {
	rows, err := db.conn.Query(
		`SELECT id, feed_id, guid, url, dedup_key, title, author, published_at,
			collected_at, source, content_status, summary_json, primary_category,
			tags_json, impact, confidence, reason, status, error
		FROM items WHERE dedup_key = ?`, dedupKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var it Item
		var summaryJSON, tagsJSON *string
		if err := rows.Scan(&it.ID, &it.FeedID, &it.GUID, &it.URL, &it.DedupKey,
			&it.Title, &it.Author, &it.PublishedAt, &it.CollectedAt, &it.Source,
			&it.ContentStatus, &summaryJSON, &it.PrimaryCategory, &tagsJSON,
			&it.Impact, &it.Confidence, &it.Reason, &it.Status, &it.Error); err != nil {
			return nil, err
		}
		if summaryJSON != nil {
			var payload summaryPayload
			if err := json.Unmarshal([]byte(*summaryJSON), &payload); err == nil {
				it.SummaryBullets = payload.Bullets
				it.SoWhat = payload.SoWhat
			}
		}
		if tagsJSON != nil {
			json.Unmarshal([]byte(*tagsJSON), &it.Tags)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

package database

import "database/sql"

// UpsertFeed registers a source health record, updating name and enabled
// state if the URL is already known. Returns the row ID.
func (db *DB) UpsertFeed(name, url string, enabled bool) (int64, error) {
	en := 0
	if enabled {
		en = 1
	}
	if _, err := db.conn.Exec(
		"INSERT OR IGNORE INTO feeds (name, url, enabled, fail_count) VALUES (?, ?, ?, 0)",
		name, url, en,
	); err != nil {
		return 0, err
	}
	if _, err := db.conn.Exec(
		"UPDATE feeds SET name = ?, enabled = ? WHERE url = ?",
		name, en, url,
	); err != nil {
		return 0, err
	}

	var id int64
	if err := db.conn.QueryRow("SELECT id FROM feeds WHERE url = ?", url).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// MarkFeedSuccess records a successful fetch and clears the last error.
func (db *DB) MarkFeedSuccess(feedID int64, fetchedAt string) error {
	_, err := db.conn.Exec(
		"UPDATE feeds SET last_fetch_at = ?, last_error = NULL WHERE id = ?",
		fetchedAt, feedID,
	)
	return err
}

// MarkFeedFailure increments the failure count and overwrites the last error.
func (db *DB) MarkFeedFailure(feedID int64, errText string) error {
	_, err := db.conn.Exec(
		"UPDATE feeds SET fail_count = COALESCE(fail_count, 0) + 1, last_error = ? WHERE id = ?",
		errText, feedID,
	)
	return err
}

// ListFeeds returns all registered source health records.
func (db *DB) ListFeeds() ([]Feed, error) {
	rows, err := db.conn.Query(
		"SELECT id, name, url, enabled, last_fetch_at, fail_count, last_error FROM feeds ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, *f)
	}
	return feeds, rows.Err()
}

// GetFeedByURL returns the health record for a source URL, or nil.
func (db *DB) GetFeedByURL(url string) (*Feed, error) {
	rows, err := db.conn.Query(
		"SELECT id, name, url, enabled, last_fetch_at, fail_count, last_error FROM feeds WHERE url = ?",
		url,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanFeed(rows)
}

func scanFeed(rows *sql.Rows) (*Feed, error) {
	var f Feed
	var enabled int
	if err := rows.Scan(&f.ID, &f.Name, &f.URL, &enabled, &f.LastFetchAt, &f.FailCount, &f.LastError); err != nil {
		return nil, err
	}
	f.Enabled = enabled != 0
	return &f, nil
}

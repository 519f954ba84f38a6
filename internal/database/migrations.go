package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS feeds (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    url TEXT UNIQUE NOT NULL,
    enabled INTEGER DEFAULT 1,
    last_fetch_at TEXT,
    fail_count INTEGER DEFAULT 0,
    last_error TEXT
);

CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    feed_id INTEGER REFERENCES feeds(id),
    guid TEXT,
    url TEXT,
    dedup_key TEXT UNIQUE NOT NULL,
    title TEXT,
    author TEXT,
    published_at TEXT,
    collected_at TEXT NOT NULL,
    source TEXT,
    content_status TEXT,
    summary_json TEXT,
    primary_category TEXT,
    tags_json TEXT,
    impact TEXT,
    confidence REAL,
    reason TEXT,
    status TEXT NOT NULL CHECK(status IN ('processed', 'failed')),
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_items_dedup_key ON items(dedup_key);
CREATE INDEX IF NOT EXISTS idx_items_collected_at ON items(collected_at);
CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}

// Package sqlite stores analyses in a local SQLite file via the pure-Go
// modernc.org/sqlite driver. Timestamps are stored as unix nanoseconds.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// single writer
	db.SetMaxOpenConns(1)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS remix_analyses (
  id          TEXT    PRIMARY KEY,
  tenant_id   TEXT    NOT NULL,
  media_url   TEXT    NOT NULL,
  object_key  TEXT    NOT NULL DEFAULT '',
  title       TEXT    NOT NULL,
  style       TEXT    NOT NULL,
  record_json TEXT    NOT NULL,
  strategy    TEXT    NOT NULL DEFAULT '',
  attempts    INTEGER NOT NULL DEFAULT 1,
  created_at  INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_remix_analyses_tenant_created ON remix_analyses (tenant_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS remix_analysis_failures (
  id               INTEGER PRIMARY KEY AUTOINCREMENT,
  tenant_id        TEXT    NOT NULL,
  analysis_id      TEXT    NOT NULL,
  media_url        TEXT    NOT NULL,
  attempt          INTEGER NOT NULL,
  kind             TEXT    NOT NULL,
  message          TEXT    NOT NULL,
  original_preview TEXT    NOT NULL,
  cleaned_preview  TEXT    NOT NULL,
  details_json     TEXT    NOT NULL,
  created_at       INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_remix_failures_analysis ON remix_analysis_failures (tenant_id, analysis_id)`,
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
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
  id          VARCHAR(64)  NOT NULL PRIMARY KEY,
  tenant_id   VARCHAR(64)  NOT NULL,
  media_url   TEXT         NOT NULL,
  object_key  VARCHAR(512) NOT NULL DEFAULT '',
  title       VARCHAR(512) NOT NULL,
  style       VARCHAR(512) NOT NULL,
  record_json JSON         NOT NULL,
  strategy    VARCHAR(32)  NOT NULL DEFAULT '',
  attempts    INT          NOT NULL DEFAULT 1,
  created_at  DATETIME(6)  NOT NULL,
  INDEX idx_remix_analyses_tenant_created (tenant_id, created_at)
) DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS remix_analysis_failures (
  id               BIGINT AUTO_INCREMENT PRIMARY KEY,
  tenant_id        VARCHAR(64) NOT NULL,
  analysis_id      VARCHAR(64) NOT NULL,
  media_url        TEXT        NOT NULL,
  attempt          INT         NOT NULL,
  kind             VARCHAR(64) NOT NULL,
  message          TEXT        NOT NULL,
  original_preview TEXT        NOT NULL,
  cleaned_preview  TEXT        NOT NULL,
  details_json     JSON        NOT NULL,
  created_at       DATETIME(6) NOT NULL,
  INDEX idx_remix_failures_analysis (tenant_id, analysis_id),
  INDEX idx_remix_failures_created (tenant_id, created_at)
) DEFAULT CHARSET=utf8mb4`,
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

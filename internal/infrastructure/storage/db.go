// Package storage implements the Postgres repositories.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

// psql builds statements with Postgres placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// batchRows caps multi-row statements so parameter counts stay bounded.
const batchRows = 100

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS sources (
    id                TEXT PRIMARY KEY,
    platform_kind     TEXT NOT NULL,
    origin_url        TEXT NOT NULL,
    feed_url          TEXT NOT NULL DEFAULT '',
    extraction_method TEXT NOT NULL DEFAULT '',
    active            BOOLEAN NOT NULL DEFAULT TRUE,
    last_checked_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS posts (
    link            TEXT PRIMARY KEY,
    title           TEXT NOT NULL,
    published_at    TIMESTAMPTZ NOT NULL,
    author          TEXT NOT NULL DEFAULT '',
    image           TEXT NOT NULL DEFAULT '',
    summary         TEXT NOT NULL DEFAULT '',
    classification  TEXT NOT NULL,
    sentiment_tags  TEXT[] NOT NULL DEFAULT '{}',
    company_matches JSONB NOT NULL DEFAULT '[]',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_checked_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS posts_classification_idx
    ON posts (classification, published_at DESC);

CREATE TABLE IF NOT EXISTS companies (
    instrument_token   BIGINT PRIMARY KEY,
    name               TEXT NOT NULL,
    nse_code           TEXT NOT NULL DEFAULT '',
    bse_code           TEXT NOT NULL DEFAULT '',
    exchange           TEXT NOT NULL DEFAULT '',
    isin               TEXT NOT NULL DEFAULT '',
    market_cap         DOUBLE PRECISION NOT NULL DEFAULT 0,
    market_cap_checked BOOLEAN NOT NULL DEFAULT FALSE,
    search_tokens      TEXT[] NOT NULL DEFAULT '{}',
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS trackers (
    user_id     TEXT NOT NULL,
    target_type TEXT NOT NULL,
    target_id   TEXT NOT NULL,
    active      BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, target_type, target_id)
);

CREATE TABLE IF NOT EXISTS notifications (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    post_link   TEXT NOT NULL,
    target_type TEXT NOT NULL,
    target_id   TEXT NOT NULL,
    is_read     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, post_link, target_type, target_id)
);
`

// EnsureSchema creates the tables on first run.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

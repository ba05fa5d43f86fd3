package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/ports"
)

// SourceRepo stores tracked sources in Postgres.
type SourceRepo struct {
	db *sql.DB
}

var _ ports.SourceRepository = (*SourceRepo)(nil)

func NewSourceRepo(db *sql.DB) *SourceRepo {
	return &SourceRepo{db: db}
}

// ListActive returns sources eligible for the next harvest run.
func (r *SourceRepo) ListActive(ctx context.Context) ([]domain.Source, error) {
	query, args, err := psql.
		Select("id", "platform_kind", "origin_url", "feed_url", "extraction_method", "active", "last_checked_at").
		From("sources").
		Where(sq.Eq{"active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sources: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var s domain.Source
		var lastChecked sql.NullTime
		if err := rows.Scan(&s.ID, &s.PlatformKind, &s.OriginURL, &s.FeedURL, &s.ExtractionMethod, &s.Active, &lastChecked); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if lastChecked.Valid {
			s.LastCheckedAt = lastChecked.Time
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return sources, nil
}

// Upsert inserts or updates a source keyed by ID. LastCheckedAt is
// owned by the harvester and never overwritten here.
func (r *SourceRepo) Upsert(ctx context.Context, source domain.Source) error {
	query, args, err := psql.
		Insert("sources").
		Columns("id", "platform_kind", "origin_url", "feed_url", "extraction_method", "active").
		Values(source.ID, source.PlatformKind, source.OriginURL, source.FeedURL, source.ExtractionMethod, source.Active).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
            platform_kind = EXCLUDED.platform_kind,
            origin_url = EXCLUDED.origin_url,
            feed_url = EXCLUDED.feed_url,
            extraction_method = EXCLUDED.extraction_method,
            active = EXCLUDED.active`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert source: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert source %s: %w", source.ID, err)
	}
	return nil
}

// TouchLastChecked stamps a source after a harvest attempt.
func (r *SourceRepo) TouchLastChecked(ctx context.Context, id string, at time.Time) error {
	query, args, err := psql.
		Update("sources").
		Set("last_checked_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch source: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("touch source %s: %w", id, err)
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/ports"
)

// TrackerRepo stores user subscriptions.
type TrackerRepo struct {
	db *sql.DB
}

var _ ports.TrackerRepository = (*TrackerRepo)(nil)

func NewTrackerRepo(db *sql.DB) *TrackerRepo {
	return &TrackerRepo{db: db}
}

// Create registers a tracker. Repeat creation for the same
// (user, target) is a no-op.
func (r *TrackerRepo) Create(ctx context.Context, tracker domain.Tracker) error {
	query, args, err := psql.
		Insert("trackers").
		Columns("user_id", "target_type", "target_id", "active").
		Values(tracker.UserID, tracker.TargetType, tracker.TargetID, tracker.Active).
		Suffix(`ON CONFLICT (user_id, target_type, target_id) DO NOTHING`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create tracker: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create tracker: %w", err)
	}
	return nil
}

// ActiveByTarget lists active trackers pointing at one target.
func (r *TrackerRepo) ActiveByTarget(ctx context.Context, targetType domain.TargetType, targetID string) ([]domain.Tracker, error) {
	query, args, err := psql.
		Select("user_id", "target_type", "target_id", "active", "created_at").
		From("trackers").
		Where(sq.Eq{"target_type": targetType, "target_id": targetID, "active": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list trackers: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trackers: %w", err)
	}
	defer rows.Close()

	var trackers []domain.Tracker
	for rows.Next() {
		var t domain.Tracker
		if err := rows.Scan(&t.UserID, &t.TargetType, &t.TargetID, &t.Active, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tracker: %w", err)
		}
		trackers = append(trackers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return trackers, nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/ports"
)

// NotificationRepo stores per-user match notifications.
type NotificationRepo struct {
	db *sql.DB
}

var _ ports.NotificationRepository = (*NotificationRepo)(nil)

func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Insert records a notification. The unique constraint on
// (user, post, target) makes re-dispatch of the same match a no-op.
func (r *NotificationRepo) Insert(ctx context.Context, notification domain.Notification) error {
	query, args, err := psql.
		Insert("notifications").
		Columns("id", "user_id", "post_link", "target_type", "target_id", "is_read").
		Values(notification.ID, notification.UserID, notification.PostLink,
			notification.TargetType, notification.TargetID, notification.IsRead).
		Suffix(`ON CONFLICT (user_id, post_link, target_type, target_id) DO NOTHING`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert notification: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

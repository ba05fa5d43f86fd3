// Package notify matches freshly persisted posts against active
// trackers and schedules delivery.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/ports"
)

// Fanout turns a persisted batch into per-user notifications. Targets
// are aggregated as a set per user so two trackers on the same target
// never produce duplicate notifications for one post.
type Fanout struct {
	trackers      ports.TrackerRepository
	notifications ports.NotificationRepository
	queue         ports.DeliveryQueue
	logger        *slog.Logger
}

// NewFanout wires repositories and the delivery queue.
func NewFanout(trackers ports.TrackerRepository, notifications ports.NotificationRepository, queue ports.DeliveryQueue, logger *slog.Logger) *Fanout {
	return &Fanout{trackers: trackers, notifications: notifications, queue: queue, logger: logger}
}

// target identifies one (post, targetType, targetId) notification cause.
type target struct {
	postLink   string
	postTitle  string
	targetType domain.TargetType
	targetID   string
}

// Dispatch creates one Notification per (user, post, target) and
// schedules one asynchronous delivery each. Delivery failure never
// rolls back the notification record. The count of notifications
// created is returned even when a later insert fails.
func (f *Fanout) Dispatch(ctx context.Context, posts []domain.EnrichedPost) (int, error) {
	perUser := map[string]map[target]struct{}{}

	for _, post := range posts {
		for _, tgt := range postTargets(post) {
			trackers, err := f.trackers.ActiveByTarget(ctx, tgt.targetType, tgt.targetID)
			if err != nil {
				return 0, fmt.Errorf("load trackers for %s/%s: %w", tgt.targetType, tgt.targetID, err)
			}
			for _, tracker := range trackers {
				if perUser[tracker.UserID] == nil {
					perUser[tracker.UserID] = map[target]struct{}{}
				}
				perUser[tracker.UserID][tgt] = struct{}{}
			}
		}
	}

	created := 0
	for userID, targets := range perUser {
		for tgt := range targets {
			notification := domain.Notification{
				ID:         uuid.NewString(),
				UserID:     userID,
				PostLink:   tgt.postLink,
				TargetType: tgt.targetType,
				TargetID:   tgt.targetID,
				CreatedAt:  time.Now().UTC(),
			}
			if err := f.notifications.Insert(ctx, notification); err != nil {
				return created, fmt.Errorf("insert notification: %w", err)
			}
			created++

			if f.queue == nil {
				continue
			}
			task := domain.DeliveryTask{
				NotificationID: notification.ID,
				UserID:         userID,
				PostLink:       tgt.postLink,
				PostTitle:      tgt.postTitle,
				TargetType:     tgt.targetType,
				TargetID:       tgt.targetID,
			}
			if err := f.queue.Publish(ctx, task); err != nil {
				f.warn("delivery scheduling failed", "notification", notification.ID, "error", err)
			}
		}
	}

	if created > 0 {
		f.info("fan-out done", "notifications", created, "users", len(perUser))
	}
	return created, nil
}

// postTargets lists the trackable targets a post matched: each resolved
// company plus the author.
func postTargets(post domain.EnrichedPost) []target {
	targets := make([]target, 0, len(post.CompanyMatches)+1)
	for _, match := range post.CompanyMatches {
		targets = append(targets, target{
			postLink:   post.Link,
			postTitle:  post.Title,
			targetType: domain.TargetCompany,
			targetID:   match.ResolvedName,
		})
	}
	if post.Author != "" {
		targets = append(targets, target{
			postLink:   post.Link,
			postTitle:  post.Title,
			targetType: domain.TargetAuthor,
			targetID:   post.Author,
		})
	}
	return targets
}

func (f *Fanout) info(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Info(msg, args...)
	}
}

func (f *Fanout) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}

package ports

import (
	"context"
	"errors"
	"time"

	"BlogHarvester/internal/domain"
)

// SourceRepository stores tracked sources.
type SourceRepository interface {
	ListActive(ctx context.Context) ([]domain.Source, error)
	Upsert(ctx context.Context, source domain.Source) error
	TouchLastChecked(ctx context.Context, id string, at time.Time) error
}

// PostRepository persists enriched posts and answers dedup queries.
type PostRepository interface {
	ExistingLinks(ctx context.Context, links []string) (map[string]bool, error)
	SaveBatch(ctx context.Context, posts []domain.EnrichedPost) error
	ListByClassification(ctx context.Context, class domain.Classification, limit, offset int) ([]domain.EnrichedPost, error)
}

// CompanyRepository holds the reference instrument list.
type CompanyRepository interface {
	All(ctx context.Context) ([]domain.CompanyReference, error)
	UpsertBatch(ctx context.Context, refs []domain.CompanyReference) error
	UncheckedBatch(ctx context.Context, after time.Time, limit int) ([]domain.CompanyReference, error)
	PatchMarketCap(ctx context.Context, instrumentToken int64, marketCap float64, found bool) error
}

// TrackerRepository stores user subscriptions.
type TrackerRepository interface {
	Create(ctx context.Context, tracker domain.Tracker) error
	ActiveByTarget(ctx context.Context, targetType domain.TargetType, targetID string) ([]domain.Tracker, error)
}

// NotificationRepository stores per-user match notifications.
type NotificationRepository interface {
	Insert(ctx context.Context, notification domain.Notification) error
}

// LinkCache is a fast seen-link layer consulted before the store.
type LinkCache interface {
	Seen(ctx context.Context, links []string) (map[string]bool, error)
	MarkSeen(ctx context.Context, links []string) error
}

// Completion is a text-completion endpoint with no schema guarantee;
// callers must parse responses defensively.
type Completion interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ErrRateLimited is returned by market-data providers when the
// upstream throttles; callers react with a breaker or backoff, never by
// surfacing it as a hard error.
var ErrRateLimited = errors.New("provider rate limited")

// MarketCapProvider looks up a market capitalization for an instrument.
type MarketCapProvider interface {
	Name() string
	MarketCap(ctx context.Context, ref domain.CompanyReference) (float64, error)
}

// DeliveryQueue schedules asynchronous notification deliveries.
type DeliveryQueue interface {
	Publish(ctx context.Context, task domain.DeliveryTask) error
}

// Mailer delivers a single message to a user.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Alerter escalates operational conditions to operators.
type Alerter interface {
	Alert(ctx context.Context, message string) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Add(spec string, job func(time.Time)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

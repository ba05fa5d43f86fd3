package domain

import "time"

// CompanyReference is a row of the exchange-listed instrument master
// list the resolver matches against. MarketCapChecked=false marks the
// enrichment work queue; it flips true after one lookup attempt
// regardless of outcome.
type CompanyReference struct {
	Name             string
	NSECode          string
	BSECode          string
	Exchange         string
	InstrumentToken  int64
	ISIN             string
	MarketCap        float64
	MarketCapChecked bool
	SearchTokens     []string
	CreatedAt        time.Time
}

// TargetType scopes a tracker to a company or an author.
type TargetType string

const (
	TargetCompany TargetType = "company"
	TargetAuthor  TargetType = "author"
)

// Tracker is a user's subscription to a company or author. Unique per
// (UserID, TargetType, TargetID); creation is idempotent.
type Tracker struct {
	UserID     string
	TargetType TargetType
	TargetID   string
	Active     bool
	CreatedAt  time.Time
}

// Notification records that a post matched one of a user's trackers.
// Created once per (user, post, target) triple; delivery happens
// asynchronously and its failure never removes the record.
type Notification struct {
	ID         string
	UserID     string
	PostLink   string
	TargetType TargetType
	TargetID   string
	IsRead     bool
	CreatedAt  time.Time
}

// DeliveryTask is the payload published for asynchronous delivery of a
// single notification.
type DeliveryTask struct {
	NotificationID string     `json:"notificationId"`
	UserID         string     `json:"userId"`
	PostLink       string     `json:"postLink"`
	PostTitle      string     `json:"postTitle"`
	TargetType     TargetType `json:"targetType"`
	TargetID       string     `json:"targetId"`
}

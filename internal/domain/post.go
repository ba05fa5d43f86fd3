package domain

import "time"

// PlatformKind distinguishes how a source exposes its posts.
type PlatformKind string

const (
	PlatformFeed             PlatformKind = "feed"
	PlatformSitemap          PlatformKind = "sitemap"
	PlatformPaginatedArchive PlatformKind = "paginatedArchive"
	PlatformGenericHTML      PlatformKind = "genericHTML"
)

// Source is a tracked blog or channel posts are harvested from.
// Sources are created by operators and deactivated, never deleted.
type Source struct {
	ID               string
	PlatformKind     PlatformKind
	OriginURL        string
	FeedURL          string
	ExtractionMethod string
	Active           bool
	LastCheckedAt    time.Time
}

// RawPost is an unvalidated post as returned by an adapter. It is never
// persisted as-is; Link is the natural key for the whole system.
type RawPost struct {
	Title       string
	Link        string
	PublishedAt time.Time
	Author      string
	Image       string
	BodyText    string
	SourceID    string
}

// Classification enumerates the six post labels the pipeline assigns.
type Classification string

const (
	ClassCompanyAnalysis      Classification = "CompanyAnalysis"
	ClassSectorAnalysis       Classification = "SectorAnalysis"
	ClassMultiCompanyAnalysis Classification = "MultiCompanyAnalysis"
	ClassMultiCompanyUpdate   Classification = "MultiCompanyUpdate"
	ClassGeneralGuide         Classification = "GeneralGuide"
	ClassOther                Classification = "Other"
)

// Sentiment is the single-valued tone tag attached at summarization.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// ValidClassification reports whether label is one of the six known values.
func ValidClassification(label Classification) bool {
	switch label {
	case ClassCompanyAnalysis, ClassSectorAnalysis, ClassMultiCompanyAnalysis,
		ClassMultiCompanyUpdate, ClassGeneralGuide, ClassOther:
		return true
	}
	return false
}

// CompanyMatch ties an extracted name to a resolved reference instrument.
// Only matches surviving contextual validation are kept on a post.
type CompanyMatch struct {
	ExtractedName string
	ResolvedName  string
	NSECode       string
	BSECode       string
	MarketCap     float64
	Confidence    float64
}

// EnrichedPost is the persisted record consumers query. Link never
// changes once stored; classification and matches may be revised.
type EnrichedPost struct {
	Link           string
	Title          string
	PublishedAt    time.Time
	Author         string
	Image          string
	Summary        string
	Classification Classification
	SentimentTags  []string
	CompanyMatches []CompanyMatch
	CreatedAt      time.Time
	LastCheckedAt  time.Time
}

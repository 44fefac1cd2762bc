// Package model defines the domain types used across the application.
package model

import (
	"strings"
	"time"
)

// ExtractionMethod selects how article content is isolated from a page.
type ExtractionMethod string

// Supported extraction methods.
const (
	ExtractAuto ExtractionMethod = "auto"
	ExtractCSS  ExtractionMethod = "css"
)

// ProviderKind names a text-generation backend used for rewriting.
type ProviderKind string

// Supported rewrite providers.
const (
	ProviderGemini    ProviderKind = "gemini"
	ProviderOpenAI    ProviderKind = "openai"
	ProviderAnthropic ProviderKind = "anthropic"
)

// PostStatus is the status a published post is created with.
type PostStatus string

// Supported post statuses.
const (
	StatusPublish PostStatus = "publish"
	StatusDraft   PostStatus = "draft"
	StatusPending PostStatus = "pending"
)

// ScheduleInterval is the minimum spacing between two runs of a campaign.
type ScheduleInterval string

// Supported schedule intervals.
const (
	IntervalHourly     ScheduleInterval = "hourly"
	IntervalThirtyMin  ScheduleInterval = "thirty_min"
	IntervalDaily      ScheduleInterval = "daily"
	IntervalTwiceDaily ScheduleInterval = "twice_daily"
)

// Duration returns the wall-clock length of the interval.
// Unknown values fall back to daily.
func (i ScheduleInterval) Duration() time.Duration {
	switch i {
	case IntervalHourly:
		return time.Hour
	case IntervalThirtyMin:
		return 30 * time.Minute
	case IntervalTwiceDaily:
		return 12 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Defaults applied to campaigns that leave a field unset.
const (
	DefaultMaxItems       = 2000
	DefaultPromptTemplate = "Rewrite this content: {content}"
)

// ExtractionConfig controls the content extractor.
type ExtractionConfig struct {
	Method   ExtractionMethod
	Selector string
}

// FilterConfig controls the sanitize and quality-filter stages.
type FilterConfig struct {
	RemoveByClass    []string
	RemoveByID       []string
	StripLinks       bool
	AddNofollow      bool
	StripImages      bool
	MinWords         int
	MaxWords         int
	RequiredKeywords []string
	BannedKeywords   []string
}

// RewriteConfig controls the optional rewrite step.
type RewriteConfig struct {
	Enabled        bool
	PromptTemplate string
	Provider       ProviderKind
}

// ImageConfig controls featured image handling.
type ImageConfig struct {
	Download    bool
	SetFeatured bool
}

// PublishConfig holds the attributes every post of a campaign is created with.
type PublishConfig struct {
	AuthorID   int64
	CategoryID int64
	Status     PostStatus
}

// Campaign is a recurring ingestion job bound to one feed.
type Campaign struct {
	ID              int64
	Name            string
	FeedURL         string
	MaxItems        int
	CheckLatestOnly bool
	Extraction      ExtractionConfig
	Filter          FilterConfig
	Rewrite         RewriteConfig
	Image           ImageConfig
	Publish         PublishConfig
	Interval        ScheduleInterval
	IsActive        bool
	LastRunAt       *time.Time
	CreatedAt       time.Time
}

// ItemCap returns MaxItems, or DefaultMaxItems when unset.
func (c *Campaign) ItemCap() int {
	if c.MaxItems > 0 {
		return c.MaxItems
	}
	return DefaultMaxItems
}

// FeedItem is a single entry of a fetched feed.
type FeedItem struct {
	Key         string
	Link        string
	Title       string
	PublishedAt *time.Time
	Description string
}

// Document is the raw inner markup extracted from an article page.
type Document struct {
	Markup string
	// URL is the final page URL after redirects.
	URL string
}

// RejectReason explains why an item was not published.
type RejectReason string

// Rejection reasons reported in outcomes.
const (
	RejectTooShort           RejectReason = "too_short"
	RejectTooLong            RejectReason = "too_long"
	RejectMissingKeyword     RejectReason = "missing_required_keyword"
	RejectBannedKeyword      RejectReason = "banned_keyword_present"
	RejectArticleUnavailable RejectReason = "article_unavailable"
	RejectNotLatest          RejectReason = "not_latest"
)

// Outcome is the result of processing one item: accepted markup ready to
// publish, or a rejection reason.
type Outcome struct {
	Accepted      bool
	Markup        string
	FeaturedAsset string
	Reason        RejectReason
}

// Post is what gets handed to a publish target.
type Post struct {
	Title         string
	Body          string
	Status        PostStatus
	AuthorID      int64
	CategoryID    int64
	FeaturedAsset string

	SourceURL  string
	SourceKey  string
	CampaignID int64
}

// StoredPost is a post persisted by the local publish target.
type StoredPost struct {
	ID int64
	Post
	CreatedAt time.Time
}

// Asset is an image registered in an asset store.
type Asset struct {
	ID        string
	URL       string
	CreatedAt time.Time
}

// RunReport summarizes one campaign tick.
type RunReport struct {
	RunID      string
	CampaignID int64
	Skipped    bool
	Fetched    int
	New        int
	Published  int
	Rejected   int
	Failed     int
}

// SplitCSV splits a comma-separated list, trimming entries and dropping empty ones.
func SplitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// JoinCSV is the inverse of SplitCSV.
func JoinCSV(values []string) string {
	return strings.Join(values, ",")
}

package api

import (
	"time"

	"autoblog/internal/model"
)

type campaignView struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	FeedURL         string     `json:"feed_url"`
	MaxItems        int        `json:"max_items"`
	CheckLatestOnly bool       `json:"check_latest_only"`
	Extraction      string     `json:"extraction"`
	Selector        string     `json:"selector,omitempty"`
	RewriteEnabled  bool       `json:"rewrite_enabled"`
	Provider        string     `json:"provider"`
	PostStatus      string     `json:"post_status"`
	Interval        string     `json:"interval"`
	IsActive        bool       `json:"is_active"`
	LastRunAt       *time.Time `json:"last_run_at"`
}

func newCampaignView(c *model.Campaign) campaignView {
	return campaignView{
		ID:              c.ID,
		Name:            c.Name,
		FeedURL:         c.FeedURL,
		MaxItems:        c.ItemCap(),
		CheckLatestOnly: c.CheckLatestOnly,
		Extraction:      string(c.Extraction.Method),
		Selector:        c.Extraction.Selector,
		RewriteEnabled:  c.Rewrite.Enabled,
		Provider:        string(c.Rewrite.Provider),
		PostStatus:      string(c.Publish.Status),
		Interval:        string(c.Interval),
		IsActive:        c.IsActive,
		LastRunAt:       c.LastRunAt,
	}
}

type reportView struct {
	RunID      string `json:"run_id"`
	CampaignID int64  `json:"campaign_id"`
	Skipped    bool   `json:"skipped"`
	Fetched    int    `json:"fetched"`
	New        int    `json:"new"`
	Published  int    `json:"published"`
	Rejected   int    `json:"rejected"`
	Failed     int    `json:"failed"`
}

func newReportView(r *model.RunReport) reportView {
	return reportView{
		RunID:      r.RunID,
		CampaignID: r.CampaignID,
		Skipped:    r.Skipped,
		Fetched:    r.Fetched,
		New:        r.New,
		Published:  r.Published,
		Rejected:   r.Rejected,
		Failed:     r.Failed,
	}
}

type postView struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	SourceURL     string    `json:"source_url"`
	SourceKey     string    `json:"source_key"`
	FeaturedAsset string    `json:"featured_asset,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func newPostView(p model.StoredPost) postView {
	return postView{
		ID:            p.ID,
		Title:         p.Title,
		Status:        string(p.Status),
		SourceURL:     p.SourceURL,
		SourceKey:     p.SourceKey,
		FeaturedAsset: p.FeaturedAsset,
		CreatedAt:     p.CreatedAt,
	}
}

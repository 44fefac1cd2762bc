package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"autoblog/internal/model"
)

const (
	statusActive = "active"
	statusPaused = "paused"
)

func statusLabel(c *model.Campaign) string {
	if c.IsActive {
		return statusActive
	}
	return statusPaused
}

func lastRunLabel(c *model.Campaign, now time.Time) string {
	if c.LastRunAt == nil {
		return "never"
	}
	return humanize.RelTime(*c.LastRunAt, now, "ago", "from now")
}

// FormatCampaignList formats all campaigns for display.
func FormatCampaignList(campaigns []model.Campaign, now time.Time) string {
	if len(campaigns) == 0 {
		return "No campaigns yet. Import some with: autoblog import campaigns.yaml"
	}
	var b strings.Builder
	b.WriteString("Campaigns:\n")
	for i := range campaigns {
		c := &campaigns[i]
		fmt.Fprintf(&b, "\n#%d %s  (%s) [%s]\n", c.ID, c.Name, c.Interval, statusLabel(c))
		fmt.Fprintf(&b, "   last run: %s\n", lastRunLabel(c, now))
	}
	return b.String()
}

// FormatCampaignInfo formats detailed information about a single campaign.
func FormatCampaignInfo(c *model.Campaign, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s [%s]\n", c.ID, c.Name, statusLabel(c))
	fmt.Fprintf(&b, "Feed: %s\n", c.FeedURL)
	fmt.Fprintf(&b, "Interval: %s\n", c.Interval)
	fmt.Fprintf(&b, "Max items: %d\n", c.ItemCap())
	fmt.Fprintf(&b, "Extraction: %s", c.Extraction.Method)
	if c.Extraction.Method == model.ExtractCSS && c.Extraction.Selector != "" {
		fmt.Fprintf(&b, " (%s)", c.Extraction.Selector)
	}
	b.WriteString("\n")
	if c.Rewrite.Enabled {
		fmt.Fprintf(&b, "Rewrite: %s\n", c.Rewrite.Provider)
	} else {
		b.WriteString("Rewrite: off\n")
	}
	fmt.Fprintf(&b, "Post status: %s\n", c.Publish.Status)
	if c.LastRunAt != nil {
		fmt.Fprintf(&b, "Last run: %s (%s)\n", c.LastRunAt.Format("2006-01-02 15:04 UTC"), lastRunLabel(c, now))
	} else {
		b.WriteString("Last run: never\n")
	}
	return b.String()
}

// FormatRunReport summarizes a finished run.
func FormatRunReport(c *model.Campaign, r *model.RunReport) string {
	if r.Skipped {
		return fmt.Sprintf("#%d \"%s\": nothing to do.", c.ID, c.Name)
	}
	return fmt.Sprintf("#%d \"%s\": %d fetched, %d new, %d published, %d rejected, %d failed.",
		c.ID, c.Name, r.Fetched, r.New, r.Published, r.Rejected, r.Failed)
}

// FormatPublished formats the notification sent for a published post.
func FormatPublished(c *model.Campaign, p *model.Post, postID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n\n", c.Name)
	b.WriteString(p.Title)
	fmt.Fprintf(&b, "\n\nPost %s (%s)", postID, p.Status)
	if p.SourceURL != "" {
		b.WriteString("\n")
		b.WriteString(p.SourceURL)
	}
	return b.String()
}

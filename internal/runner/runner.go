// Package runner orchestrates one campaign tick: fetch, dedup, and the
// per-item extract, filter, rewrite, image and publish steps.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"autoblog/internal/dedup"
	"autoblog/internal/filter"
	"autoblog/internal/image"
	"autoblog/internal/model"
)

var (
	// ErrInactive is returned when a scheduled run targets a disabled campaign.
	ErrInactive = errors.New("campaign is not active")
	// ErrAlreadyRunning is returned when the campaign has a tick in flight.
	ErrAlreadyRunning = errors.New("campaign is already running")
)

// FeedFetcher retrieves feed items.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string, limit int) ([]model.FeedItem, error)
}

// ContentExtractor retrieves an article and isolates its content.
type ContentExtractor interface {
	Extract(ctx context.Context, url string, cfg model.ExtractionConfig) (*model.Document, error)
}

// FilterPipeline sanitizes and quality-checks content.
type FilterPipeline interface {
	Apply(markup string, cfg model.FilterConfig) (string, error)
	Clean(markup string) string
}

// Rewriter optionally rewrites content. It reports false and returns the
// input when no rewrite was obtained.
type Rewriter interface {
	Rewrite(ctx context.Context, content string, cfg model.RewriteConfig, title, sourceURL string) (string, bool)
}

// ImageResolver stores an image and returns its asset reference.
type ImageResolver interface {
	Resolve(ctx context.Context, imageURL string) (string, bool)
}

// PublishTarget persists a post and returns its identifier.
type PublishTarget interface {
	Publish(ctx context.Context, p *model.Post) (string, error)
}

// CampaignStore provides campaign configuration and run state.
type CampaignStore interface {
	dedup.KeyStore
	GetCampaign(ctx context.Context, id int64) (*model.Campaign, error)
	UpdateLastRun(ctx context.Context, id int64, at time.Time) error
}

// Notifier is told about every published post.
type Notifier interface {
	NotifyPublished(ctx context.Context, c *model.Campaign, p *model.Post, postID string)
}

// Deps are the collaborators of a Runner.
type Deps struct {
	Store     CampaignStore
	Fetcher   FeedFetcher
	Extractor ContentExtractor
	Filter    FilterPipeline
	Rewriter  Rewriter
	Images    ImageResolver
	Target    PublishTarget
	Notifier  Notifier
}

// Runner executes campaign ticks.
type Runner struct {
	deps        Deps
	tracker     *dedup.Tracker
	itemWorkers int
	now         func() time.Time
	log         *slog.Logger

	mu      sync.Mutex
	running map[int64]struct{}
}

// New creates a Runner processing up to itemWorkers items of a tick
// concurrently.
func New(deps Deps, itemWorkers int, log *slog.Logger) *Runner {
	if itemWorkers < 1 {
		itemWorkers = 1
	}
	return &Runner{
		deps:        deps,
		tracker:     dedup.NewTracker(deps.Store),
		itemWorkers: itemWorkers,
		now:         time.Now,
		log:         log,
		running:     make(map[int64]struct{}),
	}
}

// Run is the scheduled entry point. The tick is skipped when the campaign's
// interval has not elapsed since its last run.
func (r *Runner) Run(ctx context.Context, campaignID int64) (*model.RunReport, error) {
	return r.run(ctx, campaignID, true)
}

// RunNow runs the campaign on demand, bypassing the interval gate.
func (r *Runner) RunNow(ctx context.Context, campaignID int64) (*model.RunReport, error) {
	return r.run(ctx, campaignID, false)
}

func (r *Runner) run(ctx context.Context, campaignID int64, scheduled bool) (*model.RunReport, error) {
	if !r.acquire(campaignID) {
		return nil, ErrAlreadyRunning
	}
	defer r.release(campaignID)

	report := &model.RunReport{RunID: uuid.NewString(), CampaignID: campaignID}
	log := r.log.With("run_id", report.RunID, "campaign_id", campaignID)

	c, err := r.deps.Store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}

	if scheduled {
		if !c.IsActive {
			return nil, ErrInactive
		}
		if c.LastRunAt != nil && r.now().Sub(*c.LastRunAt) < c.Interval.Duration() {
			log.Debug("interval not elapsed", "last_run_at", c.LastRunAt, "interval", c.Interval)
			report.Skipped = true
			return report, nil
		}
	}

	if strings.TrimSpace(c.FeedURL) == "" {
		log.Warn("campaign has no feed url")
		report.Skipped = true
		return report, nil
	}

	items, err := r.deps.Fetcher.Fetch(ctx, c.FeedURL, c.ItemCap())
	if err != nil {
		log.Error("fetch feed", "url", c.FeedURL, "error", err)
		return report, fmt.Errorf("fetch feed: %w", err)
	}
	report.Fetched = len(items)

	imported, err := r.tracker.Imported(ctx, c.ID)
	if err != nil {
		return report, err
	}
	fresh := dedup.Filter(items, imported)
	report.New = len(fresh)

	r.processItems(ctx, c, fresh, report, log)

	if err := ctx.Err(); err != nil {
		log.Info("run cancelled", "published", report.Published)
		return report, err
	}

	if err := r.deps.Store.UpdateLastRun(ctx, c.ID, r.now().UTC()); err != nil {
		log.Error("update last run", "error", err)
	}

	log.Info("run finished",
		"fetched", report.Fetched, "new", report.New, "published", report.Published,
		"rejected", report.Rejected, "failed", report.Failed)
	return report, nil
}

func (r *Runner) acquire(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.running[id]; busy {
		return false
	}
	r.running[id] = struct{}{}
	return true
}

func (r *Runner) release(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, id)
}

func (r *Runner) processItems(ctx context.Context, c *model.Campaign, items []model.FeedItem, report *model.RunReport, log *slog.Logger) {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(r.itemWorkers)

	for _, item := range items {
		// Cancellation checkpoint: no new item starts after ctx is done.
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Queued behind the worker limit; skip if cancelled meanwhile.
			if ctx.Err() != nil {
				return nil
			}
			published, out, err := r.processItem(ctx, c, item, log)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed++
			case published:
				report.Published++
			case !out.Accepted:
				report.Rejected++
			}
			return nil
		})
	}
	_ = g.Wait()
}

// processItem runs one item through the pipeline. Its key is committed only
// after a successful publish.
func (r *Runner) processItem(ctx context.Context, c *model.Campaign, item model.FeedItem, log *slog.Logger) (bool, model.Outcome, error) {
	log = log.With("key", item.Key, "url", item.Link)

	out, err := r.evaluate(ctx, c, item, log)
	if err != nil {
		log.Error("process item", "error", err)
		return false, out, err
	}
	if !out.Accepted {
		log.Info("item rejected", "reason", out.Reason)
		return false, out, nil
	}

	post := &model.Post{
		Title:         filter.StripTags(item.Title),
		Body:          out.Markup,
		Status:        c.Publish.Status,
		AuthorID:      c.Publish.AuthorID,
		CategoryID:    c.Publish.CategoryID,
		FeaturedAsset: out.FeaturedAsset,
		SourceURL:     item.Link,
		SourceKey:     item.Key,
		CampaignID:    c.ID,
	}
	if post.Status == "" {
		post.Status = model.StatusDraft
	}

	postID, err := r.deps.Target.Publish(ctx, post)
	if err != nil {
		log.Error("publish item", "error", err)
		return false, out, fmt.Errorf("publish: %w", err)
	}

	if err := r.tracker.Commit(ctx, c.ID, item.Key); err != nil {
		// Published but not committed: the next tick may publish it again.
		log.Error("commit key", "post_id", postID, "error", err)
	}

	log.Info("item published", "post_id", postID)
	if r.deps.Notifier != nil {
		r.deps.Notifier.NotifyPublished(ctx, c, post, postID)
	}
	return true, out, nil
}

// evaluate produces the outcome for an item without side effects on the
// campaign state.
func (r *Runner) evaluate(ctx context.Context, c *model.Campaign, item model.FeedItem, log *slog.Logger) (model.Outcome, error) {
	if c.CheckLatestOnly && c.LastRunAt != nil && item.PublishedAt != nil && !item.PublishedAt.After(*c.LastRunAt) {
		return model.Outcome{Reason: model.RejectNotLatest}, nil
	}

	markup, pageURL := "", item.Link
	doc, err := r.deps.Extractor.Extract(ctx, item.Link, c.Extraction)
	switch {
	case err == nil:
		markup = doc.Markup
		if doc.URL != "" {
			pageURL = doc.URL
		}
	case strings.TrimSpace(item.Description) != "":
		log.Warn("article unavailable, using feed description", "error", err)
		markup = item.Description
	default:
		log.Warn("article unavailable", "error", err)
		return model.Outcome{Reason: model.RejectArticleUnavailable}, nil
	}

	clean, err := r.deps.Filter.Apply(markup, c.Filter)
	if err != nil {
		var rej *filter.Rejection
		if errors.As(err, &rej) {
			return model.Outcome{Reason: rej.Reason}, nil
		}
		return model.Outcome{}, fmt.Errorf("sanitize: %w", err)
	}

	out := model.Outcome{Accepted: true, Markup: clean}

	// Providers get plain text so markup does not eat the prompt budget.
	if c.Rewrite.Enabled && r.deps.Rewriter != nil {
		if rewritten, ok := r.deps.Rewriter.Rewrite(ctx, filter.PlainText(clean), c.Rewrite, item.Title, item.Link); ok {
			if safe := strings.TrimSpace(r.deps.Filter.Clean(rewritten)); safe != "" {
				out.Markup = safe
			}
		}
	}

	if c.Image.Download && r.deps.Images != nil {
		if src, ok := image.FindCandidate(clean, pageURL); ok {
			if assetID, ok := r.deps.Images.Resolve(ctx, src); ok && c.Image.SetFeatured {
				out.FeaturedAsset = assetID
			}
		}
	}

	return out, nil
}

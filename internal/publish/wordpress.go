package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"autoblog/internal/model"
)

// WordPress publishes through the WordPress REST API using an application
// password.
type WordPress struct {
	baseURL    string
	user       string
	password   string
	client     HTTPClient
	userAgent  string
	limiter    *rate.Limiter
	backoff    time.Duration
	maxRetries uint64
	log        *slog.Logger
}

// NewWordPress creates a WordPress target. perSecond bounds the rate of
// write requests.
func NewWordPress(baseURL, user, appPassword string, client HTTPClient, userAgent string, perSecond float64, log *slog.Logger) *WordPress {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &WordPress{
		baseURL:    baseURL,
		user:       user,
		password:   appPassword,
		client:     client,
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(limit, 1),
		backoff:    500 * time.Millisecond,
		maxRetries: 3,
		log:        log,
	}
}

type wpPost struct {
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	Status        string            `json:"status"`
	Author        int64             `json:"author,omitempty"`
	Categories    []int64           `json:"categories,omitempty"`
	FeaturedMedia int64             `json:"featured_media,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
}

type wpObject struct {
	ID        int64  `json:"id"`
	SourceURL string `json:"source_url"`
	Date      string `json:"date_gmt"`
}

// Publish creates the post and returns its WordPress ID.
func (w *WordPress) Publish(ctx context.Context, p *model.Post) (string, error) {
	body := wpPost{
		Title:   p.Title,
		Content: p.Body,
		Status:  string(p.Status),
		Author:  p.AuthorID,
		Meta: map[string]string{
			"_autoblog_source_url":  p.SourceURL,
			"_autoblog_source_key":  p.SourceKey,
			"_autoblog_campaign_id": strconv.FormatInt(p.CampaignID, 10),
		},
	}
	if p.CategoryID > 0 {
		body.Categories = []int64{p.CategoryID}
	}
	if p.FeaturedAsset != "" {
		id, err := strconv.ParseInt(p.FeaturedAsset, 10, 64)
		if err != nil {
			return "", fmt.Errorf("featured asset %q: %w", p.FeaturedAsset, err)
		}
		body.FeaturedMedia = id
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal post: %w", err)
	}

	var created wpObject
	if err := w.write(ctx, "/wp-json/wp/v2/posts", "application/json", nil, payload, &created); err != nil {
		return "", fmt.Errorf("create post: %w", err)
	}
	return strconv.FormatInt(created.ID, 10), nil
}

// Upload downloads the image and creates a media item from it, returning
// the media ID.
func (w *WordPress) Upload(ctx context.Context, imageURL string) (string, error) {
	img, err := fetchImage(ctx, w.client, w.userAgent, imageURL)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": img.name}))

	var media wpObject
	if err := w.write(ctx, "/wp-json/wp/v2/media", img.contentType, header, img.data, &media); err != nil {
		return "", fmt.Errorf("create media: %w", err)
	}
	return strconv.FormatInt(media.ID, 10), nil
}

// Sideload uploads the image without reporting its ID.
func (w *WordPress) Sideload(ctx context.Context, imageURL string) error {
	_, err := w.Upload(ctx, imageURL)
	return err
}

// RecentAssets lists the newest media items.
func (w *WordPress) RecentAssets(ctx context.Context, limit int) ([]model.Asset, error) {
	q := url.Values{}
	q.Set("orderby", "date")
	q.Set("order", "desc")
	q.Set("per_page", strconv.Itoa(limit))

	var items []wpObject
	err := w.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/wp-json/wp/v2/media?"+q.Encode(), nil)
	}, &items)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}

	assets := make([]model.Asset, 0, len(items))
	for _, it := range items {
		a := model.Asset{ID: strconv.FormatInt(it.ID, 10), URL: it.SourceURL}
		a.CreatedAt, _ = time.Parse("2006-01-02T15:04:05", it.Date)
		assets = append(assets, a)
	}
	return assets, nil
}

func (w *WordPress) write(ctx context.Context, path, contentType string, header http.Header, payload []byte, out any) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return w.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		for k, v := range header {
			req.Header[k] = v
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	}, out)
}

// statusError is a non-success response from the REST API.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

// do sends the request built by newReq, retrying transport errors and 5xx
// responses, and decodes a JSON response into out.
func (w *WordPress) do(ctx context.Context, newReq func(context.Context) (*http.Request, error), out any) error {
	b := retry.WithMaxRetries(w.maxRetries, retry.NewExponential(w.backoff))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := newReq(ctx)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.SetBasicAuth(w.user, w.password)
		req.Header.Set("User-Agent", w.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			w.log.Debug("wordpress request failed, retrying", "url", req.URL.Path, "error", err)
			return retry.RetryableError(fmt.Errorf("http %s: %w", req.Method, err))
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read body: %w", err))
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			serr := &statusError{code: resp.StatusCode, body: truncate(string(body), 200)}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				w.log.Debug("wordpress request failed, retrying", "url", req.URL.Path, "status", resp.StatusCode)
				return retry.RetryableError(serr)
			}
			return serr
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Package fetcher handles feed downloading and parsing.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"autoblog/internal/dedup"
	"autoblog/internal/model"
)

// ErrFeedUnavailable is returned when a feed cannot be downloaded or parsed.
var ErrFeedUnavailable = errors.New("feed unavailable")

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads and parses RSS, Atom and JSON feeds.
type Fetcher struct {
	client    HTTPClient
	timeout   time.Duration
	userAgent string
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient, userAgent string) *Fetcher {
	if userAgent == "" {
		userAgent = "AutoBlog/1.0"
	}
	return &Fetcher{
		client:    client,
		timeout:   30 * time.Second,
		userAgent: userAgent,
	}
}

// Fetch downloads the feed at url and returns at most limit items in feed
// order. Every failure wraps ErrFeedUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, url string, limit int) ([]model.FeedItem, error) {
	feed, err := f.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}

	items := make([]model.FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		if limit > 0 && len(items) >= limit {
			break
		}
		items = append(items, toFeedItem(it))
	}
	return items, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// gofeed sniffs the format and honours the declared XML encoding.
	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func toFeedItem(it *gofeed.Item) model.FeedItem {
	item := model.FeedItem{
		Key:         dedup.Key(it.GUID, it.Link),
		Link:        it.Link,
		Title:       it.Title,
		Description: it.Description,
	}
	if item.Description == "" {
		item.Description = it.Content
	}
	switch {
	case it.PublishedParsed != nil:
		t := it.PublishedParsed.UTC()
		item.PublishedAt = &t
	case it.UpdatedParsed != nil:
		t := it.UpdatedParsed.UTC()
		item.PublishedAt = &t
	}
	return item
}

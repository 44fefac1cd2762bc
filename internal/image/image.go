// Package image finds a representative image in article markup and
// resolves it to a stored asset.
package image

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"autoblog/internal/model"
)

// recentWindow is how many of the newest assets are searched for a match.
const recentWindow = 5

// FindCandidate returns the first image source in markup that is an
// absolute or scheme-relative URL. Scheme-relative sources take the scheme
// of pageURL.
func FindCandidate(markup, pageURL string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", false
	}

	var found string
	doc.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		switch {
		case strings.HasPrefix(src, "//"):
			found = pageScheme(pageURL) + ":" + src
		case strings.HasPrefix(strings.ToLower(src), "http://"), strings.HasPrefix(strings.ToLower(src), "https://"):
			found = src
		default:
			return true
		}
		return false
	})
	return found, found != ""
}

func pageScheme(pageURL string) string {
	if u, err := url.Parse(pageURL); err == nil && u.Scheme != "" {
		return strings.ToLower(u.Scheme)
	}
	return "https"
}

// AssetStore downloads images into an external store.
type AssetStore interface {
	Sideload(ctx context.Context, imageURL string) error
	RecentAssets(ctx context.Context, limit int) ([]model.Asset, error)
}

// AssetUploader is implemented by stores that report the stored asset
// identifier directly. The resolver prefers it over correlation.
type AssetUploader interface {
	Upload(ctx context.Context, imageURL string) (string, error)
}

// Resolver turns image URLs into asset references.
type Resolver struct {
	store AssetStore
	log   *slog.Logger
}

// NewResolver creates a Resolver backed by store.
func NewResolver(store AssetStore, log *slog.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// Resolve stores the image and returns its asset ID. Without an
// AssetUploader the new asset is found by filename among the most recently
// created assets; no confident match yields false.
func (r *Resolver) Resolve(ctx context.Context, imageURL string) (string, bool) {
	if up, ok := r.store.(AssetUploader); ok {
		id, err := up.Upload(ctx, imageURL)
		if err != nil || id == "" {
			r.log.Warn("upload image", "url", imageURL, "error", err)
			return "", false
		}
		return id, true
	}

	name := fileName(imageURL)
	if name == "" {
		return "", false
	}

	if err := r.store.Sideload(ctx, imageURL); err != nil {
		r.log.Warn("sideload image", "url", imageURL, "error", err)
		return "", false
	}

	assets, err := r.store.RecentAssets(ctx, recentWindow)
	if err != nil {
		r.log.Warn("list recent assets", "error", err)
		return "", false
	}
	for _, a := range assets {
		if strings.Contains(a.URL, name) {
			return a.ID, true
		}
	}
	r.log.Debug("no asset matched image", "url", imageURL, "file", name)
	return "", false
}

// fileName returns the unescaped last path segment of an image URL.
func fileName(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

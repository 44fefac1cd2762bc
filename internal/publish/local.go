package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"autoblog/internal/model"
	"autoblog/internal/storage"
)

// Local publishes posts into the application database and keeps
// downloaded images on disk.
type Local struct {
	store     storage.Storage
	dir       string
	client    HTTPClient
	userAgent string
	log       *slog.Logger
}

// NewLocal creates a Local target storing assets under dir.
func NewLocal(store storage.Storage, dir string, client HTTPClient, userAgent string, log *slog.Logger) *Local {
	return &Local{store: store, dir: dir, client: client, userAgent: userAgent, log: log}
}

// Publish saves the post and returns its ID.
func (l *Local) Publish(ctx context.Context, p *model.Post) (string, error) {
	id, err := l.store.SavePost(ctx, p)
	if err != nil {
		return "", fmt.Errorf("save post: %w", err)
	}
	l.log.Debug("post saved", "post_id", id, "campaign_id", p.CampaignID)
	return strconv.FormatInt(id, 10), nil
}

// Sideload downloads the image into the asset directory and registers it.
func (l *Local) Sideload(ctx context.Context, imageURL string) error {
	img, err := fetchImage(ctx, l.client, l.userAgent, imageURL)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}

	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return fmt.Errorf("create asset dir: %w", err)
	}
	name := time.Now().UTC().Format("20060102150405.000000") + "-" + img.name
	path := filepath.Join(l.dir, name)
	if err := os.WriteFile(path, img.data, 0o640); err != nil {
		return fmt.Errorf("write asset: %w", err)
	}

	if _, err := l.store.CreateAsset(ctx, imageURL, path); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("register asset: %w", err)
	}
	return nil
}

// RecentAssets returns the newest registered assets.
func (l *Local) RecentAssets(ctx context.Context, limit int) ([]model.Asset, error) {
	return l.store.ListRecentAssets(ctx, limit)
}

// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"autoblog/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateCampaign(ctx context.Context, c *model.Campaign) error
	UpsertCampaign(ctx context.Context, c *model.Campaign) error
	GetCampaign(ctx context.Context, id int64) (*model.Campaign, error)
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
	ListActiveCampaigns(ctx context.Context) ([]model.Campaign, error)
	UpdateLastRun(ctx context.Context, id int64, at time.Time) error

	ImportedKeys(ctx context.Context, campaignID int64) (map[string]struct{}, error)
	CommitKey(ctx context.Context, campaignID int64, key string) error

	SavePost(ctx context.Context, p *model.Post) (int64, error)
	ListPosts(ctx context.Context, campaignID int64) ([]model.StoredPost, error)

	CreateAsset(ctx context.Context, sourceURL, path string) (int64, error)
	ListRecentAssets(ctx context.Context, limit int) ([]model.Asset, error)

	Close() error
}

// Package dedup derives item keys and tracks which keys a campaign has
// already imported.
package dedup

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"

	"autoblog/internal/model"
)

// Key returns the dedup key for a feed item: the feed-provided identifier
// when present, otherwise a hash of the link alone.
func Key(guid, link string) string {
	if g := strings.TrimSpace(guid); g != "" {
		return g
	}
	h := sha256.Sum256([]byte(link))
	return fmt.Sprintf("sha256:%x", h[:16])
}

// Filter returns the items whose key is not in imported, preserving order.
func Filter(items []model.FeedItem, imported map[string]struct{}) []model.FeedItem {
	var fresh []model.FeedItem
	for _, it := range items {
		if _, ok := imported[it.Key]; ok {
			continue
		}
		fresh = append(fresh, it)
	}
	return fresh
}

// KeyStore persists the imported key set of each campaign.
type KeyStore interface {
	ImportedKeys(ctx context.Context, campaignID int64) (map[string]struct{}, error)
	CommitKey(ctx context.Context, campaignID int64, key string) error
}

// Tracker is the single writer for imported keys. Commits from concurrent
// item workers are serialized.
type Tracker struct {
	store KeyStore
	mu    sync.Mutex
}

// NewTracker creates a Tracker backed by store.
func NewTracker(store KeyStore) *Tracker {
	return &Tracker{store: store}
}

// Imported returns a snapshot of the campaign's imported keys.
func (t *Tracker) Imported(ctx context.Context, campaignID int64) (map[string]struct{}, error) {
	keys, err := t.store.ImportedKeys(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load imported keys: %w", err)
	}
	return keys, nil
}

// Commit marks key as imported for the campaign. Call it only after the
// item was published.
func (t *Tracker) Commit(ctx context.Context, campaignID int64, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.CommitKey(ctx, campaignID, key); err != nil {
		return fmt.Errorf("commit key %q: %w", key, err)
	}
	return nil
}

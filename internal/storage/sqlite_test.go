package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"autoblog/internal/model"
)

var ignoreTimestamps = cmpopts.IgnoreFields(model.Campaign{}, "CreatedAt", "LastRunAt")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCampaignCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	tests := []struct {
		name     string
		campaign model.Campaign
	}{
		{
			name: "minimal campaign",
			campaign: model.Campaign{
				Name:       "Minimal",
				FeedURL:    "https://example.com/rss",
				MaxItems:   2000,
				Extraction: model.ExtractionConfig{Method: model.ExtractAuto},
				Rewrite:    model.RewriteConfig{PromptTemplate: model.DefaultPromptTemplate, Provider: model.ProviderGemini},
				Publish:    model.PublishConfig{Status: model.StatusDraft},
				Interval:   model.IntervalDaily,
				IsActive:   true,
			},
		},
		{
			name: "fully configured campaign",
			campaign: model.Campaign{
				Name:            "Full",
				FeedURL:         "https://example.com/atom",
				MaxItems:        5,
				CheckLatestOnly: true,
				Extraction:      model.ExtractionConfig{Method: model.ExtractCSS, Selector: ".post-body"},
				Filter: model.FilterConfig{
					RemoveByClass:    []string{"ads", "share"},
					RemoveByID:       []string{"comments"},
					StripLinks:       true,
					AddNofollow:      true,
					StripImages:      true,
					MinWords:         100,
					MaxWords:         2000,
					RequiredKeywords: []string{"go"},
					BannedKeywords:   []string{"casino", "crypto"},
				},
				Rewrite:  model.RewriteConfig{Enabled: true, PromptTemplate: "Summarize {title}: {content}", Provider: model.ProviderOpenAI},
				Image:    model.ImageConfig{Download: true, SetFeatured: true},
				Publish:  model.PublishConfig{AuthorID: 3, CategoryID: 7, Status: model.StatusPublish},
				Interval: model.IntervalThirtyMin,
				IsActive: false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.campaign
			if err := s.CreateCampaign(ctx, &c); err != nil {
				t.Fatalf("create: %v", err)
			}
			if c.ID == 0 {
				t.Fatal("expected non-zero ID")
			}

			got, err := s.GetCampaign(ctx, c.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}

			want := tt.campaign
			want.ID = c.ID
			if diff := cmp.Diff(want, *got, ignoreTimestamps); diff != "" {
				t.Errorf("GetCampaign mismatch (-want +got):\n%s", diff)
			}
			if got.LastRunAt != nil {
				t.Errorf("expected nil LastRunAt, got %v", got.LastRunAt)
			}
		})
	}
}

func TestGetCampaignNotFound(t *testing.T) {
	s := newTestDB(t)

	_, err := s.GetCampaign(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertCampaign(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	c := model.Campaign{Name: "News", FeedURL: "https://old.example/rss", Interval: model.IntervalDaily, IsActive: true}
	if err := s.UpsertCampaign(ctx, &c); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	firstID := c.ID

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.UpdateLastRun(ctx, firstID, now); err != nil {
		t.Fatalf("update last run: %v", err)
	}

	updated := model.Campaign{Name: "News", FeedURL: "https://new.example/rss", Interval: model.IntervalHourly, IsActive: false}
	if err := s.UpsertCampaign(ctx, &updated); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if updated.ID != firstID {
		t.Fatalf("expected upsert to keep ID %d, got %d", firstID, updated.ID)
	}

	got, err := s.GetCampaign(ctx, firstID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FeedURL != "https://new.example/rss" || got.Interval != model.IntervalHourly || got.IsActive {
		t.Errorf("unexpected campaign after upsert: %+v", got)
	}
	if got.LastRunAt == nil || !got.LastRunAt.Equal(now) {
		t.Errorf("expected last run %v to survive upsert, got %v", now, got.LastRunAt)
	}

	all, err := s.ListCampaigns(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 campaign, got %d", len(all))
	}
}

func TestListActiveCampaigns(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	campaigns := []model.Campaign{
		{Name: "A", FeedURL: "https://a.com/rss", IsActive: true},
		{Name: "B", FeedURL: "https://b.com/rss", IsActive: false},
		{Name: "C", FeedURL: "https://c.com/rss", IsActive: true},
	}
	for i := range campaigns {
		if err := s.CreateCampaign(ctx, &campaigns[i]); err != nil {
			t.Fatalf("create campaign %d: %v", i, err)
		}
	}

	got, err := s.ListActiveCampaigns(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}

	var gotNames []string
	for _, c := range got {
		gotNames = append(gotNames, c.Name)
	}
	if diff := cmp.Diff([]string{"A", "C"}, gotNames); diff != "" {
		t.Errorf("active campaigns mismatch (-want +got):\n%s", diff)
	}
}

func TestImportedKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	c := model.Campaign{Name: "F", FeedURL: "https://f.com", IsActive: true}
	if err := s.CreateCampaign(ctx, &c); err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	other := model.Campaign{Name: "G", FeedURL: "https://g.com", IsActive: true}
	if err := s.CreateCampaign(ctx, &other); err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	for _, key := range []string{"guid-1", "guid-2", "guid-1"} {
		if err := s.CommitKey(ctx, c.ID, key); err != nil {
			t.Fatalf("commit %q: %v", key, err)
		}
	}
	if err := s.CommitKey(ctx, other.ID, "guid-3"); err != nil {
		t.Fatalf("commit other: %v", err)
	}

	got, err := s.ImportedKeys(ctx, c.ID)
	if err != nil {
		t.Fatalf("imported keys: %v", err)
	}
	want := map[string]struct{}{"guid-1": {}, "guid-2": {}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ImportedKeys mismatch (-want +got):\n%s", diff)
	}
}

func TestPosts(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	posts := []model.Post{
		{Title: "First", Body: "<p>one</p>", Status: model.StatusDraft, CampaignID: 1, SourceURL: "https://a.com/1", SourceKey: "k1"},
		{Title: "Second", Body: "<p>two</p>", Status: model.StatusPublish, AuthorID: 2, CategoryID: 5, FeaturedAsset: "9", CampaignID: 1, SourceKey: "k2"},
		{Title: "Elsewhere", Body: "<p>x</p>", Status: model.StatusDraft, CampaignID: 2},
	}
	for i := range posts {
		id, err := s.SavePost(ctx, &posts[i])
		if err != nil {
			t.Fatalf("save post %d: %v", i, err)
		}
		if id == 0 {
			t.Fatal("expected non-zero post ID")
		}
	}

	got, err := s.ListPosts(ctx, 1)
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}

	var gotPosts []model.Post
	for _, p := range got {
		gotPosts = append(gotPosts, p.Post)
	}
	if diff := cmp.Diff(posts[:2], gotPosts); diff != "" {
		t.Errorf("ListPosts mismatch (-want +got):\n%s", diff)
	}
}

func TestRecentAssets(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	paths := []string{"a.jpg", "b.jpg", "c.jpg"}
	for _, p := range paths {
		if _, err := s.CreateAsset(ctx, "https://img.example/"+p, "/assets/"+p); err != nil {
			t.Fatalf("create asset: %v", err)
		}
	}

	got, err := s.ListRecentAssets(ctx, 2)
	if err != nil {
		t.Fatalf("recent assets: %v", err)
	}

	var gotURLs []string
	for _, a := range got {
		gotURLs = append(gotURLs, a.URL)
	}
	if diff := cmp.Diff([]string{"/assets/c.jpg", "/assets/b.jpg"}, gotURLs); diff != "" {
		t.Errorf("recent assets mismatch (-want +got):\n%s", diff)
	}
}

// Ensure the Storage interface is satisfied.
var _ Storage = (*SQLite)(nil)

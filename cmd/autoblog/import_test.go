package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"autoblog/internal/model"
)

func TestParseCampaignsFixture(t *testing.T) {
	f, err := os.Open("../../testdata/campaigns.yaml")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer func() { _ = f.Close() }()

	got, err := parseCampaigns(f)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []model.Campaign{
		{
			Name:     "Go Digest",
			FeedURL:  "https://news.example.com/go/rss",
			MaxItems: 20,
			Extraction: model.ExtractionConfig{
				Method:   model.ExtractCSS,
				Selector: "div.entry-content",
			},
			Filter: model.FilterConfig{
				RemoveByClass:  []string{"share-buttons", "related"},
				AddNofollow:    true,
				MinWords:       50,
				BannedKeywords: []string{"casino", "crypto"},
			},
			Rewrite: model.RewriteConfig{
				Enabled:        true,
				PromptTemplate: "Rewrite for a Go audience. Title: {title}\n\n{content}",
				Provider:       model.ProviderOpenAI,
			},
			Image:    model.ImageConfig{Download: true, SetFeatured: true},
			Publish:  model.PublishConfig{AuthorID: 2, CategoryID: 5, Status: model.StatusPublish},
			Interval: model.IntervalHourly,
			IsActive: true,
		},
		{
			Name:            "Release Notes",
			FeedURL:         "https://releases.example.com/atom.xml",
			MaxItems:        model.DefaultMaxItems,
			CheckLatestOnly: true,
			Extraction:      model.ExtractionConfig{Method: model.ExtractAuto},
			Rewrite:         model.RewriteConfig{PromptTemplate: model.DefaultPromptTemplate, Provider: model.ProviderGemini},
			Publish:         model.PublishConfig{Status: model.StatusDraft},
			Interval:        model.IntervalDaily,
			IsActive:        false,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseCampaigns mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCampaignsErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr []string
	}{
		{
			name:    "empty file",
			input:   "",
			wantErr: []string{"empty"},
		},
		{
			name:    "unknown field",
			input:   "campaigns:\n  - name: A\n    feed: https://a.example/rss\n",
			wantErr: []string{"feed"},
		},
		{
			name: "every invalid campaign reported",
			input: `campaigns:
  - name: A
    feed_url: ftp://a.example/rss
  - name: B
    feed_url: https://b.example/rss
    interval: weekly
    rewrite:
      provider: llama
`,
			wantErr: []string{"campaign 1 (A)", "absolute http(s) URL", "campaign 2 (B)", "weekly", "llama"},
		},
		{
			name: "duplicate names",
			input: `campaigns:
  - name: A
    feed_url: https://a.example/rss
  - name: A
    feed_url: https://b.example/rss
`,
			wantErr: []string{"duplicate name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCampaigns(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q missing %q", err, want)
				}
			}
		})
	}
}

func TestWriteCampaigns(t *testing.T) {
	now := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	last := now.Add(-3 * time.Hour)
	campaigns := []model.Campaign{
		{ID: 1, Name: "Go Digest", FeedURL: "https://a.example/rss", Interval: model.IntervalHourly, IsActive: true, LastRunAt: &last},
		{ID: 2, Name: "Release Notes", FeedURL: "https://b.example/rss", Interval: model.IntervalDaily},
	}

	var buf bytes.Buffer
	if err := writeCampaigns(&buf, campaigns, now); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d:\n%s", len(lines), buf.String())
	}
	for _, want := range []string{"ID", "NAME", "LAST RUN"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("header missing %q: %s", want, lines[0])
		}
	}
	if !strings.Contains(lines[1], "3 hours ago") || !strings.Contains(lines[1], "true") {
		t.Errorf("unexpected first row: %s", lines[1])
	}
	if !strings.Contains(lines[2], "never") || !strings.Contains(lines[2], "false") {
		t.Errorf("unexpected second row: %s", lines[2])
	}
}

func TestFormatReport(t *testing.T) {
	tests := []struct {
		name   string
		report model.RunReport
		want   string
	}{
		{
			name:   "skipped",
			report: model.RunReport{RunID: "r1", CampaignID: 4, Skipped: true},
			want:   "campaign 4: skipped (run r1)",
		},
		{
			name:   "counts",
			report: model.RunReport{RunID: "r2", CampaignID: 4, Fetched: 5, New: 2, Published: 1, Rejected: 1},
			want:   "campaign 4: fetched=5 new=2 published=1 rejected=1 failed=0 (run r2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, formatReport(&tt.report)); diff != "" {
				t.Errorf("formatReport() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

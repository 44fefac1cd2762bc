package image

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"autoblog/internal/model"
)

func TestFindCandidate(t *testing.T) {
	tests := []struct {
		name    string
		markup  string
		pageURL string
		want    string
		wantOK  bool
	}{
		{
			name:    "scheme relative over https",
			markup:  `<p><img src="//cdn.example/x.jpg"></p>`,
			pageURL: "https://blog.example/post",
			want:    "https://cdn.example/x.jpg",
			wantOK:  true,
		},
		{
			name:    "scheme relative over http",
			markup:  `<img src="//cdn.example/x.jpg">`,
			pageURL: "http://blog.example/post",
			want:    "http://cdn.example/x.jpg",
			wantOK:  true,
		},
		{
			name:   "scheme relative without page defaults to https",
			markup: `<img src="//cdn.example/x.jpg">`,
			want:   "https://cdn.example/x.jpg",
			wantOK: true,
		},
		{
			name:    "relative sources skipped",
			markup:  `<img src="/local.png"><img src="data:image/png;base64,AAA"><img src="https://cdn.example/second.png">`,
			pageURL: "https://blog.example/post",
			want:    "https://cdn.example/second.png",
			wantOK:  true,
		},
		{
			name:    "first absolute wins",
			markup:  `<img src="http://a.example/1.jpg"><img src="https://b.example/2.jpg">`,
			pageURL: "https://blog.example/post",
			want:    "http://a.example/1.jpg",
			wantOK:  true,
		},
		{
			name:    "no images",
			markup:  `<p>text only</p>`,
			pageURL: "https://blog.example/post",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindCandidate(tt.markup, tt.pageURL)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FindCandidate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type mockStore struct {
	sideloadErr error
	assets      []model.Asset
	sideloaded  []string
}

func (m *mockStore) Sideload(_ context.Context, imageURL string) error {
	m.sideloaded = append(m.sideloaded, imageURL)
	return m.sideloadErr
}

func (m *mockStore) RecentAssets(_ context.Context, limit int) ([]model.Asset, error) {
	if len(m.assets) > limit {
		return m.assets[:limit], nil
	}
	return m.assets, nil
}

type mockUploader struct {
	mockStore
	id  string
	err error
}

func (m *mockUploader) Upload(_ context.Context, _ string) (string, error) {
	return m.id, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		store  AssetStore
		url    string
		want   string
		wantOK bool
	}{
		{
			name: "matched among recent assets",
			store: &mockStore{assets: []model.Asset{
				{ID: "12", URL: "/assets/20250101-other.jpg"},
				{ID: "11", URL: "/assets/20250101-gopher.png"},
			}},
			url:    "https://cdn.example/images/gopher.png?w=800",
			want:   "11",
			wantOK: true,
		},
		{
			name: "match outside the recent window is ignored",
			store: &mockStore{assets: []model.Asset{
				{ID: "6", URL: "a"}, {ID: "5", URL: "b"}, {ID: "4", URL: "c"}, {ID: "3", URL: "d"}, {ID: "2", URL: "e"},
				{ID: "1", URL: "/assets/gopher.png"},
			}},
			url: "https://cdn.example/gopher.png",
		},
		{
			name:  "sideload failure",
			store: &mockStore{sideloadErr: errors.New("timeout")},
			url:   "https://cdn.example/gopher.png",
		},
		{
			name:  "url without file name",
			store: &mockStore{},
			url:   "https://cdn.example/",
		},
		{
			name:   "uploader returns id directly",
			store:  &mockUploader{id: "77"},
			url:    "https://cdn.example/gopher.png",
			want:   "77",
			wantOK: true,
		},
		{
			name:  "uploader failure",
			store: &mockUploader{err: errors.New("413")},
			url:   "https://cdn.example/gopher.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.store, discardLogger())
			got, ok := r.Resolve(context.Background(), tt.url)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

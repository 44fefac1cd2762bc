package rewrite

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/h2non/gock"

	"autoblog/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRewriter(t *testing.T) *Rewriter {
	t.Helper()
	client := &http.Client{}
	gock.InterceptClient(client)
	t.Cleanup(gock.Off)
	return New(client, discardLogger(),
		NewOpenAI("sk-test", "gpt-4"),
		NewGemini("g-test", "gemini-1.5-flash"),
		NewAnthropic("a-test", "claude-3-5-haiku-latest"),
	)
}

const pre = "<p>Original sanitized article</p>"

func TestRewriteProviders(t *testing.T) {
	tests := []struct {
		name     string
		provider model.ProviderKind
		mock     func()
		want     string
	}{
		{
			name:     "openai",
			provider: model.ProviderOpenAI,
			mock: func() {
				gock.New("https://api.openai.com").
					Post("/v1/chat/completions").
					MatchHeader("Authorization", "Bearer sk-test").
					Reply(200).
					JSON(map[string]any{"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": "openai text"}}}})
			},
			want: "openai text",
		},
		{
			name:     "gpt4 alias",
			provider: "gpt4",
			mock: func() {
				gock.New("https://api.openai.com").
					Post("/v1/chat/completions").
					Reply(201).
					JSON(map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": "alias text"}}}})
			},
			want: "alias text",
		},
		{
			name:     "gemini",
			provider: model.ProviderGemini,
			mock: func() {
				gock.New("https://generativelanguage.googleapis.com").
					Post("/v1beta/models/gemini-1.5-flash:generateContent").
					MatchHeader("x-goog-api-key", "g-test").
					Reply(200).
					JSON(map[string]any{"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": "gemini text"}}}}}})
			},
			want: "gemini text",
		},
		{
			name:     "anthropic",
			provider: model.ProviderAnthropic,
			mock: func() {
				gock.New("https://api.anthropic.com").
					Post("/v1/messages").
					MatchHeader("x-api-key", "a-test").
					MatchHeader("anthropic-version", "2023-06-01").
					Reply(200).
					JSON(map[string]any{"content": []any{map[string]any{"type": "text", "text": "claude text"}}})
			},
			want: "claude text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRewriter(t)
			tt.mock()

			got, ok := r.Rewrite(context.Background(), pre, model.RewriteConfig{Enabled: true, Provider: tt.provider}, "Title", "https://src.example/a")
			if !ok {
				t.Fatal("expected rewrite to succeed")
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Rewrite() mismatch (-want +got):\n%s", diff)
			}
			if !gock.IsDone() {
				t.Error("expected provider to be called")
			}
		})
	}
}

func TestRewriteFailuresReturnOriginal(t *testing.T) {
	tests := []struct {
		name     string
		provider model.ProviderKind
		mock     func()
	}{
		{
			name:     "http 500",
			provider: model.ProviderOpenAI,
			mock: func() {
				gock.New("https://api.openai.com").Post("/v1/chat/completions").Reply(500).BodyString("<html>Internal Server Error</html>")
			},
		},
		{
			name:     "unparsable json",
			provider: model.ProviderGemini,
			mock: func() {
				gock.New("https://generativelanguage.googleapis.com").Post("/v1beta/models/gemini-1.5-flash:generateContent").Reply(200).BodyString("not json")
			},
		},
		{
			name:     "unrecognized shape",
			provider: model.ProviderAnthropic,
			mock: func() {
				gock.New("https://api.anthropic.com").Post("/v1/messages").Reply(200).JSON(map[string]any{"unexpected": true})
			},
		},
		{
			name:     "empty text",
			provider: model.ProviderOpenAI,
			mock: func() {
				gock.New("https://api.openai.com").Post("/v1/chat/completions").Reply(200).
					JSON(map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": "  "}}}})
			},
		},
		{
			name:     "unknown provider falls back to gemini then fails",
			provider: "mystery",
			mock: func() {
				gock.New("https://generativelanguage.googleapis.com").Post("/v1beta/models/gemini-1.5-flash:generateContent").Reply(503)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRewriter(t)
			tt.mock()

			got, ok := r.Rewrite(context.Background(), pre, model.RewriteConfig{Enabled: true, Provider: tt.provider}, "T", "https://src.example/a")
			if ok {
				t.Fatal("expected rewrite to fail")
			}
			if diff := cmp.Diff(pre, got); diff != "" {
				t.Errorf("Rewrite() should return original (-want +got):\n%s", diff)
			}
		})
	}
}

type countingClient struct{ calls int }

func (c *countingClient) Do(_ *http.Request) (*http.Response, error) {
	c.calls++
	return nil, io.ErrUnexpectedEOF
}

func TestRewriteMissingCredentials(t *testing.T) {
	client := &countingClient{}
	r := New(client, discardLogger(), NewOpenAI("", "gpt-4"))

	got, ok := r.Rewrite(context.Background(), pre, model.RewriteConfig{Provider: model.ProviderOpenAI}, "", "")
	if ok || got != pre {
		t.Errorf("Rewrite() = %q, %v; want original, false", got, ok)
	}
	if client.calls != 0 {
		t.Errorf("expected no request without credentials, got %d", client.calls)
	}
}

func TestRewriteTransportError(t *testing.T) {
	client := &countingClient{}
	r := New(client, discardLogger(), NewOpenAI("sk-test", "gpt-4"))

	got, ok := r.Rewrite(context.Background(), pre, model.RewriteConfig{Provider: model.ProviderOpenAI}, "T", "https://src.example/a")
	if ok || got != pre {
		t.Errorf("Rewrite() = %q, %v; want original, false", got, ok)
	}
	if client.calls != 1 {
		t.Errorf("expected one request attempt, got %d", client.calls)
	}
}

func TestRewriteProviderNotConfigured(t *testing.T) {
	r := New(http.DefaultClient, discardLogger())
	got, ok := r.Rewrite(context.Background(), pre, model.RewriteConfig{Provider: model.ProviderAnthropic}, "", "")
	if ok || got != pre {
		t.Errorf("Rewrite() = %q, %v; want original, false", got, ok)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short unchanged", in: "abc", n: 5, want: "abc"},
		{name: "exact unchanged", in: "abcde", n: 5, want: "abcde"},
		{name: "cut with ellipsis", in: "abcdef", n: 5, want: "abcde..."},
		{name: "counts runes", in: "héllo wörld", n: 4, want: "héll..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Truncate(tt.in, tt.n)); diff != "" {
				t.Errorf("Truncate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{name: "default template", template: model.DefaultPromptTemplate, want: "Rewrite this content: BODY"},
		{name: "bracket placeholders", template: "[title] from [source_url]: [content]", want: "T from https://s.example: BODY"},
		{name: "brace placeholders", template: "{title} ({source_url})\n{content}", want: "T (https://s.example)\nBODY"},
		{name: "no placeholders", template: "static", want: "static"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildPrompt(tt.template, "BODY", "T", "https://s.example")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildPrompt() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRewriteTruncatesPayload(t *testing.T) {
	r := newTestRewriter(t)
	long := strings.Repeat("x", MaxContentRunes+100)

	var sent string
	gock.New("https://api.openai.com").
		Post("/v1/chat/completions").
		AddMatcher(func(req *http.Request, _ *gock.Request) (bool, error) {
			b, err := io.ReadAll(req.Body)
			sent = string(b)
			return true, err
		}).
		Reply(200).
		JSON(map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": "ok"}}}})

	if _, ok := r.Rewrite(context.Background(), long, model.RewriteConfig{Provider: model.ProviderOpenAI}, "", ""); !ok {
		t.Fatal("expected rewrite to succeed")
	}
	if strings.Contains(sent, strings.Repeat("x", MaxContentRunes+1)) {
		t.Error("payload was not truncated")
	}
	if !strings.Contains(sent, strings.Repeat("x", MaxContentRunes)+"...") {
		t.Error("payload missing truncation marker")
	}
}

// Package rewrite sends article content through an external text
// generation provider. Failures never leave this package: the caller
// always gets usable content back.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"autoblog/internal/model"
)

// MaxContentRunes bounds the content substituted into a prompt.
const MaxContentRunes = 5000

// ErrMissingCredentials is returned by providers without an API key.
var ErrMissingCredentials = errors.New("missing credentials")

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider builds requests for one text generation backend and extracts
// the generated text from its responses.
type Provider interface {
	Kind() model.ProviderKind
	NewRequest(ctx context.Context, prompt string) (*http.Request, error)
	ParseResponse(body []byte) (string, error)
}

// Rewriter dispatches prompts to the provider selected by a campaign.
type Rewriter struct {
	client    HTTPClient
	providers map[model.ProviderKind]Provider
	timeout   time.Duration
	log       *slog.Logger
}

// New creates a Rewriter serving the given providers.
func New(client HTTPClient, log *slog.Logger, providers ...Provider) *Rewriter {
	r := &Rewriter{
		client:    client,
		providers: make(map[model.ProviderKind]Provider, len(providers)),
		timeout:   30 * time.Second,
		log:       log,
	}
	for _, p := range providers {
		r.providers[p.Kind()] = p
	}
	return r
}

// Rewrite returns the provider's rewrite of content and true, or content
// unchanged and false when the rewrite could not be obtained.
func (r *Rewriter) Rewrite(ctx context.Context, content string, cfg model.RewriteConfig, title, sourceURL string) (string, bool) {
	kind, ok := model.ParseProvider(string(cfg.Provider))
	if !ok {
		kind = model.ProviderGemini
	}
	p, ok := r.providers[kind]
	if !ok {
		r.log.Warn("rewrite skipped", "provider", kind, "error", "provider not configured")
		return content, false
	}

	template := cfg.PromptTemplate
	if template == "" {
		template = model.DefaultPromptTemplate
	}
	prompt := BuildPrompt(template, Truncate(content, MaxContentRunes), title, sourceURL)

	out, err := r.call(ctx, p, prompt)
	if err != nil {
		r.log.Warn("rewrite failed", "provider", kind, "url", sourceURL, "error", err)
		return content, false
	}
	return out, true
}

func (r *Rewriter) call(ctx context.Context, p Provider, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := p.NewRequest(ctx, prompt)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	text, err := p.ParseResponse(body)
	if err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("parse response: empty text")
	}
	return text, nil
}

// Truncate cuts s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// BuildPrompt substitutes the content, title and source_url placeholders.
// Both {name} and [name] forms are recognized.
func BuildPrompt(template, content, title, sourceURL string) string {
	return strings.NewReplacer(
		"{content}", content, "[content]", content,
		"{title}", title, "[title]", title,
		"{source_url}", sourceURL, "[source_url]", sourceURL,
	).Replace(template)
}

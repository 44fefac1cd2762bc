// Package filter implements the sanitize chain and the content quality
// filter applied to extracted articles.
package filter

import (
	"fmt"
	"strings"

	"autoblog/internal/model"
)

// Rejection is returned when content fails a quality check.
type Rejection struct {
	Reason model.RejectReason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return "rejected: " + string(r.Reason)
	}
	return fmt.Sprintf("rejected: %s (%s)", r.Reason, r.Detail)
}

// Check applies the word count and keyword checks to plain text.
// Every check must pass; the first failing one is reported.
func Check(text string, cfg model.FilterConfig) error {
	words := len(strings.Fields(text))
	if cfg.MinWords > 0 && words < cfg.MinWords {
		return &Rejection{Reason: model.RejectTooShort, Detail: fmt.Sprintf("%d < %d words", words, cfg.MinWords)}
	}
	if cfg.MaxWords > 0 && words > cfg.MaxWords {
		return &Rejection{Reason: model.RejectTooLong, Detail: fmt.Sprintf("%d > %d words", words, cfg.MaxWords)}
	}

	lower := strings.ToLower(text)
	for _, kw := range cfg.RequiredKeywords {
		if kw = strings.TrimSpace(kw); kw == "" {
			continue
		}
		if !strings.Contains(lower, strings.ToLower(kw)) {
			return &Rejection{Reason: model.RejectMissingKeyword, Detail: kw}
		}
	}
	for _, kw := range cfg.BannedKeywords {
		if kw = strings.TrimSpace(kw); kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return &Rejection{Reason: model.RejectBannedKeyword, Detail: kw}
		}
	}
	return nil
}

// Pipeline runs the sanitize stage followed by the quality filter.
type Pipeline struct {
	sanitizer *Sanitizer
}

// NewPipeline creates a Pipeline for a site whose own links are never
// marked nofollow.
func NewPipeline(siteURL string) *Pipeline {
	return &Pipeline{sanitizer: NewSanitizer(siteURL)}
}

// Apply sanitizes markup and checks its plain text. It returns the
// sanitized markup, or a *Rejection.
func (p *Pipeline) Apply(markup string, cfg model.FilterConfig) (string, error) {
	clean, err := p.sanitizer.Sanitize(markup, cfg)
	if err != nil {
		return "", err
	}
	if err := Check(PlainText(clean), cfg); err != nil {
		return "", err
	}
	return clean, nil
}

// Clean applies only the allow-list sanitizer. Used for rewritten content.
func (p *Pipeline) Clean(markup string) string {
	return p.sanitizer.policy.Sanitize(markup)
}

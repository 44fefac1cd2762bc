package model

import (
	"fmt"
	"net/url"

	"go.uber.org/multierr"
)

// Validate reports every configuration problem of a campaign at once.
func (c *Campaign) Validate() error {
	var err error

	if c.Name == "" {
		err = multierr.Append(err, fmt.Errorf("name is required"))
	}
	if c.FeedURL == "" {
		err = multierr.Append(err, fmt.Errorf("feed URL is required"))
	} else if u, perr := url.Parse(c.FeedURL); perr != nil || (u.Scheme != "http" && u.Scheme != "https") {
		err = multierr.Append(err, fmt.Errorf("feed URL %q must be an absolute http(s) URL", c.FeedURL))
	}
	if c.MaxItems < 0 {
		err = multierr.Append(err, fmt.Errorf("max items must be positive, got %d", c.MaxItems))
	}

	switch c.Extraction.Method {
	case "", ExtractAuto, ExtractCSS:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown extraction method %q", c.Extraction.Method))
	}

	if c.Filter.MinWords < 0 || c.Filter.MaxWords < 0 {
		err = multierr.Append(err, fmt.Errorf("word limits must not be negative"))
	}
	if c.Filter.MaxWords > 0 && c.Filter.MinWords > c.Filter.MaxWords {
		err = multierr.Append(err, fmt.Errorf("min words %d exceeds max words %d", c.Filter.MinWords, c.Filter.MaxWords))
	}

	if _, ok := ParseProvider(string(c.Rewrite.Provider)); !ok && c.Rewrite.Provider != "" {
		err = multierr.Append(err, fmt.Errorf("unknown rewrite provider %q", c.Rewrite.Provider))
	}

	switch c.Publish.Status {
	case "", StatusPublish, StatusDraft, StatusPending:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown post status %q", c.Publish.Status))
	}

	switch c.Interval {
	case "", IntervalHourly, IntervalThirtyMin, IntervalDaily, IntervalTwiceDaily:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown schedule interval %q", c.Interval))
	}

	return err
}

// ApplyDefaults fills unset optional fields.
func (c *Campaign) ApplyDefaults() {
	if c.MaxItems == 0 {
		c.MaxItems = DefaultMaxItems
	}
	if c.Extraction.Method == "" {
		c.Extraction.Method = ExtractAuto
	}
	if c.Rewrite.PromptTemplate == "" {
		c.Rewrite.PromptTemplate = DefaultPromptTemplate
	}
	if p, ok := ParseProvider(string(c.Rewrite.Provider)); ok {
		c.Rewrite.Provider = p
	} else if c.Rewrite.Provider == "" {
		c.Rewrite.Provider = ProviderGemini
	}
	if c.Publish.Status == "" {
		c.Publish.Status = StatusDraft
	}
	if c.Interval == "" {
		c.Interval = IntervalDaily
	}
}

// ParseProvider normalizes a provider name, accepting the "gpt4" alias.
func ParseProvider(s string) (ProviderKind, bool) {
	switch s {
	case "gemini":
		return ProviderGemini, true
	case "openai", "gpt4":
		return ProviderOpenAI, true
	case "anthropic":
		return ProviderAnthropic, true
	}
	return "", false
}

// Package extract retrieves article pages and isolates their main content.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"autoblog/internal/model"
)

var (
	// ErrUnavailable is returned when the article page cannot be retrieved.
	ErrUnavailable = errors.New("article unavailable")
	// ErrNotFound is returned when no content container matches.
	ErrNotFound = errors.New("content not found")
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Extractor downloads article pages and extracts their content markup.
type Extractor struct {
	client    HTTPClient
	timeout   time.Duration
	userAgent string
}

// New creates an Extractor with the given HTTP client.
func New(client HTTPClient, userAgent string) *Extractor {
	if userAgent == "" {
		userAgent = "AutoBlog/1.0"
	}
	return &Extractor{
		client:    client,
		timeout:   15 * time.Second,
		userAgent: userAgent,
	}
}

// Extract fetches the page at url and returns the inner markup selected by cfg.
func (e *Extractor) Extract(ctx context.Context, url string, cfg model.ExtractionConfig) (*model.Document, error) {
	doc, finalURL, err := e.load(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	markup, err := Select(doc, cfg)
	if err != nil {
		return nil, err
	}
	return &model.Document{Markup: markup, URL: finalURL}, nil
}

func (e *Extractor) load(ctx context.Context, url string) (*goquery.Document, string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, "", fmt.Errorf("empty body")
	}

	r, err := charset.NewReader(bytes.NewReader(body), resp.Header.Get("Content-Type"))
	if err != nil {
		r = bytes.NewReader(body)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("parse html: %w", err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return doc, finalURL, nil
}

// Select applies the extraction method to an already parsed page.
// A css method with an empty selector behaves like auto.
func Select(doc *goquery.Document, cfg model.ExtractionConfig) (string, error) {
	if cfg.Method == model.ExtractCSS && strings.TrimSpace(cfg.Selector) != "" {
		return selectCSS(doc, cfg.Selector)
	}
	return selectAuto(doc)
}

var (
	classClause = regexp.MustCompile(`^\.([A-Za-z0-9_-]+)$`)
	idClause    = regexp.MustCompile(`^#([A-Za-z0-9_-]+)$`)
	tagClause   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
)

// selectCSS supports a comma-separated list of bare tag, .class and #id
// clauses. Other clauses are skipped.
func selectCSS(doc *goquery.Document, selector string) (string, error) {
	var parts []string
	for _, clause := range strings.Split(selector, ",") {
		clause = strings.TrimSpace(clause)

		var matches *goquery.Selection
		switch {
		case classClause.MatchString(clause):
			name := classClause.FindStringSubmatch(clause)[1]
			matches = doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
				return hasClassToken(s, name)
			})
		case idClause.MatchString(clause):
			id := idClause.FindStringSubmatch(clause)[1]
			matches = doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
				v, _ := s.Attr("id")
				return v == id
			})
		case tagClause.MatchString(clause):
			matches = doc.Find(strings.ToLower(clause))
		default:
			continue
		}

		matches.Each(func(_ int, s *goquery.Selection) {
			if h, err := s.Html(); err == nil {
				parts = append(parts, h)
			}
		})
	}

	if len(parts) == 0 {
		return "", ErrNotFound
	}
	return strings.Join(parts, "\n"), nil
}

func hasClassToken(s *goquery.Selection, name string) bool {
	class, _ := s.Attr("class")
	for _, tok := range strings.Fields(class) {
		if tok == name {
			return true
		}
	}
	return false
}

// autoCandidates are tried in order; the first one with a non-empty match wins.
var autoCandidates = []func(doc *goquery.Document) *goquery.Selection{
	func(doc *goquery.Document) *goquery.Selection { return doc.Find("article") },
	classContains("entry-content"),
	classContains("post-content"),
	classContains("article-content"),
	classContains("content"),
}

func classContains(name string) func(doc *goquery.Document) *goquery.Selection {
	return func(doc *goquery.Document) *goquery.Selection {
		return doc.Find(`div[class*="` + name + `"]`)
	}
}

func selectAuto(doc *goquery.Document) (string, error) {
	for _, candidates := range autoCandidates {
		if best := longestText(candidates(doc)); best != nil {
			return best.Html()
		}
	}
	if best := longestText(doc.Find("div")); best != nil {
		return best.Html()
	}
	return "", ErrNotFound
}

// longestText returns the element with the longest trimmed text, the first
// one on ties, or nil when every element is empty.
func longestText(sel *goquery.Selection) *goquery.Selection {
	var (
		best    *goquery.Selection
		bestLen int
	)
	sel.Each(func(_ int, s *goquery.Selection) {
		n := utf8.RuneCountInString(strings.TrimSpace(s.Text()))
		if n > bestLen {
			best, bestLen = s, n
		}
	})
	return best
}

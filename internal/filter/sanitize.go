package filter

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"autoblog/internal/model"
)

const nonContentTags = "script, style, noscript, iframe, aside, form"

// Sanitizer performs the structural cleanup of article markup.
type Sanitizer struct {
	siteHost string
	policy   *bluemonday.Policy
}

// NewSanitizer creates a Sanitizer. siteURL identifies internal links.
func NewSanitizer(siteURL string) *Sanitizer {
	var host string
	if u, err := url.Parse(siteURL); err == nil {
		host = strings.ToLower(u.Hostname())
	}
	return &Sanitizer{siteHost: host, policy: postBodyPolicy()}
}

// postBodyPolicy allows the markup of a rich blog post body. It leaves rel
// attributes alone so the link policy stays in control of nofollow.
func postBodyPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardAttributes()
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).Globally()

	p.AllowElements("p", "br", "hr", "div", "span", "section", "article",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"strong", "b", "em", "i", "u", "s", "del", "ins", "mark", "small", "sub", "sup",
		"blockquote", "q", "cite", "abbr", "pre", "code", "figure", "figcaption")

	p.AllowURLSchemes("mailto", "http", "https")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("rel").Matching(bluemonday.SpaceSeparatedTokens).OnElements("a")
	p.AllowAttrs("target").Matching(bluemonday.Paragraph).OnElements("a")

	p.AllowAttrs("src").OnElements("img")
	p.AllowAttrs("alt").Matching(bluemonday.Paragraph).OnElements("img")
	p.AllowAttrs("height", "width").Matching(bluemonday.NumberOrPercent).OnElements("img")
	p.AllowLists()
	p.AllowTables()
	p.RequireNoFollowOnLinks(false)
	return p
}

// Sanitize applies the cleanup steps in order: non-content tags, class and
// id removals, the link policy, image stripping, then the allow-list.
func (s *Sanitizer) Sanitize(markup string, cfg model.FilterConfig) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("parse markup: %w", err)
	}
	body := doc.Find("body")

	body.Find(nonContentTags).Remove()

	for _, name := range cfg.RemoveByClass {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		body.Find("[class]").FilterFunction(func(_ int, sel *goquery.Selection) bool {
			return hasClassToken(sel, name)
		}).Remove()
	}

	for _, id := range cfg.RemoveByID {
		if id = strings.TrimSpace(id); id == "" {
			continue
		}
		body.Find("[id]").FilterFunction(func(_ int, sel *goquery.Selection) bool {
			v, _ := sel.Attr("id")
			return v == id
		}).Remove()
	}

	switch {
	case cfg.StripLinks:
		stripLinks(body)
	case cfg.AddNofollow:
		s.addNofollow(body)
	}

	if cfg.StripImages {
		body.Find("img").Remove()
	}

	out, err := body.Html()
	if err != nil {
		return "", fmt.Errorf("render markup: %w", err)
	}
	return strings.TrimSpace(s.policy.Sanitize(out)), nil
}

// stripLinks replaces every anchor with its text.
func stripLinks(body *goquery.Selection) {
	body.Find("a").Each(func(_ int, a *goquery.Selection) {
		a.ReplaceWithNodes(&html.Node{Type: html.TextNode, Data: a.Text()})
	})
}

func (s *Sanitizer) addNofollow(body *goquery.Selection) {
	body.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil || u.Host == "" || strings.EqualFold(u.Hostname(), s.siteHost) {
			return
		}
		rel, _ := a.Attr("rel")
		tokens := strings.Fields(rel)
		for _, t := range tokens {
			if strings.EqualFold(t, "nofollow") {
				return
			}
		}
		a.SetAttr("rel", strings.Join(append(tokens, "nofollow"), " "))
	})
}

func hasClassToken(sel *goquery.Selection, name string) bool {
	class, _ := sel.Attr("class")
	for _, tok := range strings.Fields(class) {
		if tok == name {
			return true
		}
	}
	return false
}

package filter

import (
	"strings"
	"testing"

	"autoblog/internal/model"
)

func TestSanitize(t *testing.T) {
	s := NewSanitizer("https://myblog.example")

	tests := []struct {
		name        string
		markup      string
		cfg         model.FilterConfig
		contains    []string
		notContains []string
	}{
		{
			name:        "non-content tags removed",
			markup:      `<p>keep</p><script>bad()</script><style>p{}</style><noscript>ns</noscript><iframe src="https://x.example"></iframe><aside>side</aside><form><input></form>`,
			contains:    []string{"<p>keep</p>"},
			notContains: []string{"bad()", "p{}", "ns", "iframe", "side", "form", "input"},
		},
		{
			name:        "class removal is token exact",
			markup:      `<div class="ads top">ad</div><div class="ads-wide">wide</div><p>body</p>`,
			cfg:         model.FilterConfig{RemoveByClass: []string{"ads", " "}},
			contains:    []string{"wide", "body"},
			notContains: []string{">ad<"},
		},
		{
			name:        "id removal is exact",
			markup:      `<div id="comments">c</div><div id="comments-2">c2</div>`,
			cfg:         model.FilterConfig{RemoveByID: []string{"comments"}},
			contains:    []string{"c2"},
			notContains: []string{">c<"},
		},
		{
			name:        "strip links keeps text",
			markup:      `<p>Read <a href="https://other.example/a">the <b>guide</b></a> now</p>`,
			cfg:         model.FilterConfig{StripLinks: true},
			contains:    []string{"Read the guide now"},
			notContains: []string{"<a", "href", "<b>"},
		},
		{
			name:        "strip links wins over nofollow",
			markup:      `<p><a href="https://other.example/a">x</a> <a href="/local" rel="nofollow">y</a></p>`,
			cfg:         model.FilterConfig{StripLinks: true, AddNofollow: true},
			contains:    []string{"x y"},
			notContains: []string{"<a", "nofollow"},
		},
		{
			name:        "nofollow on external links only",
			markup:      `<p><a href="https://other.example/a">ext</a><a href="https://myblog.example/b">own</a><a href="/rel">rel</a></p>`,
			cfg:         model.FilterConfig{AddNofollow: true},
			contains:    []string{`<a href="https://other.example/a" rel="nofollow">ext</a>`, `<a href="https://myblog.example/b">own</a>`, `<a href="/rel">rel</a>`},
		},
		{
			name:     "nofollow appended to existing rel",
			markup:   `<a href="https://other.example/a" rel="noopener">ext</a>`,
			cfg:      model.FilterConfig{AddNofollow: true},
			contains: []string{`rel="noopener nofollow"`},
		},
		{
			name:        "images stripped",
			markup:      `<p>text<img src="https://cdn.example/a.jpg"></p>`,
			cfg:         model.FilterConfig{StripImages: true},
			contains:    []string{"text"},
			notContains: []string{"<img"},
		},
		{
			name:        "unsafe attributes dropped by allow-list",
			markup:      `<p onclick="steal()">hi <a href="javascript:alert(1)">x</a></p><img src="//cdn.example/x.jpg" onerror="bad()">`,
			contains:    []string{"<p>hi", `src="//cdn.example/x.jpg"`},
			notContains: []string{"onclick", "javascript", "onerror"},
		},
		{
			name:        "links untouched without link options",
			markup:      `<a href="https://other.example/a">ext</a>`,
			contains:    []string{`<a href="https://other.example/a">ext</a>`},
			notContains: []string{"nofollow"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Sanitize(tt.markup, tt.cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
			for _, bad := range tt.notContains {
				if strings.Contains(got, bad) {
					t.Errorf("output unexpectedly contains %q:\n%s", bad, got)
				}
			}
		})
	}
}

func TestSanitizeNofollowIdempotent(t *testing.T) {
	s := NewSanitizer("https://myblog.example")
	cfg := model.FilterConfig{AddNofollow: true}

	first, err := s.Sanitize(`<a href="https://other.example/a" rel="nofollow">x</a><a href="https://other.example/b">y</a>`, cfg)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := s.Sanitize(first, cfg)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}

	if first != second {
		t.Errorf("second pass changed output:\nfirst:  %s\nsecond: %s", first, second)
	}
	if n := strings.Count(second, "nofollow"); n != 2 {
		t.Errorf("expected 2 nofollow tokens, got %d in %s", n, second)
	}
}

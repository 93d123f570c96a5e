package crawl_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/gosearch/internal/crawl"
)

// newTestDocument parses inline HTML into a goquery document.
func newTestDocument(t *testing.T, html string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse test html: %v", err)
	}

	return doc
}

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		baseURL string
		html    string
		want    []string
	}{
		{
			name:    "absolute same-host link kept",
			baseURL: "https://example.com/page",
			html:    `<a href="https://example.com/other">other</a>`,
			want:    []string{"https://example.com/other"},
		},
		{
			name:    "relative link resolved against base",
			baseURL: "https://example.com/section/page",
			html:    `<a href="article">article</a><a href="/top">top</a>`,
			want:    []string{"https://example.com/section/article", "https://example.com/top"},
		},
		{
			name:    "external host dropped",
			baseURL: "https://example.com/",
			html:    `<a href="https://other.example.org/page">external</a>`,
			want:    nil,
		},
		{
			name:    "mailto tel javascript skipped",
			baseURL: "https://example.com/",
			html: `<a href="mailto:someone@example.com">mail</a>` +
				`<a href="tel:+15551234567">call</a>` +
				`<a href="javascript:void(0)">js</a>`,
			want: nil,
		},
		{
			name:    "fragment-only link skipped",
			baseURL: "https://example.com/page",
			html:    `<a href="#section">jump</a>`,
			want:    nil,
		},
		{
			name:    "excluded paths dropped",
			baseURL: "https://example.com/",
			html: `<a href="/login">login</a>` +
				`<a href="/logout">logout</a>` +
				`<a href="/signout">signout</a>` +
				`<a href="/admin/panel">admin</a>` +
				`<a href="/news">news</a>`,
			want: []string{"https://example.com/news"},
		},
		{
			name:    "fragment stripped query preserved",
			baseURL: "https://example.com/",
			html:    `<a href="/search?q=go&page=2#results">results</a>`,
			want:    []string{"https://example.com/search?q=go&page=2"},
		},
		{
			name:    "duplicates removed in insertion order",
			baseURL: "https://example.com/",
			html: `<a href="/b">b</a>` +
				`<a href="/a">a</a>` +
				`<a href="/b#frag">b again</a>` +
				`<a href="/a">a again</a>`,
			want: []string{"https://example.com/b", "https://example.com/a"},
		},
		{
			name:    "empty href skipped",
			baseURL: "https://example.com/",
			html:    `<a href="">empty</a><a>missing</a>`,
			want:    nil,
		},
	}

	extractor := crawl.NewLinkExtractor()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := newTestDocument(t, "<html><body>"+tt.html+"</body></html>")

			got := extractor.Extract(tt.baseURL, doc)

			if len(got) != len(tt.want) {
				t.Fatalf("expected %d links %v, got %d links %v", len(tt.want), tt.want, len(got), got)
			}

			for i, want := range tt.want {
				if got[i] != want {
					t.Errorf("link %d: expected %q, got %q", i, want, got[i])
				}
			}
		})
	}
}

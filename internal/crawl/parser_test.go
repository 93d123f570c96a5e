package crawl_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jonesrussell/gosearch/internal/crawl"
)

const parserTestURL = "https://example.com/technology/go-generics"

func TestParse_TitleAndContent(t *testing.T) {
	t.Parallel()

	html := `<!DOCTYPE html>
<html>
<head><title>  Go Generics Explained  </title></head>
<body>
  <nav>Site navigation</nav>
  <script>var tracked = true;</script>
  <style>.hidden { display: none }</style>
  <article><p>Generics arrived   in Go 1.18.</p></article>
  <footer>Copyright notice</footer>
</body>
</html>`

	parser := crawl.NewHTMLParser(crawl.NewLinkExtractor())

	record, err := parser.Parse(parserTestURL, []byte(html))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	if record.Title != "Go Generics Explained" {
		t.Errorf("expected trimmed title, got %q", record.Title)
	}

	if record.Content != "Generics arrived in Go 1.18." {
		t.Errorf("expected stripped collapsed content, got %q", record.Content)
	}

	for _, leaked := range []string{"navigation", "tracked", "hidden", "Copyright"} {
		if strings.Contains(record.Content, leaked) {
			t.Errorf("expected %q to be stripped from content", leaked)
		}
	}

	if record.URL != parserTestURL {
		t.Errorf("expected record URL %q, got %q", parserTestURL, record.URL)
	}
}

func TestParse_MissingTitleFallsBack(t *testing.T) {
	t.Parallel()

	parser := crawl.NewHTMLParser(crawl.NewLinkExtractor())

	record, err := parser.Parse(parserTestURL, []byte(`<html><body><p>text</p></body></html>`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	if record.Title != "No Title" {
		t.Errorf("expected fallback title, got %q", record.Title)
	}
}

func TestParse_PublishedAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		head string
		want *time.Time
	}{
		{
			name: "article published_time meta",
			head: `<meta property="article:published_time" content="2024-03-15T10:30:00Z">`,
			want: timePtr(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)),
		},
		{
			name: "pubdate meta date only",
			head: `<meta name="pubdate" content="2024-03-15">`,
			want: timePtr(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)),
		},
		{
			name: "datePublished itemprop",
			head: `<meta itemprop="datePublished" content="2024-03-15T10:30:00">`,
			want: timePtr(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)),
		},
		{
			name: "published_time preferred over pubdate",
			head: `<meta name="pubdate" content="2020-01-01">` +
				`<meta property="article:published_time" content="2024-03-15T10:30:00Z">`,
			want: timePtr(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)),
		},
		{
			name: "unparseable date ignored",
			head: `<meta property="article:published_time" content="yesterday">`,
			want: nil,
		},
		{
			name: "no date meta",
			head: ``,
			want: nil,
		},
	}

	parser := crawl.NewHTMLParser(crawl.NewLinkExtractor())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			html := "<html><head>" + tt.head + "</head><body><p>text</p></body></html>"

			record, err := parser.Parse(parserTestURL, []byte(html))
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}

			switch {
			case tt.want == nil && record.PublishedAt != nil:
				t.Errorf("expected no published date, got %v", record.PublishedAt)
			case tt.want != nil && record.PublishedAt == nil:
				t.Errorf("expected published date %v, got nil", tt.want)
			case tt.want != nil && !record.PublishedAt.Equal(*tt.want):
				t.Errorf("expected published date %v, got %v", tt.want, record.PublishedAt)
			}
		})
	}
}

func TestParse_Category(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pageURL string
		head    string
		want    string
	}{
		{
			name:    "article section meta wins",
			pageURL: parserTestURL,
			head:    `<meta property="article:section" content="Science">`,
			want:    "Science",
		},
		{
			name:    "first path segment",
			pageURL: "https://example.com/technology/article-1",
			head:    ``,
			want:    "technology",
		},
		{
			name:    "short path segment falls back",
			pageURL: "https://example.com/en/article-1",
			head:    ``,
			want:    "general",
		},
		{
			name:    "root path falls back",
			pageURL: "https://example.com/",
			head:    ``,
			want:    "general",
		},
	}

	parser := crawl.NewHTMLParser(crawl.NewLinkExtractor())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			html := "<html><head>" + tt.head + "</head><body><p>text</p></body></html>"

			record, err := parser.Parse(tt.pageURL, []byte(html))
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}

			if record.Category != tt.want {
				t.Errorf("expected category %q, got %q", tt.want, record.Category)
			}
		})
	}
}

func TestParse_Images(t *testing.T) {
	t.Parallel()

	html := `<html><body>
  <img src="/images/hero.jpg" alt="  A detailed hero image  ">
  <img src="data:image/png;base64,AAAA" alt="inline">
  <img src="https://example.com/images/hero.jpg" alt="duplicate">
  <img src="https://cdn.example.org/banner.png">
  <img alt="no source">
</body></html>`

	parser := crawl.NewHTMLParser(crawl.NewLinkExtractor())

	record, err := parser.Parse("https://example.com/page", []byte(html))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	if len(record.Images) != 2 {
		t.Fatalf("expected 2 images, got %d: %+v", len(record.Images), record.Images)
	}

	first := record.Images[0]
	if first.URL != "https://example.com/images/hero.jpg" {
		t.Errorf("expected resolved image URL, got %q", first.URL)
	}

	if first.Alt != "A detailed hero image" {
		t.Errorf("expected trimmed alt text, got %q", first.Alt)
	}

	if first.Position != 0 {
		t.Errorf("expected position 0, got %d", first.Position)
	}

	second := record.Images[1]
	if second.URL != "https://cdn.example.org/banner.png" {
		t.Errorf("expected cross-host image kept, got %q", second.URL)
	}

	if second.Position != 3 {
		t.Errorf("expected document position 3, got %d", second.Position)
	}
}

func TestParse_LinksExtracted(t *testing.T) {
	t.Parallel()

	html := `<html><body>
  <a href="/articles/first">first</a>
  <a href="https://other.example.org/away">external</a>
</body></html>`

	parser := crawl.NewHTMLParser(crawl.NewLinkExtractor())

	record, err := parser.Parse("https://example.com/", []byte(html))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	if len(record.Links) != 1 || record.Links[0] != "https://example.com/articles/first" {
		t.Errorf("expected single internal link, got %v", record.Links)
	}
}

func timePtr(v time.Time) *time.Time {
	return &v
}

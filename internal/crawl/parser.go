package crawl

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/gosearch/internal/domain"
)

// Parser turns a fetched HTML body into a structured page record.
// Site-specific variants can be added without touching the worker.
type Parser interface {
	Parse(pageURL string, body []byte) (*domain.PageRecord, error)
}

// strippedSelectors lists elements removed before any extraction.
const strippedSelectors = "script, style, nav, footer, header, noscript, iframe"

// fallbackTitle is used for pages without a <title>.
const fallbackTitle = "No Title"

// fallbackCategory is used when neither meta tags nor the URL path yield
// a category.
const fallbackCategory = "general"

// publishedMetaSelectors are checked in order for a publication date.
var publishedMetaSelectors = []string{
	"meta[property='article:published_time']",
	"meta[name='pubdate']",
	"meta[itemprop='datePublished']",
}

// publishedLayouts are the accepted publication date formats.
var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// HTMLParser is the default parser for generic web pages.
type HTMLParser struct {
	links *LinkExtractor
}

// NewHTMLParser creates an HTMLParser that discovers outbound links with
// the given extractor.
func NewHTMLParser(links *LinkExtractor) *HTMLParser {
	return &HTMLParser{links: links}
}

// Parse extracts title, cleaned text, category, publication date, images,
// and same-host links from an HTML document.
func (p *HTMLParser) Parse(pageURL string, body []byte) (*domain.PageRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc.Find(strippedSelectors).Remove()

	record := &domain.PageRecord{
		URL:         pageURL,
		Title:       extractTitle(doc),
		Content:     extractText(doc),
		Category:    extractCategory(pageURL, doc),
		PublishedAt: extractPublishedAt(doc),
		Images:      extractImages(pageURL, doc),
		Links:       p.links.Extract(pageURL, doc),
	}

	return record, nil
}

// extractTitle returns the page title, or a fallback for untitled pages.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}

	return fallbackTitle
}

// extractText returns the document text with whitespace runs collapsed.
func extractText(doc *goquery.Document) string {
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// extractPublishedAt reads the publication date from meta tags, trying
// each known tag and format in order.
func extractPublishedAt(doc *goquery.Document) *time.Time {
	for _, selector := range publishedMetaSelectors {
		content, exists := doc.Find(selector).Attr("content")
		if !exists {
			continue
		}

		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}

		for _, layout := range publishedLayouts {
			if parsed, parseErr := time.Parse(layout, content); parseErr == nil {
				return &parsed
			}
		}
	}

	return nil
}

// extractCategory prefers the article:section meta tag, then the first
// URL path segment when it is long enough to be meaningful (skips locale
// prefixes like /en/).
func extractCategory(pageURL string, doc *goquery.Document) string {
	if section, exists := doc.Find("meta[property='article:section']").Attr("content"); exists {
		if section = strings.TrimSpace(section); section != "" {
			return section
		}
	}

	if parsed, err := url.Parse(pageURL); err == nil {
		for _, segment := range strings.Split(parsed.Path, "/") {
			if segment == "" {
				continue
			}

			if len(segment) > 2 {
				return segment
			}

			break
		}
	}

	return fallbackCategory
}

// extractImages collects the page's images with their alt text and
// document position, resolved to absolute URLs.
func extractImages(pageURL string, doc *goquery.Document) []domain.ImageRef {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var images []domain.ImageRef

	seen := make(map[string]struct{})

	doc.Find("img[src]").Each(func(position int, sel *goquery.Selection) {
		src := strings.TrimSpace(sel.AttrOr("src", ""))
		if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
			return
		}

		ref, parseErr := url.Parse(src)
		if parseErr != nil {
			return
		}

		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		abs := resolved.String()
		if _, dup := seen[abs]; dup {
			return
		}

		seen[abs] = struct{}{}

		images = append(images, domain.ImageRef{
			URL:      abs,
			Alt:      strings.TrimSpace(sel.AttrOr("alt", "")),
			Position: position,
		})
	})

	return images
}

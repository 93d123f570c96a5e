package crawl

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// excludedPathPattern matches paths that never yield indexable content.
var excludedPathPattern = regexp.MustCompile(`/(login|logout|signout|admin)`)

// LinkExtractor collects same-host navigation links from parsed documents.
type LinkExtractor struct{}

// NewLinkExtractor creates a LinkExtractor.
func NewLinkExtractor() *LinkExtractor {
	return &LinkExtractor{}
}

// Extract returns the document's outbound links as absolute URLs that
// share the base host, use http or https, and avoid excluded paths.
// Fragments are stripped, queries preserved. The result is deduplicated
// in document order.
func (e *LinkExtractor) Extract(baseURL string, doc *goquery.Document) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var links []string

	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if isIgnoredScheme(href) {
			return
		}

		ref, parseErr := url.Parse(href)
		if parseErr != nil {
			return
		}

		resolved := base.ResolveReference(ref)
		if !isValidTarget(base, resolved) {
			return
		}

		resolved.Fragment = ""
		normalized := resolved.String()

		if _, dup := seen[normalized]; dup {
			return
		}

		seen[normalized] = struct{}{}
		links = append(links, normalized)
	})

	return links
}

// isIgnoredScheme filters hrefs that can never be crawl targets.
func isIgnoredScheme(href string) bool {
	href = strings.ToLower(href)

	return href == "" ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "#")
}

// isValidTarget enforces the same-host, http(s), non-excluded-path rules.
func isValidTarget(base, resolved *url.URL) bool {
	if resolved.Host != base.Host {
		return false
	}

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return false
	}

	return !excludedPathPattern.MatchString(strings.ToLower(resolved.Path))
}

package domain

import "time"

// ImageRef is an image discovered while parsing a page. Position preserves
// document order so representative-image selection stays deterministic.
type ImageRef struct {
	URL      string `db:"url"      json:"url"`
	Alt      string `db:"alt"      json:"alt"`
	Position int    `db:"position" json:"position"`
}

// PageRecord is the parsed form of a fetched page, ready for indexing.
type PageRecord struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Category    string     `json:"category"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Images      []ImageRef `json:"images,omitempty"`
	Links       []string   `json:"links,omitempty"`
}

// PageHit is one full-text match returned by the store, before snippet
// extraction trims content down for display.
type PageHit struct {
	URL     string  `db:"url"     json:"url"`
	Title   string  `db:"title"   json:"title"`
	Content string  `db:"content" json:"content"`
	Score   float64 `db:"score"   json:"score"`
	ImgURL  *string `db:"img_url" json:"img_url,omitempty"`
}

package domain

import "time"

// SearchFilters narrows a full-text query. Zero values mean "no filter".
type SearchFilters struct {
	Category      string `json:"category,omitempty"`
	Domain        string `json:"domain,omitempty"`
	DateFrom      string `json:"date_from,omitempty"`
	DateTo        string `json:"date_to,omitempty"`
	IncludeImages bool   `json:"include_images,omitempty"`
}

// SearchResult is one entry in the API response.
type SearchResult struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
	ImgURL  *string `json:"img_url,omitempty"`
}

// QueuedURL is a dispatch-queue head entry surfaced by the status API.
type QueuedURL struct {
	URL         string    `db:"url"           json:"url"`
	Domain      string    `db:"domain"        json:"domain"`
	Depth       int       `db:"depth"         json:"depth"`
	Score       float64   `db:"score"         json:"score"`
	ErrorCount  int       `db:"error_count"   json:"error_count"`
	NextCrawlAt time.Time `db:"next_crawl_at" json:"next_crawl_at"`
}

// ClickEvent records a user clicking a search result.
type ClickEvent struct {
	SearchID int64  `json:"search_id"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// Package domain provides the core records shared across the crawl control
// plane and the search pipeline.
package domain

import "time"

// CrawlURL status constants. A URL is born pending, holds crawling as a
// transient reservation, and settles in done, error, blocked, or deleted.
const (
	StatusPending  = "pending"
	StatusCrawling = "crawling"
	StatusDone     = "done"
	StatusError    = "error"
	StatusBlocked  = "blocked"
	StatusDeleted  = "deleted"
)

// CrawlURL represents a row in the crawl_urls state table.
type CrawlURL struct {
	// Identity
	URL    string `db:"url"    json:"url"`
	Domain string `db:"domain" json:"domain"`
	Depth  int    `db:"depth"  json:"depth"`

	// Scheduling
	Status      string    `db:"status"        json:"status"`
	Score       float64   `db:"score"         json:"score"`
	NextCrawlAt time.Time `db:"next_crawl_at" json:"next_crawl_at"`

	// Outcome tracking
	ErrorCount    int        `db:"error_count"     json:"error_count"`
	LastCrawledAt *time.Time `db:"last_crawled_at" json:"last_crawled_at,omitempty"`
	BlockedReason *string    `db:"blocked_reason"  json:"blocked_reason,omitempty"`

	// Timestamps
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// DomainStat aggregates crawl activity for one domain.
type DomainStat struct {
	Domain    string     `db:"domain"     json:"domain"`
	Count     int        `db:"count"      json:"count"`
	LastCrawl *time.Time `db:"last_crawl" json:"last_crawl,omitempty"`
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/gosearch/internal/domain"
)

// ErrURLNotFound is returned when an operation targets a URL that has no row
// in crawl_urls. Callers should check with errors.Is().
var ErrURLNotFound = errors.New("crawl URL not found")

const (
	// fetchOverscan multiplies the dispatch limit so the dispatcher still
	// fills its quota after skipping locked or over-quota domains.
	fetchOverscan = 5

	// crawlURLColumns lists columns for SELECT queries on crawl_urls.
	crawlURLColumns = `url, domain, depth, status, score, next_crawl_at,
		error_count, last_crawled_at, blocked_reason, created_at, updated_at, deleted_at`
)

// SchedulePolicy carries the scoring and retry tunables the repository applies
// on registration and completion. Loaded once from config, immutable after.
type SchedulePolicy struct {
	BaseScore       float64
	DepthPenalty    float64
	ErrorPenalty    float64
	MaxRetries      int
	DefaultInterval time.Duration
	ErrorInterval   time.Duration
}

// CrawlURLRepository handles database operations for the crawl_urls state table.
type CrawlURLRepository struct {
	db     *sqlx.DB
	policy SchedulePolicy
}

// NewCrawlURLRepository creates a new crawl URL repository.
func NewCrawlURLRepository(db *sqlx.DB, policy SchedulePolicy) *CrawlURLRepository {
	return &CrawlURLRepository{db: db, policy: policy}
}

// RegisterParams contains the parameters for registering a URL.
type RegisterParams struct {
	URL    string
	Domain string
	Depth  int
}

// Register inserts a URL as pending with an immediate next_crawl_at and a
// score of BaseScore - depth*DepthPenalty. Idempotent: a URL already present
// is left untouched. Returns true when a new row was inserted.
func (r *CrawlURLRepository) Register(ctx context.Context, params RegisterParams) (bool, error) {
	query := `
		INSERT INTO crawl_urls (url, domain, depth, status, next_crawl_at, score)
		VALUES ($1, $2, $3, 'pending', NOW(), $4)
		ON CONFLICT (url) DO NOTHING
	`

	score := r.policy.BaseScore - float64(params.Depth)*r.policy.DepthPenalty

	result, err := r.db.ExecContext(ctx, query, params.URL, params.Domain, params.Depth, score)
	if err != nil {
		return false, fmt.Errorf("failed to register URL: %w", err)
	}

	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return false, fmt.Errorf("failed to read register result: %w", affectedErr)
	}

	return n > 0, nil
}

// FetchDue returns crawl candidates: rows whose status allows re-dispatch and
// whose next_crawl_at has passed, best score first. Over-fetches by a fixed
// factor so the dispatcher can skip locked domains and still fill its limit.
func (r *CrawlURLRepository) FetchDue(ctx context.Context, limit int) ([]*domain.CrawlURL, error) {
	query := `
		SELECT ` + crawlURLColumns + `
		FROM crawl_urls
		WHERE status IN ('pending', 'done', 'error')
		  AND next_crawl_at <= NOW()
		ORDER BY score DESC, next_crawl_at ASC
		LIMIT $1
	`

	var urls []*domain.CrawlURL
	if err := r.db.SelectContext(ctx, &urls, query, limit*fetchOverscan); err != nil {
		return nil, fmt.Errorf("failed to fetch due URLs: %w", err)
	}

	return urls, nil
}

// Reserve transitions a URL to crawling, but only from an eligible status.
// Returns false when another worker already holds the reservation or the URL
// is blocked or deleted. This is the optimistic concurrency guard: of N
// concurrent reservations for the same URL, at most one returns true.
func (r *CrawlURLRepository) Reserve(ctx context.Context, url string) (bool, error) {
	query := `
		UPDATE crawl_urls
		SET status = 'crawling', updated_at = NOW()
		WHERE url = $1 AND status IN ('pending', 'done', 'error')
	`

	result, err := r.db.ExecContext(ctx, query, url)
	if err != nil {
		return false, fmt.Errorf("failed to reserve URL: %w", err)
	}

	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return false, fmt.Errorf("failed to read reserve result: %w", affectedErr)
	}

	return n > 0, nil
}

// MarkBlocked sets a URL to blocked with a reason. Blocked is terminal until
// manual intervention; the dispatcher never selects blocked rows.
func (r *CrawlURLRepository) MarkBlocked(ctx context.Context, url, reason string) error {
	query := `
		UPDATE crawl_urls
		SET status = 'blocked', blocked_reason = $1, updated_at = NOW()
		WHERE url = $2
	`

	result, err := r.db.ExecContext(ctx, query, reason, url)
	if err != nil {
		return fmt.Errorf("failed to mark URL blocked: %w", err)
	}

	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return fmt.Errorf("failed to read block result: %w", affectedErr)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrURLNotFound, url)
	}

	return nil
}

// Complete records a crawl outcome in a single transaction.
//
// On success the URL returns to done with a reset error count, a rebuilt
// score, and a next crawl one DefaultInterval away. On failure the error
// count increments, the score drops by ErrorPenalty, and the next attempt is
// pushed out by ErrorInterval. Once the error count exceeds MaxRetries the
// URL transitions to deleted and its page row is purged in the same
// transaction, so a deleted URL never leaves an orphaned page behind.
func (r *CrawlURLRepository) Complete(ctx context.Context, url string, success bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin complete transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var row struct {
		ErrorCount int     `db:"error_count"`
		Depth      int     `db:"depth"`
		Score      float64 `db:"score"`
	}

	selectQuery := `SELECT error_count, depth, score FROM crawl_urls WHERE url = $1 FOR UPDATE`
	if getErr := tx.GetContext(ctx, &row, selectQuery, url); getErr != nil {
		if errors.Is(getErr, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrURLNotFound, url)
		}
		return fmt.Errorf("failed to read URL state: %w", getErr)
	}

	var (
		status    string
		interval  time.Duration
		newErrors int
		newScore  float64
	)

	if success {
		status = domain.StatusDone
		interval = r.policy.DefaultInterval
		newErrors = 0
		newScore = r.policy.BaseScore - float64(row.Depth)*r.policy.DepthPenalty
	} else {
		status = domain.StatusError
		interval = r.policy.ErrorInterval
		newErrors = row.ErrorCount + 1
		newScore = row.Score - r.policy.ErrorPenalty

		if newErrors > r.policy.MaxRetries {
			if delErr := deleteURL(ctx, tx, url); delErr != nil {
				return delErr
			}
			if commitErr := tx.Commit(); commitErr != nil {
				return fmt.Errorf("failed to commit delete transaction: %w", commitErr)
			}
			return nil
		}
	}

	updateQuery := `
		UPDATE crawl_urls
		SET status = $1,
			last_crawled_at = NOW(),
			next_crawl_at = NOW() + ($2 * INTERVAL '1 second'),
			updated_at = NOW(),
			error_count = $3,
			score = $4
		WHERE url = $5
	`

	if _, execErr := tx.ExecContext(ctx, updateQuery,
		status, int(interval.Seconds()), newErrors, newScore, url); execErr != nil {
		return fmt.Errorf("failed to update URL state: %w", execErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit complete transaction: %w", commitErr)
	}

	return nil
}

// deleteURL marks a URL deleted and purges its page row within a transaction.
// Image links are removed by the page_images cascade.
func deleteURL(ctx context.Context, tx *sqlx.Tx, url string) error {
	markQuery := `UPDATE crawl_urls SET status = 'deleted', deleted_at = NOW() WHERE url = $1`
	if _, err := tx.ExecContext(ctx, markQuery, url); err != nil {
		return fmt.Errorf("failed to mark URL deleted: %w", err)
	}

	purgeQuery := `DELETE FROM web_pages WHERE url = $1`
	if _, err := tx.ExecContext(ctx, purgeQuery, url); err != nil {
		return fmt.Errorf("failed to purge page row: %w", err)
	}

	return nil
}

// ReapStale resets crawling rows whose reservation went stale back to
// pending so the dispatcher picks them up again. Returns the number of rows
// reset. A worker crash must never strand a URL in crawling.
func (r *CrawlURLRepository) ReapStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE crawl_urls
		SET status = 'pending', updated_at = NOW()
		WHERE status = 'crawling'
		  AND updated_at < NOW() - ($1 * INTERVAL '1 second')
	`

	result, err := r.db.ExecContext(ctx, query, int(olderThan.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("failed to reap stale reservations: %w", err)
	}

	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return 0, fmt.Errorf("failed to read reap result: %w", affectedErr)
	}

	return n, nil
}

// CrawlStats contains aggregate counts by status for the crawl state table.
type CrawlStats struct {
	Pending  int `json:"pending"`
	Crawling int `json:"crawling"`
	Done     int `json:"done"`
	Error    int `json:"error"`
	Blocked  int `json:"blocked"`
	Deleted  int `json:"deleted"`
}

// Stats returns aggregate counts of crawl URLs grouped by status.
func (r *CrawlURLRepository) Stats(ctx context.Context) (*CrawlStats, error) {
	query := `SELECT status, COUNT(*) FROM crawl_urls GROUP BY status`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query crawl stats: %w", err)
	}
	defer rows.Close()

	stats := &CrawlStats{}
	for rows.Next() {
		var status string
		var count int
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan crawl stats row: %w", scanErr)
		}
		assignStatusCount(stats, status, count)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate crawl stats: %w", rowsErr)
	}

	return stats, nil
}

// TopDomains returns the most-crawled domains with their last crawl time.
func (r *CrawlURLRepository) TopDomains(ctx context.Context, limit int) ([]*domain.DomainStat, error) {
	query := `
		SELECT domain, COUNT(*) AS count, MAX(last_crawled_at) AS last_crawl
		FROM crawl_urls
		GROUP BY domain
		ORDER BY count DESC
		LIMIT $1
	`

	var stats []*domain.DomainStat
	if err := r.db.SelectContext(ctx, &stats, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query domain stats: %w", err)
	}

	if stats == nil {
		stats = []*domain.DomainStat{}
	}

	return stats, nil
}

// QueueHead returns the next URLs in dispatch order, for the monitoring API.
func (r *CrawlURLRepository) QueueHead(ctx context.Context, limit int) ([]*domain.QueuedURL, error) {
	query := `
		SELECT url, domain, depth, score, next_crawl_at, error_count
		FROM crawl_urls
		WHERE status IN ('pending', 'done', 'error')
		ORDER BY score DESC, next_crawl_at ASC
		LIMIT $1
	`

	var queue []*domain.QueuedURL
	if err := r.db.SelectContext(ctx, &queue, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query queue head: %w", err)
	}

	if queue == nil {
		queue = []*domain.QueuedURL{}
	}

	return queue, nil
}

// assignStatusCount assigns a count to the appropriate CrawlStats field by status.
func assignStatusCount(stats *CrawlStats, status string, count int) {
	switch status {
	case domain.StatusPending:
		stats.Pending = count
	case domain.StatusCrawling:
		stats.Crawling = count
	case domain.StatusDone:
		stats.Done = count
	case domain.StatusError:
		stats.Error = count
	case domain.StatusBlocked:
		stats.Blocked = count
	case domain.StatusDeleted:
		stats.Deleted = count
	}
}

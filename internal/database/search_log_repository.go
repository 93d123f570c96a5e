package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SearchLogRepository records search impressions and result clicks for
// later ranking feedback.
type SearchLogRepository struct {
	db *sqlx.DB
}

// NewSearchLogRepository creates a new search log repository.
func NewSearchLogRepository(db *sqlx.DB) *SearchLogRepository {
	return &SearchLogRepository{db: db}
}

// LogSearch stores a query impression and returns the generated search id,
// which clients echo back on click events.
func (r *SearchLogRepository) LogSearch(ctx context.Context, rawQuery, normalizedQuery string) (int64, error) {
	query := `
		INSERT INTO search_logs (query, normalized_query)
		VALUES ($1, $2)
		RETURNING id
	`

	var id int64
	if err := r.db.GetContext(ctx, &id, query, rawQuery, normalizedQuery); err != nil {
		return 0, fmt.Errorf("failed to log search query: %w", err)
	}

	return id, nil
}

// LogClick stores a click on a search result at the given rank.
func (r *SearchLogRepository) LogClick(ctx context.Context, searchID int64, url string, rank int) error {
	query := `
		INSERT INTO click_logs (search_log_id, url, rank)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.ExecContext(ctx, query, searchID, url, rank); err != nil {
		return fmt.Errorf("failed to log click: %w", err)
	}

	return nil
}

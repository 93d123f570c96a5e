package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// QueryRelationRepository reads the learned query-relations graph used for
// intent expansion.
type QueryRelationRepository struct {
	db *sqlx.DB
}

// NewQueryRelationRepository creates a new query relation repository.
func NewQueryRelationRepository(db *sqlx.DB) *QueryRelationRepository {
	return &QueryRelationRepository{db: db}
}

// Lookup returns the highest-scoring target query related to source with a
// relation score of at least minScore. Returns "" when no relation qualifies.
func (r *QueryRelationRepository) Lookup(ctx context.Context, source string, minScore float64) (string, error) {
	query := `
		SELECT target_query
		FROM query_relations
		WHERE source_query = $1 AND score >= $2
		ORDER BY score DESC
		LIMIT 1
	`

	var target string
	if err := r.db.GetContext(ctx, &target, query, source, minScore); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to look up query relation: %w", err)
	}

	return target, nil
}

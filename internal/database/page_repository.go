package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/gosearch/internal/domain"
)

// Keyword extraction constants.
const (
	keywordMinTokenLength = 1
	keywordLimit          = 5
)

// PageRepository handles database operations for web_pages, images, and
// page_images. It executes what the indexer prepares; selection heuristics
// and search_text assembly live upstream.
type PageRepository struct {
	db *sqlx.DB
}

// NewPageRepository creates a new page repository.
func NewPageRepository(db *sqlx.DB) *PageRepository {
	return &PageRepository{db: db}
}

// PageImageParams is one image asset attached to a page. Hash is the
// content address of the canonical URL; assets are global, links per page.
type PageImageParams struct {
	Hash         string
	CanonicalURL string
	Alt          string
	Position     int
}

// UpsertPageParams contains the parameters for upserting one page.
type UpsertPageParams struct {
	URL                string
	Title              string
	Content            string
	Category           string
	PublishedAt        *time.Time
	SearchText         string
	Images             []PageImageParams
	RepresentativeHash *string
}

// Upsert stores a single page record and its images.
func (r *PageRepository) Upsert(ctx context.Context, page UpsertPageParams) error {
	_, err := r.UpsertBatch(ctx, []UpsertPageParams{page})
	return err
}

// UpsertBatch stores multiple pages in one transaction. Per page: image
// assets are inserted by hash, the page row is upserted, and the page-image
// links are replaced wholesale so the store reflects exactly the latest
// crawl. Any failure rolls back the whole batch. Returns the page count on
// success.
func (r *PageRepository) UpsertBatch(ctx context.Context, pages []UpsertPageParams) (int, error) {
	if len(pages) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for i := range pages {
		if upsertErr := upsertOne(ctx, tx, &pages[i]); upsertErr != nil {
			return 0, upsertErr
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return 0, fmt.Errorf("failed to commit upsert transaction: %w", commitErr)
	}

	return len(pages), nil
}

// upsertOne writes one page and its image links within a transaction.
func upsertOne(ctx context.Context, tx *sqlx.Tx, page *UpsertPageParams) error {
	imageIDs, err := insertImageAssets(ctx, tx, page.Images)
	if err != nil {
		return fmt.Errorf("failed to store image assets for %s: %w", page.URL, err)
	}

	var representativeID *int64
	if page.RepresentativeHash != nil {
		if id, ok := imageIDs[*page.RepresentativeHash]; ok {
			representativeID = &id
		}
	}

	pageQuery := `
		INSERT INTO web_pages (
			url, title, content, category, published_at, search_text,
			representative_image_id, updated_at, crawled_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (url)
		DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			category = EXCLUDED.category,
			published_at = COALESCE(EXCLUDED.published_at, web_pages.published_at),
			search_text = EXCLUDED.search_text,
			representative_image_id = EXCLUDED.representative_image_id,
			updated_at = NOW(),
			crawled_at = NOW()
	`

	if _, execErr := tx.ExecContext(ctx, pageQuery,
		page.URL, page.Title, page.Content, page.Category,
		page.PublishedAt, page.SearchText, representativeID); execErr != nil {
		return fmt.Errorf("failed to upsert page %s: %w", page.URL, execErr)
	}

	if linkErr := replacePageImages(ctx, tx, page.URL, page.Images, imageIDs); linkErr != nil {
		return fmt.Errorf("failed to sync image links for %s: %w", page.URL, linkErr)
	}

	return nil
}

// insertImageAssets registers image assets by hash and returns hash -> id.
// An asset seen before keeps its id; the canonical URL is refreshed.
func insertImageAssets(ctx context.Context, tx *sqlx.Tx, images []PageImageParams) (map[string]int64, error) {
	query := `
		INSERT INTO images (hash, canonical_url)
		VALUES ($1, $2)
		ON CONFLICT (hash) DO UPDATE SET canonical_url = EXCLUDED.canonical_url
		RETURNING id
	`

	ids := make(map[string]int64, len(images))
	for i := range images {
		img := &images[i]
		if _, seen := ids[img.Hash]; seen {
			continue
		}

		var id int64
		if err := tx.GetContext(ctx, &id, query, img.Hash, img.CanonicalURL); err != nil {
			return nil, err
		}
		ids[img.Hash] = id
	}

	return ids, nil
}

// replacePageImages deletes all existing image links for a page and inserts
// the current set.
func replacePageImages(
	ctx context.Context,
	tx *sqlx.Tx,
	pageURL string,
	images []PageImageParams,
	imageIDs map[string]int64,
) error {
	deleteQuery := `DELETE FROM page_images WHERE page_url = $1`
	if _, err := tx.ExecContext(ctx, deleteQuery, pageURL); err != nil {
		return err
	}

	insertQuery := `
		INSERT INTO page_images (page_url, image_id, alt_text, position)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (page_url, image_id) DO UPDATE SET
			alt_text = EXCLUDED.alt_text,
			position = EXCLUDED.position
	`

	for i := range images {
		img := &images[i]
		id, ok := imageIDs[img.Hash]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, insertQuery, pageURL, id, img.Alt, img.Position); err != nil {
			return err
		}
	}

	return nil
}

// SearchParams contains the parameters for a full-text query.
type SearchParams struct {
	Query   string
	Filters domain.SearchFilters
	Limit   int
}

// Search runs a relevance-ranked full-text query over web_pages.search_text,
// applying the optional filters. When IncludeImages is set, each hit carries
// the canonical URL of the page's representative image.
func (r *PageRepository) Search(ctx context.Context, params SearchParams) ([]*domain.PageHit, error) {
	query, args := buildSearchQuery(params)

	var hits []*domain.PageHit
	if err := r.db.SelectContext(ctx, &hits, query, args...); err != nil {
		return nil, fmt.Errorf("failed to execute search query: %w", err)
	}

	if hits == nil {
		hits = []*domain.PageHit{}
	}

	return hits, nil
}

// buildSearchQuery assembles the PGroonga search SQL and its args.
func buildSearchQuery(params SearchParams) (string, []any) {
	selectClause := `
		SELECT
			web_pages.url,
			web_pages.title,
			web_pages.content,
			pgroonga_score(web_pages.tableoid, web_pages.ctid) AS score
	`
	fromClause := `FROM web_pages`

	if params.Filters.IncludeImages {
		selectClause += `, images.canonical_url AS img_url`
		fromClause += ` LEFT JOIN images ON web_pages.representative_image_id = images.id`
	}

	whereClause := `WHERE web_pages.search_text &@ $1`
	args := []any{params.Query}
	argIndex := 2

	if params.Filters.Category != "" {
		whereClause += fmt.Sprintf(" AND web_pages.category = $%d", argIndex)
		args = append(args, params.Filters.Category)
		argIndex++
	}

	if params.Filters.Domain != "" {
		whereClause += fmt.Sprintf(" AND web_pages.url LIKE $%d", argIndex)
		args = append(args, "%"+params.Filters.Domain+"%")
		argIndex++
	}

	if params.Filters.DateFrom != "" {
		whereClause += fmt.Sprintf(" AND web_pages.published_at >= $%d", argIndex)
		args = append(args, params.Filters.DateFrom)
		argIndex++
	}

	if params.Filters.DateTo != "" {
		whereClause += fmt.Sprintf(" AND web_pages.published_at <= $%d", argIndex)
		args = append(args, params.Filters.DateTo)
		argIndex++
	}

	orderClause := fmt.Sprintf("ORDER BY score DESC LIMIT $%d", argIndex)
	args = append(args, params.Limit)

	return fmt.Sprintf("%s %s %s %s", selectClause, fromClause, whereClause, orderClause), args
}

// Keywords tokenizes a text corpus with the index's tokenizer and returns
// the most frequent tokens longer than one character.
func (r *PageRepository) Keywords(ctx context.Context, corpus string) ([]string, error) {
	query := `
		SELECT token
		FROM pgroonga_tokenize($1, 'TokenMecab')
			AS t(token text, start_offset int, end_offset int, force_prefix bool)
		WHERE length(token) > $2
		GROUP BY token
		ORDER BY count(*) DESC
		LIMIT $3
	`

	var tokens []string
	if err := r.db.SelectContext(ctx, &tokens, query, corpus, keywordMinTokenLength, keywordLimit); err != nil {
		return nil, fmt.Errorf("failed to extract keywords: %w", err)
	}

	return tokens, nil
}

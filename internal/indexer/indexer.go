// Package indexer turns parsed page records into index writes: image
// assets keyed by content-addressed hashes, a representative image per
// page, and the recomputed search text the full-text index covers.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonesrussell/gosearch/internal/database"
	"github.com/jonesrussell/gosearch/internal/domain"
	"github.com/jonesrussell/gosearch/internal/logger"
)

// minAltChars is the alt-text length above which an image is preferred
// as the page representative.
const minAltChars = 5

// PageStore persists assembled page rows.
type PageStore interface {
	Upsert(ctx context.Context, page database.UpsertPageParams) error
}

// Indexer assembles and stores index rows for parsed pages.
type Indexer struct {
	store PageStore
	log   logger.Logger
}

// New creates an indexer backed by the given page store.
func New(store PageStore, log logger.Logger) *Indexer {
	return &Indexer{
		store: store,
		log:   log,
	}
}

// Index upserts one parsed page: image assets by hash, page-image links,
// the representative image, and the recomputed search text.
func (ix *Indexer) Index(ctx context.Context, record *domain.PageRecord) error {
	params := buildUpsertParams(record)

	if err := ix.store.Upsert(ctx, params); err != nil {
		return fmt.Errorf("failed to upsert page %s: %w", record.URL, err)
	}

	ix.log.Debug("page indexed",
		logger.String("url", record.URL),
		logger.Int("images", len(params.Images)),
	)

	return nil
}

// buildUpsertParams maps a parsed record onto storage parameters.
func buildUpsertParams(record *domain.PageRecord) database.UpsertPageParams {
	images := assembleImages(record.Images)

	return database.UpsertPageParams{
		URL:                record.URL,
		Title:              record.Title,
		Content:            record.Content,
		Category:           record.Category,
		PublishedAt:        record.PublishedAt,
		SearchText:         buildSearchText(record),
		Images:             images,
		RepresentativeHash: representativeHash(images),
	}
}

// assembleImages canonicalizes image URLs and hashes them, dropping
// duplicates that collapse to the same canonical form.
func assembleImages(refs []domain.ImageRef) []database.PageImageParams {
	if len(refs) == 0 {
		return nil
	}

	images := make([]database.PageImageParams, 0, len(refs))
	seen := make(map[string]bool, len(refs))

	for _, ref := range refs {
		canonical := canonicalImageURL(ref.URL)

		hash := imageHash(canonical)
		if seen[hash] {
			continue
		}

		seen[hash] = true

		images = append(images, database.PageImageParams{
			Hash:         hash,
			CanonicalURL: canonical,
			Alt:          ref.Alt,
			Position:     ref.Position,
		})
	}

	return images
}

// canonicalImageURL strips the query and fragment so the same asset
// served with varying parameters hashes identically.
func canonicalImageURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""

	return parsed.String()
}

// imageHash derives the content-addressed asset key.
func imageHash(canonicalURL string) string {
	sum := sha256.Sum256([]byte(canonicalURL))
	return hex.EncodeToString(sum[:])
}

// buildSearchText concatenates title, content, and image alt texts into
// the indexed field.
func buildSearchText(record *domain.PageRecord) string {
	parts := make([]string, 0, 2+len(record.Images))

	if record.Title != "" {
		parts = append(parts, record.Title)
	}

	if record.Content != "" {
		parts = append(parts, record.Content)
	}

	for _, ref := range record.Images {
		if alt := strings.TrimSpace(ref.Alt); alt != "" {
			parts = append(parts, alt)
		}
	}

	return strings.Join(parts, " ")
}

// representativeHash picks the page's display image: images with
// meaningful alt text win, earlier document position breaks ties.
func representativeHash(images []database.PageImageParams) *string {
	if len(images) == 0 {
		return nil
	}

	best := images[0]

	for _, img := range images[1:] {
		if moreRepresentative(img, best) {
			best = img
		}
	}

	return &best.Hash
}

func moreRepresentative(a, b database.PageImageParams) bool {
	aPriority, bPriority := altPriority(a.Alt), altPriority(b.Alt)
	if aPriority != bPriority {
		return aPriority < bPriority
	}

	return a.Position < b.Position
}

func altPriority(alt string) int {
	if len(strings.TrimSpace(alt)) > minAltChars {
		return 0
	}

	return 1
}

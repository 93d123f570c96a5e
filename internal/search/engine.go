// Package search implements the query pipeline: normalization, intent
// and synonym expansion, cached full-text retrieval, snippet generation,
// and keyword extraction.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/gosearch/internal/database"
	"github.com/jonesrussell/gosearch/internal/domain"
	"github.com/jonesrussell/gosearch/internal/logger"
	"github.com/jonesrussell/gosearch/internal/metrics"
)

// ErrEmptyQuery is returned when the query normalizes to nothing.
var ErrEmptyQuery = errors.New("empty search query")

// keywordCorpusMaxRunes caps the title corpus sent to the tokenizer.
const keywordCorpusMaxRunes = 5000

// SearchStore runs the relevance query and keyword tokenization.
type SearchStore interface {
	Search(ctx context.Context, params database.SearchParams) ([]*domain.PageHit, error)
	Keywords(ctx context.Context, corpus string) ([]string, error)
}

// QueryLog persists search and click events.
type QueryLog interface {
	LogSearch(ctx context.Context, rawQuery, normalizedQuery string) (int64, error)
	LogClick(ctx context.Context, searchID int64, url string, rank int) error
}

// SearchResponse is the engine's result payload.
type SearchResponse struct {
	Query    string                `json:"query"`
	SearchID int64                 `json:"search_id"`
	Count    int                   `json:"count"`
	Results  []domain.SearchResult `json:"results"`
	Keywords []string              `json:"keywords"`
}

// Engine serves search requests end to end.
type Engine struct {
	store    SearchStore
	queryLog QueryLog
	intent   *IntentExpander
	synonyms *SynonymExpander
	cache    *ResultCache
	log      logger.Logger
	metrics  *metrics.Metrics
}

// NewEngine assembles the search pipeline.
func NewEngine(
	store SearchStore,
	queryLog QueryLog,
	intent *IntentExpander,
	synonyms *SynonymExpander,
	cache *ResultCache,
	log logger.Logger,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		store:    store,
		queryLog: queryLog,
		intent:   intent,
		synonyms: synonyms,
		cache:    cache,
		log:      log,
		metrics:  m,
	}
}

// Search normalizes and expands the query, consults the result cache,
// and otherwise runs the full-text query and assembles the payload.
// Cache hits return the cached payload under a fresh search id.
func (e *Engine) Search(
	ctx context.Context,
	rawQuery string,
	filters domain.SearchFilters,
	limit int,
) (*SearchResponse, error) {
	start := time.Now()

	normalized := NormalizeQuery(rawQuery)
	if normalized == "" {
		return nil, ErrEmptyQuery
	}

	searchID := e.logSearch(ctx, rawQuery, normalized)

	expanded := e.synonyms.Expand(e.intent.Expand(ctx, normalized))

	if cached, ok := e.cache.Get(ctx, normalized, filters, limit); ok {
		cached.SearchID = searchID

		e.metrics.RecordSearch(time.Since(start).Seconds(), true)

		return cached, nil
	}

	hits, err := e.store.Search(ctx, database.SearchParams{
		Query:   expanded,
		Filters: filters,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}

	response := e.buildResponse(ctx, normalized, searchID, hits)

	e.cache.Put(ctx, normalized, filters, limit, response)
	e.metrics.RecordSearch(time.Since(start).Seconds(), false)

	e.log.Info("search served",
		logger.String("query", normalized),
		logger.Int("results", response.Count),
		logger.Duration("elapsed", time.Since(start)),
	)

	return response, nil
}

// LogClick appends a click event. Failures are logged, never raised.
func (e *Engine) LogClick(ctx context.Context, searchID int64, url string, rank int) {
	if err := e.queryLog.LogClick(ctx, searchID, url, rank); err != nil {
		e.log.Error("failed to log click",
			logger.Int64("search_id", searchID),
			logger.String("url", url),
			logger.Error(err),
		)

		return
	}

	e.metrics.RecordClick()
}

// logSearch persists the query pair. A failed write degrades to a zero
// search id rather than failing the request.
func (e *Engine) logSearch(ctx context.Context, rawQuery, normalized string) int64 {
	searchID, err := e.queryLog.LogSearch(ctx, rawQuery, normalized)
	if err != nil {
		e.log.Error("failed to log search",
			logger.String("query", normalized),
			logger.Error(err),
		)

		return 0
	}

	return searchID
}

// buildResponse converts hits into display results, generating snippets
// and dropping page content from the payload.
func (e *Engine) buildResponse(
	ctx context.Context,
	normalized string,
	searchID int64,
	hits []*domain.PageHit,
) *SearchResponse {
	results := make([]domain.SearchResult, 0, len(hits))
	titles := make([]string, 0, len(hits))

	for _, hit := range hits {
		results = append(results, domain.SearchResult{
			URL:     hit.URL,
			Title:   hit.Title,
			Snippet: GenerateSnippet(hit.Content, normalized),
			Score:   hit.Score,
			ImgURL:  hit.ImgURL,
		})

		titles = append(titles, hit.Title)
	}

	return &SearchResponse{
		Query:    normalized,
		SearchID: searchID,
		Count:    len(results),
		Results:  results,
		Keywords: e.extractKeywords(ctx, titles),
	}
}

// extractKeywords tokenizes the returned titles with the index's
// tokenizer. Failures degrade to an empty list.
func (e *Engine) extractKeywords(ctx context.Context, titles []string) []string {
	if len(titles) == 0 {
		return []string{}
	}

	corpus := strings.Join(titles, " ")
	if runes := []rune(corpus); len(runes) > keywordCorpusMaxRunes {
		corpus = string(runes[:keywordCorpusMaxRunes])
	}

	keywords, err := e.store.Keywords(ctx, corpus)
	if err != nil {
		e.log.Error("failed to extract keywords", logger.Error(err))
		return []string{}
	}

	if keywords == nil {
		keywords = []string{}
	}

	return keywords
}

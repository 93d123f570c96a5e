package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/gosearch/internal/domain"
	"github.com/jonesrussell/gosearch/internal/logger"
	"github.com/jonesrussell/gosearch/internal/search"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100

	trueString = "true"
)

// Searcher runs search queries and records click feedback.
type Searcher interface {
	Search(ctx context.Context, rawQuery string, filters domain.SearchFilters, limit int) (*search.SearchResponse, error)
	LogClick(ctx context.Context, searchID int64, url string, rank int)
}

// SearchHandler handles search and click HTTP requests.
type SearchHandler struct {
	engine Searcher
	log    logger.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(engine Searcher, log logger.Logger) *SearchHandler {
	return &SearchHandler{
		engine: engine,
		log:    log,
	}
}

// Search handles GET /search.
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	filters := parseSearchFilters(c)
	limit := parseLimit(c, defaultSearchLimit, maxSearchLimit)

	result, err := h.engine.Search(c.Request.Context(), query, filters, limit)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			respondBadRequest(c, "EMPTY_QUERY", "Query parameter q is required")
			return
		}

		h.log.Error("search request failed",
			logger.String("query", query),
			logger.Error(err),
		)
		respondInternalError(c, "SEARCH_ERROR", "Search failed")

		return
	}

	c.JSON(http.StatusOK, result)
}

// parseSearchFilters parses filter parameters from the query string.
func parseSearchFilters(c *gin.Context) domain.SearchFilters {
	return domain.SearchFilters{
		Category:      c.Query("category"),
		Domain:        c.Query("domain"),
		DateFrom:      c.Query("date_from"),
		DateTo:        c.Query("date_to"),
		IncludeImages: c.Query("include_images") == trueString,
	}
}

// clickRequest represents the JSON body for POST /search/click.
type clickRequest struct {
	SearchID int64  `json:"search_id"`
	URL      string `binding:"required"   json:"url"`
	Rank     int    `json:"rank"`
}

// Click handles POST /search/click. Click logging is best effort; the
// endpoint reports ok or error but never a server failure.
func (h *SearchHandler) Click(c *gin.Context) {
	var req clickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error"})
		return
	}

	h.engine.LogClick(c.Request.Context(), req.SearchID, req.URL, req.Rank)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

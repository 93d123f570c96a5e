package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/gosearch/internal/database"
	"github.com/jonesrussell/gosearch/internal/domain"
	"github.com/jonesrussell/gosearch/internal/logger"
)

const (
	defaultDomainsLimit = 20
	defaultQueueLimit   = 10
	maxMonitorLimit     = 500
)

// SeedRegistrar admits externally submitted URLs to the crawl frontier.
type SeedRegistrar interface {
	RegisterSeed(ctx context.Context, rawURL string) (bool, error)
}

// SeedEnqueuer pushes admitted seeds onto the work queue.
type SeedEnqueuer interface {
	Enqueue(ctx context.Context, url string, depth int) (string, error)
	QueueDepth(ctx context.Context) (int64, error)
}

// CrawlStatsStore exposes the frontier monitoring queries.
type CrawlStatsStore interface {
	Stats(ctx context.Context) (*database.CrawlStats, error)
	TopDomains(ctx context.Context, limit int) ([]*domain.DomainStat, error)
	QueueHead(ctx context.Context, limit int) ([]*domain.QueuedURL, error)
}

// CrawlHandler handles crawl administration and monitoring requests.
type CrawlHandler struct {
	registrar SeedRegistrar
	queue     SeedEnqueuer
	store     CrawlStatsStore
	log       logger.Logger
}

// NewCrawlHandler creates a new crawl handler.
func NewCrawlHandler(
	registrar SeedRegistrar,
	queue SeedEnqueuer,
	store CrawlStatsStore,
	log logger.Logger,
) *CrawlHandler {
	return &CrawlHandler{
		registrar: registrar,
		queue:     queue,
		store:     store,
		log:       log,
	}
}

// seedRequest represents the JSON body for POST /admin/crawl.
type seedRequest struct {
	URLs []string `binding:"required,min=1" json:"urls"`
}

// Seed handles POST /admin/crawl. Each URL is registered at depth 0 and
// enqueued for immediate crawling; bad URLs are skipped, not fatal.
func (h *CrawlHandler) Seed(c *gin.Context) {
	var req seedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", "Invalid request: "+err.Error())
		return
	}

	jobIDs := make([]string, 0, len(req.URLs))

	for _, rawURL := range req.URLs {
		if _, err := h.registrar.RegisterSeed(c.Request.Context(), rawURL); err != nil {
			h.log.Warn("failed to register seed",
				logger.String("url", rawURL),
				logger.Error(err),
			)

			continue
		}

		jobID, err := h.queue.Enqueue(c.Request.Context(), rawURL, 0)
		if err != nil {
			h.log.Error("failed to enqueue seed",
				logger.String("url", rawURL),
				logger.Error(err),
			)

			continue
		}

		jobIDs = append(jobIDs, jobID)
	}

	h.log.Info("seed urls submitted",
		logger.Int("submitted", len(req.URLs)),
		logger.Int("enqueued", len(jobIDs)),
	)

	c.JSON(http.StatusOK, gin.H{
		"message":      "crawl scheduled",
		"target_count": len(jobIDs),
		"job_ids":      jobIDs,
	})
}

// crawlStatusResponse is the status-by-count payload plus the live
// work queue length.
type crawlStatusResponse struct {
	database.CrawlStats
	Queued int64 `json:"queued"`
}

// Status handles GET /crawl/status.
func (h *CrawlHandler) Status(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		respondInternalError(c, "STATS_ERROR", "Failed to retrieve crawl stats")
		return
	}

	queued, err := h.queue.QueueDepth(c.Request.Context())
	if err != nil {
		h.log.Warn("failed to read queue depth", logger.Error(err))

		queued = 0
	}

	c.JSON(http.StatusOK, crawlStatusResponse{
		CrawlStats: *stats,
		Queued:     queued,
	})
}

// Domains handles GET /crawl/domains.
func (h *CrawlHandler) Domains(c *gin.Context) {
	limit := parseLimit(c, defaultDomainsLimit, maxMonitorLimit)

	stats, err := h.store.TopDomains(c.Request.Context(), limit)
	if err != nil {
		respondInternalError(c, "DOMAINS_ERROR", "Failed to retrieve domain stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Queue handles GET /crawl/queue.
func (h *CrawlHandler) Queue(c *gin.Context) {
	limit := parseLimit(c, defaultQueueLimit, maxMonitorLimit)

	head, err := h.store.QueueHead(c.Request.Context(), limit)
	if err != nil {
		respondInternalError(c, "QUEUE_ERROR", "Failed to retrieve queue head")
		return
	}

	c.JSON(http.StatusOK, head)
}

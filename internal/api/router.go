package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/gosearch/internal/logger"
)

// RouterConfig collects the handlers and shared services the router
// exposes.
type RouterConfig struct {
	Search   *SearchHandler
	Crawl    *CrawlHandler
	Health   *HealthHandler
	Gatherer prometheus.Gatherer
	Logger   logger.Logger
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(recoveryMiddleware(cfg.Logger))
	router.Use(loggingMiddleware(cfg.Logger))

	router.GET("/search", cfg.Search.Search)
	router.POST("/search/click", cfg.Search.Click)

	router.POST("/admin/crawl", cfg.Crawl.Seed)
	router.GET("/crawl/status", cfg.Crawl.Status)
	router.GET("/crawl/domains", cfg.Crawl.Domains)
	router.GET("/crawl/queue", cfg.Crawl.Queue)

	router.GET("/health", cfg.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	return router
}

// loggingMiddleware logs one line per request.
func loggingMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("http request",
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
		)
	}
}

// recoveryMiddleware converts panics into structured 500 responses.
func recoveryMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					logger.String("path", c.Request.URL.Path),
					logger.Any("panic", r),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Error:     "Internal server error",
					Code:      "INTERNAL_ERROR",
					Timestamp: time.Now(),
				})
			}
		}()

		c.Next()
	}
}

package cmd

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/gosearch/internal/anomaly"
	"github.com/jonesrussell/gosearch/internal/config"
	"github.com/jonesrussell/gosearch/internal/crawl"
	"github.com/jonesrussell/gosearch/internal/database"
	"github.com/jonesrussell/gosearch/internal/logger"
	"github.com/jonesrussell/gosearch/internal/metrics"
	"github.com/jonesrussell/gosearch/internal/queue"
	"github.com/jonesrussell/gosearch/internal/redisclient"
	"github.com/jonesrussell/gosearch/internal/robots"
	"github.com/jonesrussell/gosearch/internal/search"
)

// deps bundles the clients and repositories every subcommand builds on.
type deps struct {
	cfg   *config.Config
	log   logger.Logger
	db    *sqlx.DB
	redis *redis.Client

	urls      *database.CrawlURLRepository
	pages     *database.PageRepository
	searchLog *database.SearchLogRepository
	relations *database.QueryRelationRepository
}

// newDeps loads configuration, connects to Postgres and Redis, and builds
// the repositories. The caller owns Close.
func newDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	redisClient, err := redisclient.New(cfg.Redis.URL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	policy := database.SchedulePolicy{
		BaseScore:       cfg.Crawler.BaseScore,
		DepthPenalty:    cfg.Crawler.DepthPenalty,
		ErrorPenalty:    cfg.Crawler.ErrorPenalty,
		MaxRetries:      cfg.Crawler.MaxRetries,
		DefaultInterval: cfg.Crawler.DefaultInterval,
		ErrorInterval:   cfg.Crawler.ErrorInterval,
	}

	return &deps{
		cfg:       cfg,
		log:       log,
		db:        db,
		redis:     redisClient,
		urls:      database.NewCrawlURLRepository(db, policy),
		pages:     database.NewPageRepository(db),
		searchLog: database.NewSearchLogRepository(db),
		relations: database.NewQueryRelationRepository(db),
	}, nil
}

// Close releases the Redis and database connections.
func (d *deps) Close() {
	if err := d.redis.Close(); err != nil {
		d.log.Error("failed to close redis client", logger.Error(err))
	}

	if err := d.db.Close(); err != nil {
		d.log.Error("failed to close database", logger.Error(err))
	}
}

// newAdmission builds the frontier admission pipeline: the robots checker,
// the trap gate with its quota counter, and the registrar on top of both.
func (d *deps) newAdmission() (*crawl.Registrar, *anomaly.Gate, *robots.Checker) {
	quota := redisclient.NewQuotaCounter(d.redis, d.cfg.Crawler.MaxURLsPerDomain)
	gate := anomaly.NewGate(quota, d.cfg.Crawler.MaxURLLength, d.cfg.Crawler.MaxPathSegmentRepeats)

	checker := robots.NewChecker(
		&http.Client{
			Timeout:       d.cfg.Crawler.RequestTimeout,
			CheckRedirect: crawl.RedirectPolicy(crawl.DefaultMaxRedirects),
		},
		d.redis,
		d.cfg.Crawler.UserAgent,
		d.cfg.Crawler.RobotsCacheTTL,
	)

	registrar := crawl.NewRegistrar(d.urls, checker, gate, d.log, d.cfg.Crawler.MaxDepth)

	return registrar, gate, checker
}

// newQueue builds the work stream client and its producer.
func (d *deps) newQueue() (*queue.Client, *queue.Producer) {
	client := queue.NewClient(d.redis, d.cfg.Redis.QueueName)
	return client, queue.NewProducer(client, queue.ProducerConfig{})
}

// newEngine assembles the search pipeline over the shared repositories.
func (d *deps) newEngine(m *metrics.Metrics) *search.Engine {
	return search.NewEngine(
		d.pages,
		d.searchLog,
		search.NewIntentExpander(d.relations, d.log),
		search.NewSynonymExpander(d.cfg.Search.SynonymFilePath, d.log),
		search.NewResultCache(d.redis, d.cfg.Redis.CacheTTL, d.log),
		d.log,
		m,
	)
}

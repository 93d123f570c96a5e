package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/gosearch/internal/api"
	"github.com/jonesrussell/gosearch/internal/crawl"
	"github.com/jonesrussell/gosearch/internal/indexer"
	"github.com/jonesrussell/gosearch/internal/logger"
	"github.com/jonesrussell/gosearch/internal/metrics"
	"github.com/jonesrussell/gosearch/internal/queue"
	"github.com/jonesrussell/gosearch/internal/redisclient"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the crawl and search server",
		Long: `Runs the full service: the HTTP API, the score-ordered dispatcher,
the crawl worker pool, and the stale reservation reaper.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	d, err := newDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	registrar, gate, checker := d.newAdmission()
	streamClient, producer := d.newQueue()

	consumer, err := queue.NewConsumer(streamClient, queue.ConsumerConfig{
		ConsumerID: "worker-" + uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	if initErr := consumer.Initialize(ctx); initErr != nil {
		return initErr
	}

	locks := redisclient.NewDomainLocker(d.redis, d.cfg.Crawler.DomainLockTTL)
	dispatcher := crawl.NewDispatcher(d.urls, locks, gate, checker, producer, d.log, m, d.cfg.Crawler.DispatchLimit)
	reaper := crawl.NewReaper(d.urls, 2*d.cfg.Crawler.JobTimeout, d.log, m)

	pool := crawl.NewWorkerPool(
		consumer,
		d.urls,
		indexer.New(d.pages, d.log),
		registrar,
		crawl.NewFetcher(d.cfg.Crawler.RequestTimeout, d.cfg.Crawler.UserAgent),
		crawl.NewHTMLParser(crawl.NewLinkExtractor()),
		gate,
		d.log,
		m,
		crawl.WorkerPoolConfig{
			WorkerCount: d.cfg.Crawler.WorkerConcurrency,
			JobTimeout:  d.cfg.Crawler.JobTimeout,
		},
	)

	router := api.NewRouter(api.RouterConfig{
		Search: api.NewSearchHandler(d.newEngine(m), d.log),
		Crawl:  api.NewCrawlHandler(registrar, producer, d.urls, d.log),
		Health: api.NewHealthHandler(
			d.cfg.App.Version,
			api.PingFunc(d.db.PingContext),
			api.PingFunc(func(pingCtx context.Context) error {
				return d.redis.Ping(pingCtx).Err()
			}),
		),
		Gatherer: registry,
		Logger:   d.log,
	})

	server := api.NewServer(d.cfg.Server.Addr(), router)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	workersDone := make(chan struct{})

	go func() {
		defer close(workersDone)

		if poolErr := pool.Start(workerCtx); poolErr != nil {
			d.log.Error("worker pool exited", logger.Error(poolErr))
		}
	}()

	scheduler, err := newTickScheduler(workerCtx, d, dispatcher, reaper)
	if err != nil {
		stopWorkers()
		<-workersDone

		return err
	}

	scheduler.Start()

	d.log.Info("server starting",
		logger.String("addr", d.cfg.Server.Addr()),
		logger.Int("workers", d.cfg.Crawler.WorkerConcurrency),
		logger.String("stream", streamClient.StreamName()),
	)

	errChan := make(chan error, 1)

	go func() {
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case serveErr := <-errChan:
		drain(d, scheduler, stopWorkers, workersDone)
		return fmt.Errorf("server error: %w", serveErr)
	case sig := <-sigChan:
		d.log.Info("shutdown signal received", logger.String("signal", sig.String()))
	}

	drain(d, scheduler, stopWorkers, workersDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		return fmt.Errorf("failed to stop server: %w", shutdownErr)
	}

	d.log.Info("server stopped")

	return nil
}

// newTickScheduler schedules the dispatch and reap passes. The reaper runs
// every job timeout and resets reservations older than twice that, so a
// row is only reaped after its job deadline has long expired.
func newTickScheduler(
	ctx context.Context,
	d *deps,
	dispatcher *crawl.Dispatcher,
	reaper *crawl.Reaper,
) (*cron.Cron, error) {
	scheduler := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	dispatchSpec := "@every " + d.cfg.Crawler.DispatchInterval.String()
	if _, err := scheduler.AddFunc(dispatchSpec, func() {
		if _, tickErr := dispatcher.Tick(ctx); tickErr != nil {
			d.log.Error("dispatch tick failed", logger.Error(tickErr))
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule dispatcher: %w", err)
	}

	reapSpec := "@every " + d.cfg.Crawler.JobTimeout.String()
	if _, err := scheduler.AddFunc(reapSpec, func() {
		if _, tickErr := reaper.Tick(ctx); tickErr != nil {
			d.log.Error("reap tick failed", logger.Error(tickErr))
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule reaper: %w", err)
	}

	return scheduler, nil
}

// drain stops feeding the work queue, then waits for in-flight crawl jobs.
// Runs before the HTTP listener shuts down so /crawl/status stays readable
// while the queue empties.
func drain(d *deps, scheduler *cron.Cron, stopWorkers context.CancelFunc, workersDone <-chan struct{}) {
	d.log.Info("stopping dispatch scheduler")
	<-scheduler.Stop().Done()

	d.log.Info("draining crawl workers")
	stopWorkers()
	<-workersDone
}

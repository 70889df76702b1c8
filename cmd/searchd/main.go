package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/page-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	pagesPath := flag.String("pages", "", "JSON-lines file of pages to index at startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *pagesPath); err != nil {
		slog.Error("searchd exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("searchd stopped")
}

func run(ctx context.Context, cfg *config.Config, pagesPath string) error {
	m := metrics.New(prometheus.DefaultRegisterer)

	engine, err := indexer.NewEngine(cfg.Engine)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	checker := health.NewChecker()
	checker.Register("engine", func(ctx context.Context) health.ComponentHealth {
		stats := engine.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d pages, %d terms", stats.Pages, stats.Terms),
		}
	})

	var queryCache *cache.QueryCache
	if cfg.Redis.Addr != "" {
		var redisClient *pkgredis.Client
		err := resilience.Retry(ctx, "redis-connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
			var err error
			redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
			return err
		})
		if err != nil {
			slog.Warn("redis unavailable, running without query cache", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
				OnStateChange: func(name string, _, to resilience.State) {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				},
			})
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, breaker)
			checker.Register("redis", health.PingCheck(redisClient.Ping, true))
		}
	}

	kafkaEnabled := len(cfg.Kafka.Brokers) > 0
	var analyticsPublisher analytics.Publisher
	var pagePublisher ingestion.Publisher
	if kafkaEnabled {
		analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer analyticsProducer.Close()
		analyticsPublisher = analyticsProducer

		pageProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.PageIngest)
		defer pageProducer.Close()
		pagePublisher = pageProducer
	}

	aggregator := analytics.NewAggregator()
	collector := analytics.NewCollector(aggregator, analyticsPublisher, cfg.Analytics.BufferSize)

	var snapshotStore *analytics.Store
	if cfg.Postgres.Host != "" {
		var db *postgres.Client
		err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
			var err error
			db, err = postgres.New(ctx, cfg.Postgres)
			return err
		})
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			store := analytics.NewStore(db, cfg.Analytics.SnapshotTimeout, cfg.Analytics.SnapshotRetention)
			if err := store.Migrate(ctx); err != nil {
				slog.Warn("analytics schema migration failed, snapshots disabled", "error", err)
			} else {
				snapshotStore = store
			}
			checker.Register("postgres", health.PingCheck(db.Ping, true))
		}
	}

	ingestSvc := ingestion.NewService(engine, cfg.Engine.MaxPageBytes, pagePublisher, collector, m)
	if pagesPath != "" {
		if err := seedPages(ctx, ingestSvc, pagesPath); err != nil {
			return err
		}
	}

	tracer := tracing.New(cfg.Tracing.Enabled)
	exec := executor.New(engine, queryCache, tracer, m)
	searchHandler := handler.New(exec, engine, ingestSvc, queryCache, collector, *cfg)
	analyticsHandler := analytics.NewHandler(aggregator, snapshotStore)

	mux := http.NewServeMux()
	searchHandler.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", analyticsHandler.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mws := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.CORS(cfg.Server.CORSOrigins),
		middleware.Metrics(m),
	}
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.RequestsPerWindow > 0 {
		limiter = ratelimit.New(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)
		mws = append(mws, middleware.RateLimit(limiter))
	}
	mws = append(mws, middleware.Timeout(cfg.Server.RequestTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("searchd listening",
			"addr", server.Addr,
			"cache", queryCache != nil,
			"kafka", kafkaEnabled,
			"snapshots", snapshotStore != nil,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down searchd")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return collector.Run(gctx)
	})
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Port, prometheus.DefaultGatherer)
		})
	}
	if kafkaEnabled {
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.PageIngest, consumer.HandleMessage(ingestSvc))
		indexConsumer := consumer.New(kc)
		g.Go(func() error {
			return indexConsumer.Start(gctx)
		})
	}
	if snapshotStore != nil {
		g.Go(func() error {
			return snapshotStore.Run(gctx, aggregator, cfg.Analytics.SnapshotInterval)
		})
	}
	if limiter != nil {
		g.Go(func() error {
			limiter.Run(gctx, cfg.RateLimit.Window)
			return nil
		})
	}

	return g.Wait()
}

func seedPages(ctx context.Context, svc *ingestion.Service, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening pages file: %w", err)
	}
	defer f.Close()

	start := time.Now()
	n, err := ingestion.LoadPages(ctx, svc, f)
	if err != nil {
		return fmt.Errorf("seeding pages from %s: %w", path, err)
	}
	slog.Info("seed pages indexed", "count", n, "path", path, "duration", time.Since(start))
	return nil
}

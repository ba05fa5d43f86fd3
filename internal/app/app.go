// Package app wires configuration to the use cases and owns the
// process lifecycle.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"BlogHarvester/internal/adapter"
	"BlogHarvester/internal/config"
	"BlogHarvester/internal/enrichment"
	"BlogHarvester/internal/infrastructure/cache"
	"BlogHarvester/internal/infrastructure/delivery"
	"BlogHarvester/internal/infrastructure/llm"
	"BlogHarvester/internal/infrastructure/marketdata"
	"BlogHarvester/internal/infrastructure/parser"
	"BlogHarvester/internal/infrastructure/refdata"
	"BlogHarvester/internal/infrastructure/scheduler"
	"BlogHarvester/internal/infrastructure/storage"
	"BlogHarvester/internal/infrastructure/telegram"
	"BlogHarvester/internal/logging"
	"BlogHarvester/internal/metrics"
	"BlogHarvester/internal/notify"
	"BlogHarvester/internal/usecase"
)

// Application holds every long-lived component of the service.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db        *sql.DB
	linkCache *cache.RedisLinkCache
	consumer  *delivery.Consumer
	jobs      *usecase.Jobs
	server    *http.Server
}

// New builds the full dependency graph. It fails fast: a broken
// database, cache or broker connection aborts startup.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	sources := storage.NewSourceRepo(db)
	posts := storage.NewPostRepo(db)
	companies := storage.NewCompanyRepo(db)
	trackers := storage.NewTrackerRepo(db)
	notifications := storage.NewNotificationRepo(db)

	for _, seed := range cfg.Sources {
		if err := sources.Upsert(ctx, seed.Domain()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed source %s: %w", seed.ID, err)
		}
	}

	linkCache, err := cache.NewRedisLinkCache(cfg.Redis.URL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: %w", err)
	}

	natsConn, err := delivery.Connect(cfg.NATS.URL)
	if err != nil {
		_ = db.Close()
		_ = linkCache.Close()
		return nil, fmt.Errorf("broker: %w", err)
	}
	queue := delivery.NewQueue(natsConn, cfg.NATS.Subject)
	mailer := delivery.NewHTTPMailer(cfg.Mailer.Endpoint, cfg.Mailer.APIKey, cfg.Mailer.From)
	consumer := delivery.NewConsumer(natsConn, cfg.NATS.Subject, mailer, baseLogger.With("component", "delivery"))

	alerter := telegram.NewAlerter(cfg.Alerts.Telegram.BotToken, cfg.Alerts.Telegram.ChatID)
	completion := llm.NewClient(cfg.LLM)

	httpClient := parser.HTTPClient(time.Duration(cfg.Harvest.HTTPTimeoutSeconds) * time.Second)
	registry := adapter.NewRegistry()
	registry.Register(parser.NewFeedAdapter(httpClient, baseLogger.With("component", "adapter.feed")))
	registry.Register(parser.NewSitemapAdapter(httpClient, baseLogger.With("component", "adapter.sitemap")))
	registry.Register(parser.NewArchiveAdapter(httpClient, baseLogger.With("component", "adapter.archive")))
	registry.Register(parser.NewHTMLAdapter(httpClient, parser.DefaultScrapers(), completion, baseLogger.With("component", "adapter.html")))

	registerer := prometheus.NewRegistry()
	m := metrics.New(registerer)

	gateway := usecase.NewDedupGateway(posts, linkCache, baseLogger.With("component", "dedup"))
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Completion:       completion,
		Alerter:          alerter,
		Logger:           baseLogger.With("component", "pipeline"),
		MinDeepDiveWords: cfg.Pipeline.MinDeepDiveWords,
		ValidateRetries:  cfg.Pipeline.ValidateRetries,
	})
	fanout := notify.NewFanout(trackers, notifications, queue, baseLogger.With("component", "fanout"))
	harvester := usecase.NewHarvester(usecase.HarvesterDeps{
		Sources:              sources,
		Registry:             registry,
		Gateway:              gateway,
		Pipeline:             pipeline,
		Posts:                posts,
		Companies:            companies,
		Fanout:               fanout,
		Alerter:              alerter,
		Metrics:              m,
		Logger:               baseLogger.With("component", "harvester"),
		MaxConcurrentSources: cfg.Harvest.MaxConcurrentSources,
		MaxConcurrentPosts:   cfg.Pipeline.MaxConcurrentPosts,
		MinOverlap:           cfg.Resolver.MinOverlap,
		MinMarketCap:         cfg.Resolver.MinMarketCap,
	})

	enricher := enrichment.NewService(enrichment.ServiceDeps{
		Companies: companies,
		Primary:   marketdata.NewPrimaryClient(cfg.MarketData.PrimaryURL, cfg.MarketData.PrimaryKey),
		Fallback:  marketdata.NewScrapeClient(cfg.MarketData.FallbackURL),
		Breaker:   enrichment.NewBreaker(),
		Metrics:   m,
		Logger:    baseLogger.With("component", "enrichment"),
		BatchSize: cfg.Enrichment.BatchSize,
		MaxDelay:  time.Duration(cfg.Enrichment.MaxDelayMs) * time.Millisecond,
		Retries:   cfg.Enrichment.RetryAttempts,
	})

	instruments := refdata.NewClient(cfg.RefData.InstrumentsURL)
	refresh := func(ctx context.Context, _ time.Time) error {
		refs, err := instruments.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("fetch instruments: %w", err)
		}
		if err := companies.UpsertBatch(ctx, refs); err != nil {
			return fmt.Errorf("upsert companies: %w", err)
		}
		baseLogger.Info("reference list refreshed", "companies", len(refs))
		return nil
	}

	jobs := usecase.NewJobs(
		scheduler.NewCronScheduler(cfg.Scheduler.Location()),
		baseLogger.With("component", "jobs"),
	)
	if err := jobs.Register(cfg.Scheduler.HarvestCron, "harvest", harvester.Run); err != nil {
		return nil, err
	}
	if err := jobs.Register(cfg.Scheduler.EnrichCron, "enrich", enricher.RunBatch); err != nil {
		return nil, err
	}
	if err := jobs.Register(cfg.Scheduler.RefreshCron, "refresh", refresh); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		linkCache: linkCache,
		consumer:  consumer,
		jobs:      jobs,
		server:    &http.Server{Addr: cfg.HTTP.Addr, Handler: mux},
	}, nil
}

// Run starts the consumer, the scheduler and the HTTP listener, then
// blocks until ctx is cancelled and shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	if err := a.consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	if err := a.jobs.Start(ctx); err != nil {
		return fmt.Errorf("start jobs: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http listener started", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		a.shutdown()
		return fmt.Errorf("http listener: %w", err)
	case <-ctx.Done():
		a.logger.Info("shutting down")
		a.shutdown()
		return nil
	}
}

func (a *Application) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if err := a.jobs.Stop(ctx); err != nil {
		a.logger.Warn("jobs shutdown", "error", err)
	}
	if err := a.consumer.Stop(); err != nil {
		a.logger.Warn("consumer shutdown", "error", err)
	}
	if err := a.linkCache.Close(); err != nil {
		a.logger.Warn("cache close", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("database close", "error", err)
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"HackathonScanner/internal/adapter"
	"HackathonScanner/internal/adapter/devpost"
	"HackathonScanner/internal/adapter/hackerearth"
	"HackathonScanner/internal/adapter/mlh"
	"HackathonScanner/internal/config"
	"HackathonScanner/internal/fetcher"
	cronscheduler "HackathonScanner/internal/infrastructure/scheduler"
	"HackathonScanner/internal/infrastructure/storage"
	"HackathonScanner/internal/infrastructure/telegram"
	"HackathonScanner/internal/logging"
	"HackathonScanner/internal/ports"
	"HackathonScanner/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg          config.Config
	logger       *slog.Logger
	orchestrator *usecase.Orchestrator
	scheduler    *usecase.Scheduler
	closeDB      func() error
}

// New builds a runnable application instance: fetcher, adapters in
// registration order, store, orchestrator, and the cron driver.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	store := storage.NewPostgresRepository(db)

	crawlFetcher := fetcher.New(fetcher.Config{
		UserAgent:      cfg.Crawler.UserAgent,
		Timeout:        cfg.Crawler.Timeout(),
		MaxRetries:     cfg.Crawler.MaxRetries,
		RetryDelay:     cfg.Crawler.RetryDelay(),
		MaxConcurrency: cfg.Crawler.MaxConcurrency,
		MinInterval:    cfg.Crawler.MinInterval(),
	}, baseLogger.With("component", "fetcher"))

	// Registration order is also run order and the merge tie-break
	// direction, so it mirrors source priority.
	registry := adapter.NewRegistry()
	registry.Register(devpost.New(crawlFetcher, "", baseLogger.With("component", "adapter.devpost")))
	registry.Register(mlh.New(crawlFetcher, "", baseLogger.With("component", "adapter.mlh")))
	registry.Register(hackerearth.New(crawlFetcher, "", baseLogger.With("component", "adapter.hackerearth")))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	orchestrator := usecase.NewOrchestrator(usecase.Deps{
		Registry: registry,
		Fetcher:  crawlFetcher,
		Store:    store,
		Notifier: notifier,
		Logger:   baseLogger.With("component", "orchestrator"),
		Config: usecase.Config{
			DedupThreshold: cfg.Dedup.Threshold,
			DedupWindow:    cfg.Dedup.Window,
		},
	})

	driver := cronscheduler.NewCronScheduler(
		cfg.Scheduler.CronExpression,
		cfg.Scheduler.Location(),
		baseLogger.With("component", "scheduler"),
	)

	return &Application{
		cfg:          cfg,
		logger:       baseLogger,
		orchestrator: orchestrator,
		scheduler:    usecase.NewScheduler(driver, orchestrator, baseLogger.With("component", "scheduler")),
		closeDB:      db.Close,
	}, nil
}

// Run starts the recurring schedule (and an optional immediate run)
// and blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	if a.cfg.Scheduler.RunOnStart {
		if _, err := a.orchestrator.RunOnce(ctx); err != nil && !errors.Is(err, usecase.ErrRunInProgress) {
			a.logger.Error("initial ingestion run failed", "error", err)
		}
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.scheduler.Stop(stopCtx); err != nil {
		a.logger.Error("scheduler stop failed", "error", err)
	}
	if err := a.closeDB(); err != nil {
		a.logger.Error("close store failed", "error", err)
	}

	return nil
}

// RunOnce triggers a single ingestion pass, used by the run-once mode.
func (a *Application) RunOnce(ctx context.Context) error {
	report, err := a.orchestrator.RunOnce(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("run finished")
	fmt.Print(report.Summary())
	return nil
}

// Close releases resources for run-once mode.
func (a *Application) Close() error {
	return a.closeDB()
}

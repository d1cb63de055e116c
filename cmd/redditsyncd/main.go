package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/yumiaura/RedditSync/internal/config"
	"github.com/yumiaura/RedditSync/internal/media"
	"github.com/yumiaura/RedditSync/internal/publisher"
	"github.com/yumiaura/RedditSync/internal/retry"
	"github.com/yumiaura/RedditSync/internal/scheduler"
	"github.com/yumiaura/RedditSync/internal/service"
	"github.com/yumiaura/RedditSync/internal/source/reddit"
	"github.com/yumiaura/RedditSync/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	runOnce := flag.Bool("once", false, "run a single sync cycle and exit")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err, "path", cfg.Database.Path)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database ready", "path", cfg.Database.Path)

	itemStore := sqlite.NewItemStore(db)
	mediaStore := sqlite.NewMediaStore(db)
	subscriptionStore := sqlite.NewSubscriptionStore(db)

	var pub service.Publisher
	if cfg.RabbitMQ.URL != "" {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	redditSource := reddit.New(cfg.Reddit, logger)

	ingest := service.NewIngestService(
		redditSource,
		itemStore,
		pub,
		logger,
		cfg.Sync.PostLimit,
	)

	fetcher, err := media.NewCoordinator(itemStore, mediaStore, media.Config{
		Dir:           cfg.Media.Dir,
		MaxBytes:      cfg.Media.MaxSizeBytes,
		MaxConcurrent: cfg.Media.MaxConcurrentDownloads,
		Timeout:       cfg.Media.Timeout,
		Retry: retry.Policy{
			MaxAttempts:    cfg.Media.Retry.MaxAttempts,
			InitialBackoff: cfg.Media.Retry.InitialBackoff,
			MaxBackoff:     cfg.Media.Retry.MaxBackoff,
		},
	}, logger)
	if err != nil {
		logger.Error("failed to prepare media directory", "error", err, "dir", cfg.Media.Dir)
		os.Exit(1)
	}

	runner := service.NewRunner(subscriptionStore, ingest, fetcher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *runOnce {
		if _, err := runner.RunOnce(ctx); err != nil {
			logger.Error("sync run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("starting reddit syncer",
		"interval", cfg.Sync.Interval,
		"post_limit", cfg.Sync.PostLimit,
		"media_dir", cfg.Media.Dir,
	)

	sched := scheduler.New(runner, cfg.Sync.Interval, cfg.Sync.InitialDelay, logger)
	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

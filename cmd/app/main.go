package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"printdesk/internal/audit"
	"printdesk/internal/cache"
	"printdesk/internal/config"
	"printdesk/internal/feed"
	"printdesk/internal/handlers"
	"printdesk/internal/httpserver"
	"printdesk/internal/logging"
	"printdesk/internal/metrics"
	"printdesk/internal/mutate"
	"printdesk/internal/notifier"
	"printdesk/internal/repo"
	"printdesk/internal/store"
	"printdesk/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("starting printdesk", "env", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	var repository repo.Repository
	var feedConnector feed.Connector
	if cfg.DatabaseURL != "" {
		pg, err := repo.New(ctx, cfg.DatabaseURL, cfg.DatabaseSchema, logger)
		if err != nil {
			return fmt.Errorf("init repository: %w", err)
		}
		repository = pg
		feedConnector = feed.PgxConnector(cfg.DatabaseURL)
	} else {
		logger.Warn("DATABASE_URL unset, using local sqlite fallback", "path", cfg.SQLitePath)
		lite, err := repo.NewSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return fmt.Errorf("init sqlite repository: %w", err)
		}
		repository = lite
	}
	defer repository.Close()

	if err := repository.RunMigrations(ctx, migrations.Files); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrated")

	redisClient := cache.New(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		UseTLS:   cfg.RedisTLS,
	}, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed closing redis", "error", err)
		}
	}()
	if err := redisClient.Ping(ctx); err != nil {
		logger.Warn("redis ping failed", "error", err)
	}

	messagingClient, err := notifier.New(notifier.Config{
		BaseURL: cfg.MessagingBaseURL,
		Timeout: cfg.MessagingTimeout,
	}, logger, metricRegistry, redisClient)
	if err != nil {
		return fmt.Errorf("init messaging client: %w", err)
	}

	hub := feed.NewHub(feedConnector, logger, metricRegistry)
	go func() {
		if err := hub.Run(ctx); err != nil {
			logger.Error("feed hub stopped", "error", err)
		}
	}()
	if feedConnector == nil {
		// SQLite has no NOTIFY; fall back to periodic refetches.
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					hub.Broadcast(feed.Event{Kind: feed.KindResync})
				}
			}
		}()
	}

	entityStore := store.New(repository, hub, logger, metricRegistry)
	entityStore.SetNotificationLimit(cfg.NotificationLimit)
	if err := entityStore.Start(ctx); err != nil {
		return fmt.Errorf("start entity store: %w", err)
	}
	defer entityStore.Close()

	auditRecorder := audit.NewRecorder(repository, logger, metricRegistry)
	coordinator := mutate.NewCoordinator(repository, entityStore, auditRecorder, messagingClient, logger, metricRegistry)

	webhookProcessor := handlers.NewMessagingWebhookProcessor(repository, logger, metricRegistry)
	webhookHandler := notifier.NewWebhookHandler(logger, metricRegistry,
		cfg.MessagingWebhookUsernameMD5, cfg.MessagingWebhookPasswordMD5, webhookProcessor)

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, httpserver.Handlers{
		MessagingWebhook: webhookHandler,
	}, cfg.PublicBasePath)
	httpSrv.SetDependencies(httpserver.Dependencies{
		Repository:          repository,
		Store:               entityStore,
		Coordinator:         coordinator,
		Messaging:           messagingClient,
		AutosaveQuietPeriod: cfg.AutosaveQuietPeriod,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}

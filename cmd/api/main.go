package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/migratemate/retention-backend/api/routes"
	"github.com/migratemate/retention-backend/internal/analytics"
	"github.com/migratemate/retention-backend/internal/cancellations"
	"github.com/migratemate/retention-backend/internal/subscriptions"
	"github.com/migratemate/retention-backend/pkg/config"
	"github.com/migratemate/retention-backend/pkg/db"
	"github.com/migratemate/retention-backend/pkg/logger"
	"github.com/migratemate/retention-backend/pkg/metrics"
	"github.com/migratemate/retention-backend/pkg/migrate"
	"github.com/migratemate/retention-backend/pkg/outbox"
	"github.com/migratemate/retention-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	// Redis only backs the analytics cache; the API runs without it.
	var redisClient *redis.Client
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err = redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Warn(logg.WithField(context.Background(), "error", err.Error()), "redis unavailable, analytics cache disabled")
			redisClient = nil
		}
	} else {
		logg.Warn(context.Background(), "redis not configured, analytics cache disabled")
	}

	registry := prometheus.NewRegistry()
	flowMetrics := metrics.NewFlowMetrics(registry)

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), cfg.PubSub.RetentionTopic)

	cancellationRepo := cancellations.NewRepository(dbClient.DB())
	subscriptionRepo := subscriptions.NewRepository(dbClient.DB())

	cancellationService, err := cancellations.NewService(cancellations.ServiceParams{
		Repo:              cancellationRepo,
		SubscriptionRepo:  subscriptionRepo,
		TransactionRunner: dbClient,
		Metrics:           flowMetrics,
		Outbox:            emitter,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cancellation service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:              subscriptionRepo,
		CancellationRepo:  cancellationRepo,
		TransactionRunner: dbClient,
		Outbox:            emitter,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	analyticsParams := analytics.ServiceParams{
		Repo:     analytics.NewRepository(dbClient.DB()),
		CacheTTL: cfg.Analytics.CacheTTL,
		Logger:   logg,
	}
	if redisClient != nil {
		analyticsParams.Cache = redisClient
	}
	analyticsService, err := analytics.NewService(analyticsParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	var redisPinger redis.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisPinger,
			registry,
			cancellationService,
			subscriptionService,
			analyticsService,
		),
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serverErr <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var closeErr error
	closeErr = multierr.Append(closeErr, server.Shutdown(shutdownCtx))
	if redisClient != nil {
		closeErr = multierr.Append(closeErr, redisClient.Close())
	}
	closeErr = multierr.Append(closeErr, dbClient.Close())
	if closeErr != nil {
		logg.Error(ctx, "errors during shutdown", closeErr)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down cleanly")
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/pixcheckout-backend/internal/admin"
	"github.com/angelmondragon/pixcheckout-backend/internal/cron"
	"github.com/angelmondragon/pixcheckout-backend/internal/siteconfig"
	"github.com/angelmondragon/pixcheckout-backend/internal/transactions"
	"github.com/angelmondragon/pixcheckout-backend/pkg/config"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/metrics"
	"github.com/angelmondragon/pixcheckout-backend/pkg/migrate"
	"github.com/angelmondragon/pixcheckout-backend/pkg/outbox"
	"github.com/angelmondragon/pixcheckout-backend/pkg/pushinpay"
	"github.com/angelmondragon/pixcheckout-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	reconMetrics := metrics.NewReconciliationMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockName(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	settings, err := siteconfig.NewService(siteconfig.NewRepository(conn), cfg.Checkout.SiteConfigCacheTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create site config service", err)
		os.Exit(1)
	}
	provider, err := pushinpay.NewClient(cfg.PushinPay.Token,
		pushinpay.WithBaseURL(cfg.PushinPay.BaseURL),
		pushinpay.WithTimeout(cfg.PushinPay.Timeout),
		pushinpay.WithRateLimit(cfg.PushinPay.RateLimitRPS, cfg.PushinPay.RateBurst),
		pushinpay.WithTokenSource(settings.PushinPayToken),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create pushinpay client", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(conn)
	txRepo := transactions.NewRepository(conn)
	store, err := transactions.NewStore(txRepo, dbClient, outbox.NewService(outboxRepo, logg), transactions.NewRedisFeed(redisClient, logg), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction store", err)
		os.Exit(1)
	}
	adminService, err := admin.NewService(dbClient, txRepo, store, admin.NewBackupRepository(conn), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewPaymentSweepJob(cron.PaymentSweepJobParams{
		Logger:     logg,
		Store:      store,
		Provider:   provider,
		Metrics:    reconMetrics,
		StaleAfter: cfg.Reconciliation.SweepStaleAfter,
		MaxAge:     cfg.Reconciliation.SweepMaxAge,
		BatchSize:  cfg.Reconciliation.SweepBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment sweep job", err)
		os.Exit(1)
	}
	outboxJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}
	backupJob, err := cron.NewBackupRetentionJob(cron.BackupRetentionJobParams{
		Logger:    logg,
		Backups:   adminService,
		Retention: cfg.Cron.BackupRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create backup retention job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(sweepJob)
	registry.RegisterEvery(outboxJob, cfg.Cron.RetentionEvery)
	registry.RegisterEvery(backupJob, cfg.Cron.RetentionEvery)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return metrics.Serve(groupCtx, metrics.NewServer(cfg.Service.MetricsAddr, prometheus.DefaultGatherer))
	})
	group.Go(func() error {
		return service.Run(groupCtx)
	})
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}

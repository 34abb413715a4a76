package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/pixcheckout-backend/internal/analytics/router"
	"github.com/angelmondragon/pixcheckout-backend/internal/analytics/types"
	"github.com/angelmondragon/pixcheckout-backend/internal/analytics/worker"
	"github.com/angelmondragon/pixcheckout-backend/internal/analytics/writer"
	"github.com/angelmondragon/pixcheckout-backend/internal/siteconfig"
	"github.com/angelmondragon/pixcheckout-backend/pkg/bigquery"
	"github.com/angelmondragon/pixcheckout-backend/pkg/config"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db"
	"github.com/angelmondragon/pixcheckout-backend/pkg/facebook"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/metrics"
	"github.com/angelmondragon/pixcheckout-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/pixcheckout-backend/pkg/pubsub"
	"github.com/angelmondragon/pixcheckout-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "analytics-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "analytics-worker"

	logg = logger.New(logger.Options{
		ServiceName: "analytics-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	// Pixel id and access token live in site_config, so the worker reads the same table the admin edits.
	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg, bigquery.TableSpec{
		Name:           cfg.BigQuery.FunnelEventsTable,
		Schema:         types.FunnelEventSchema,
		PartitionField: "occurred_at",
	})
	requireResource(ctx, logg, "bigquery client", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "failed to close bigquery client", err)
		}
	}()

	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "analytics subscription", errors.New("subscription not configured"))
	}

	guard, err := idempotency.NewGuard(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency guard", err)

	funnelWriter, err := writer.New(bqClient, writer.Config{FunnelTable: cfg.BigQuery.FunnelEventsTable})
	requireResource(ctx, logg, "funnel bigquery writer", err)

	settings, err := siteconfig.NewService(siteconfig.NewRepository(dbClient.DB()), cfg.Checkout.SiteConfigCacheTTL, logg)
	requireResource(ctx, logg, "site config", err)

	fbClient := facebook.NewClient(
		facebook.WithBaseURL(cfg.Facebook.GraphBaseURL),
		facebook.WithTimeout(cfg.Facebook.Timeout),
		facebook.WithTestEventCode(cfg.Facebook.TestEventCode),
	)
	forwarder, err := router.NewFacebookForwarder(fbClient, settings, logg)
	requireResource(ctx, logg, "facebook forwarder", err)

	routingHandler, err := router.NewRouter(funnelWriter, forwarder, logg, nil)
	requireResource(ctx, logg, "analytics router", err)

	service, err := worker.NewService(subscription, routingHandler, guard, logg)
	requireResource(ctx, logg, "analytics worker service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "analytics worker ready")

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return metrics.Serve(groupCtx, metrics.NewServer(cfg.Service.MetricsAddr, prometheus.DefaultGatherer))
	})
	group.Go(func() error {
		return service.Run(groupCtx)
	})
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "analytics worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

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

	"github.com/angelmondragon/pixcheckout-backend/api/controllers"
	"github.com/angelmondragon/pixcheckout-backend/api/routes"
	"github.com/angelmondragon/pixcheckout-backend/internal/admin"
	"github.com/angelmondragon/pixcheckout-backend/internal/analytics"
	"github.com/angelmondragon/pixcheckout-backend/internal/blocklist"
	"github.com/angelmondragon/pixcheckout-backend/internal/checkout"
	"github.com/angelmondragon/pixcheckout-backend/internal/reconciliation"
	"github.com/angelmondragon/pixcheckout-backend/internal/siteconfig"
	"github.com/angelmondragon/pixcheckout-backend/internal/transactions"
	"github.com/angelmondragon/pixcheckout-backend/internal/upsells"
	pushinpaywebhook "github.com/angelmondragon/pixcheckout-backend/internal/webhooks/pushinpay"
	"github.com/angelmondragon/pixcheckout-backend/pkg/auth/session"
	"github.com/angelmondragon/pixcheckout-backend/pkg/config"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/metrics"
	"github.com/angelmondragon/pixcheckout-backend/pkg/migrate"
	"github.com/angelmondragon/pixcheckout-backend/pkg/outbox"
	"github.com/angelmondragon/pixcheckout-backend/pkg/pushinpay"
	"github.com/angelmondragon/pixcheckout-backend/pkg/redis"
	"github.com/angelmondragon/pixcheckout-backend/pkg/security"
)

const shutdownTimeout = 15 * time.Second

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

	sessionManager, err := session.NewManager(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	reg := prometheus.DefaultRegisterer
	reconMetrics := metrics.NewReconciliationMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)

	conn := dbClient.DB()
	settings, err := siteconfig.NewService(siteconfig.NewRepository(conn), cfg.Checkout.SiteConfigCacheTTL, logg)
	if err != nil {
		fatal(logg, "failed to create site config service", err)
	}

	provider, err := pushinpay.NewClient(cfg.PushinPay.Token,
		pushinpay.WithBaseURL(cfg.PushinPay.BaseURL),
		pushinpay.WithTimeout(cfg.PushinPay.Timeout),
		pushinpay.WithRateLimit(cfg.PushinPay.RateLimitRPS, cfg.PushinPay.RateBurst),
		pushinpay.WithTokenSource(settings.PushinPayToken),
	)
	if err != nil {
		fatal(logg, "failed to create pushinpay client", err)
	}

	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)
	txRepo := transactions.NewRepository(conn)
	store, err := transactions.NewStore(txRepo, dbClient, outboxService, transactions.NewRedisFeed(redisClient, logg), logg)
	if err != nil {
		fatal(logg, "failed to create transaction store", err)
	}

	tracker, err := analytics.NewTracker(dbClient, outboxService, settings, store, cfg.App.PublicURL, logg)
	if err != nil {
		fatal(logg, "failed to create analytics tracker", err)
	}

	coordinator, err := reconciliation.NewCoordinator(provider, store, tracker, reconMetrics, logg, reconciliation.Options{
		PollInterval:    cfg.Reconciliation.PollInterval,
		SessionTTL:      cfg.Checkout.SessionTTL,
		JanitorInterval: cfg.Reconciliation.JanitorInterval,
	})
	if err != nil {
		fatal(logg, "failed to create reconciliation coordinator", err)
	}

	blocks, err := blocklist.NewService(blocklist.NewRepository(conn), dbClient)
	if err != nil {
		fatal(logg, "failed to create blocklist service", err)
	}
	offers, err := upsells.NewService(upsells.NewRepository(conn))
	if err != nil {
		fatal(logg, "failed to create upsell service", err)
	}

	checkoutService, err := checkout.NewService(checkout.Deps{
		Settings:     settings,
		Blocklist:    blocks,
		Upsells:      offers,
		Transactions: store,
		Provider:     provider,
		Coordinator:  coordinator,
		Tracker:      tracker,
		Logger:       logg,
	}, checkout.Options{
		SessionTTL: cfg.Checkout.SessionTTL,
		WebhookURL: cfg.PushinPay.WebhookURL,
	})
	if err != nil {
		fatal(logg, "failed to create checkout service", err)
	}

	guard, err := pushinpaywebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookDedupeTTL)
	if err != nil {
		fatal(logg, "failed to create webhook guard", err)
	}
	webhookService, err := pushinpaywebhook.NewService(store, guard, reconMetrics, logg)
	if err != nil {
		fatal(logg, "failed to create webhook service", err)
	}

	adminService, err := admin.NewService(dbClient, txRepo, store, admin.NewBackupRepository(conn), logg)
	if err != nil {
		fatal(logg, "failed to create admin service", err)
	}
	authenticator, err := admin.NewAuthenticator(cfg.Admin, cfg.JWT, sessionManager, logg)
	if err != nil {
		fatal(logg, "failed to create admin authenticator", err)
	}
	if security.NeedsRehash(cfg.Admin.PasswordHash, cfg.Password) {
		logg.Warn(context.Background(), "admin password hash is weaker than the configured argon2 cost; regenerate it with cmd/hash-password")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})

	go coordinator.Run(ctx)
	go checkoutService.Run(ctx, cfg.Reconciliation.JanitorInterval)

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:        cfg,
			Logger:        logg,
			Redis:         redisClient,
			Sessions:      sessionManager,
			Pingers:       map[string]controllers.Pinger{"db": dbClient, "redis": redisClient},
			Gatherer:      prometheus.DefaultGatherer,
			HTTPMetrics:   httpMetrics,
			Pix:           provider,
			Checkout:      checkoutService,
			Webhook:       webhookService,
			Authenticator: authenticator,
			Dashboard:     adminService,
			Blocklist:     blocks,
			Upsells:       offers,
			Settings:      settings,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		coordinator.StopAll()
	}
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}

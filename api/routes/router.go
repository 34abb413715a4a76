package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pixcheckout-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/pixcheckout-backend/api/controllers/admin"
	webhookcontrollers "github.com/angelmondragon/pixcheckout-backend/api/controllers/webhooks"
	"github.com/angelmondragon/pixcheckout-backend/api/middleware"
	"github.com/angelmondragon/pixcheckout-backend/pkg/auth/session"
	"github.com/angelmondragon/pixcheckout-backend/pkg/config"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/pixcheckout-backend/pkg/redis"
)

// RedisStore is everything the HTTP layer needs from Redis: idempotency
// records and the two fixed-window limiters.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Dependencies groups the services mounted by NewRouter. Nil pingers are
// skipped by the readiness probe.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	Redis       RedisStore
	Sessions    session.AccessSessionChecker
	Pingers     map[string]controllers.Pinger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Pix           controllers.PixProvider
	Checkout      controllers.CheckoutService
	Webhook       webhookcontrollers.PushinPayWebhookService
	Authenticator admincontrollers.Authenticator
	Dashboard     admincontrollers.DashboardService
	Blocklist     admincontrollers.BlocklistService
	Upsells       admincontrollers.UpsellService
	Settings      admincontrollers.SettingsService
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	// Load already rejected malformed entries.
	proxies, _ := cfg.App.TrustedProxyPrefixes()

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.ClientIP(proxies),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	var (
		limiter     middleware.WindowLimiter
		idempotency pkgredis.IdempotencyStore
		counters    middleware.CounterStore
	)
	if deps.Redis != nil {
		limiter, idempotency, counters = deps.Redis, deps.Redis, deps.Redis
	}
	publicLimit := middleware.RateLimit("public", cfg.RateLimit.IPLimit, cfg.RateLimit.Window, limiter, logg)
	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"admin-login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(deps.Pingers, logg))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/pix", func(r chi.Router) {
		r.Use(publicLimit)
		r.Post("/create", controllers.PixCreate(deps.Pix, cfg.PushinPay.WebhookURL, logg))
		r.Get("/check-by-pixid/{pixID}", controllers.PixCheckByPixID(deps.Pix, logg))
	})

	r.Route("/api/checkout/sessions", func(r chi.Router) {
		r.Use(publicLimit)
		r.Post("/", controllers.CheckoutStart(deps.Checkout, logg))
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Post("/advance", controllers.CheckoutAdvance(deps.Checkout, logg))
			r.Post("/pay", controllers.CheckoutPay(deps.Checkout, logg))
			r.Get("/status", controllers.CheckoutStatus(deps.Checkout, logg))
			r.Post("/add-to-cart", controllers.CheckoutAddToCart(deps.Checkout, logg))
			r.Delete("/", controllers.CheckoutClose(deps.Checkout, logg))
		})
	})

	r.Post("/api/webhooks/pushinpay", webhookcontrollers.PushinPayWebhook(deps.Webhook, cfg.PushinPay.WebhookToken, logg))

	r.Route("/api/admin", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, counters, logg)).
			Post("/auth/login", admincontrollers.Login(deps.Authenticator, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.Idempotency(idempotency, logg))

			r.Post("/auth/logout", admincontrollers.Logout(deps.Authenticator, logg))
			r.Get("/dashboard", admincontrollers.Dashboard(deps.Dashboard, logg))
			r.Get("/transactions", admincontrollers.Transactions(deps.Dashboard, logg))
			r.Get("/transactions/emails", admincontrollers.Emails(deps.Dashboard, logg))
			r.Post("/metrics/clear", admincontrollers.ClearMetrics(deps.Dashboard, logg))
			r.Get("/backups", admincontrollers.Backups(deps.Dashboard, logg))
			r.Post("/backups/{backupID}/restore", admincontrollers.RestoreBackup(deps.Dashboard, logg))

			r.Route("/blocked-ips", func(r chi.Router) {
				r.Get("/", admincontrollers.ListBlockedIPs(deps.Blocklist, logg))
				r.Post("/", admincontrollers.BlockIP(deps.Blocklist, logg))
				r.Delete("/{blockID}", admincontrollers.UnblockIP(deps.Blocklist, logg))
			})
			r.Route("/upsells", func(r chi.Router) {
				r.Get("/", admincontrollers.ListUpsells(deps.Upsells, logg))
				r.Post("/", admincontrollers.CreateUpsell(deps.Upsells, logg))
				r.Put("/{upsellID}", admincontrollers.UpdateUpsell(deps.Upsells, logg))
				r.Delete("/{upsellID}", admincontrollers.DeleteUpsell(deps.Upsells, logg))
			})
			r.Route("/settings", func(r chi.Router) {
				r.Get("/", admincontrollers.Settings(deps.Settings, logg))
				r.Put("/{key}", admincontrollers.UpdateSetting(deps.Settings, logg))
			})
		})
	})

	return r
}

package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App            AppConfig
	Service        ServiceConfig
	DB             DBConfig
	Redis          RedisConfig
	JWT            JWTConfig
	Password       PasswordConfig
	Admin          AdminConfig
	AuthRateLimit  AuthRateLimitConfig
	RateLimit      RateLimitConfig
	FeatureFlags   FeatureFlagsConfig
	PushinPay      PushinPayConfig
	Checkout       CheckoutConfig
	Reconciliation ReconciliationConfig
	Eventing       EventingConfig
	GCP            GCPConfig
	PubSub         PubSubConfig
	BigQuery       BigQueryConfig
	Facebook       FacebookConfig
	Outbox         OutboxConfig
	Cron           CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.App.TrustedProxyPrefixes(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env            string   `envconfig:"PIXCHECKOUT_APP_ENV" required:"true"`
	Port           string   `envconfig:"PIXCHECKOUT_APP_PORT" required:"true"`
	PublicURL      string   `envconfig:"PIXCHECKOUT_APP_PUBLIC_URL" default:"http://localhost:8080"`
	AllowedOrigins []string `envconfig:"PIXCHECKOUT_APP_ALLOWED_ORIGINS" default:"*"`
	// TrustedProxies lists the peers whose forwarded headers are honored, as CIDRs or bare IPs.
	TrustedProxies []string `envconfig:"PIXCHECKOUT_APP_TRUSTED_PROXIES" default:"127.0.0.1/32,::1/128,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,169.254.0.0/16"`
	LogLevel       string   `envconfig:"PIXCHECKOUT_LOG_LEVEL" default:"info"`
	LogWarnStack   bool     `envconfig:"PIXCHECKOUT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// TrustedProxyPrefixes parses TrustedProxies. A bare IP becomes a single-host prefix.
func (a AppConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(a.TrustedProxies))
	for _, raw := range a.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return nil, fmt.Errorf("PIXCHECKOUT_APP_TRUSTED_PROXIES: %w", err)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("PIXCHECKOUT_APP_TRUSTED_PROXIES: %w", err)
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes, nil
}

type ServiceConfig struct {
	Kind string `envconfig:"PIXCHECKOUT_SERVICE_KIND" default:"api"`
	// MetricsAddr is where workers serve /metrics and /healthz; empty disables it.
	MetricsAddr string `envconfig:"PIXCHECKOUT_METRICS_ADDR" default:":9090"`
}

type DBConfig struct {
	DSN    string `envconfig:"PIXCHECKOUT_DB_DSN"`
	Driver string `envconfig:"PIXCHECKOUT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PIXCHECKOUT_DB_HOST"`
	LegacyPort     int    `envconfig:"PIXCHECKOUT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PIXCHECKOUT_DB_USER"`
	LegacyPassword string `envconfig:"PIXCHECKOUT_DB_PASSWORD"`
	LegacyName     string `envconfig:"PIXCHECKOUT_DB_NAME"`
	LegacySSLMode  string `envconfig:"PIXCHECKOUT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PIXCHECKOUT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PIXCHECKOUT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PIXCHECKOUT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PIXCHECKOUT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"PIXCHECKOUT_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PIXCHECKOUT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PIXCHECKOUT_REDIS_ADDR"`
	Password     string        `envconfig:"PIXCHECKOUT_REDIS_PASSWORD"`
	DB           int           `envconfig:"PIXCHECKOUT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PIXCHECKOUT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PIXCHECKOUT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PIXCHECKOUT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PIXCHECKOUT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PIXCHECKOUT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PIXCHECKOUT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PIXCHECKOUT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PIXCHECKOUT_JWT_EXPIRATION_MINUTES" default:"480"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PIXCHECKOUT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PIXCHECKOUT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PIXCHECKOUT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PIXCHECKOUT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PIXCHECKOUT_ARGON_KEY_LEN" default:"32"`
}

// AdminConfig holds the single dashboard operator credential. PasswordHash is an
// argon2id encoded hash produced by security.HashPassword.
type AdminConfig struct {
	Username     string `envconfig:"PIXCHECKOUT_ADMIN_USERNAME" default:"admin"`
	PasswordHash string `envconfig:"PIXCHECKOUT_ADMIN_PASSWORD_HASH" required:"true"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PIXCHECKOUT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit       int           `envconfig:"PIXCHECKOUT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"10"`
	LoginUsernameLimit int           `envconfig:"PIXCHECKOUT_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
}

// RateLimitConfig throttles the public checkout and PIX endpoints per client IP.
type RateLimitConfig struct {
	Window  time.Duration `envconfig:"PIXCHECKOUT_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit int64         `envconfig:"PIXCHECKOUT_RATE_LIMIT_IP_LIMIT" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PIXCHECKOUT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PIXCHECKOUT_AUTO_MIGRATE" default:"false"`
}

type PushinPayConfig struct {
	BaseURL      string        `envconfig:"PIXCHECKOUT_PUSHINPAY_BASE_URL" default:"https://api.pushinpay.com.br/api"`
	Token        string        `envconfig:"PIXCHECKOUT_PUSHINPAY_TOKEN"`
	WebhookURL   string        `envconfig:"PIXCHECKOUT_PUSHINPAY_WEBHOOK_URL"`
	WebhookToken string        `envconfig:"PIXCHECKOUT_PUSHINPAY_WEBHOOK_TOKEN"`
	Timeout      time.Duration `envconfig:"PIXCHECKOUT_PUSHINPAY_TIMEOUT" default:"10s"`
	RateLimitRPS float64       `envconfig:"PIXCHECKOUT_PUSHINPAY_RATE_LIMIT_RPS" default:"10"`
	RateBurst    int           `envconfig:"PIXCHECKOUT_PUSHINPAY_RATE_BURST" default:"20"`
}

type CheckoutConfig struct {
	SessionTTL         time.Duration `envconfig:"PIXCHECKOUT_CHECKOUT_SESSION_TTL" default:"30m"`
	SiteConfigCacheTTL time.Duration `envconfig:"PIXCHECKOUT_CHECKOUT_SITE_CONFIG_CACHE_TTL" default:"30s"`
}

type ReconciliationConfig struct {
	PollInterval    time.Duration `envconfig:"PIXCHECKOUT_RECONCILIATION_POLL_INTERVAL" default:"1s"`
	JanitorInterval time.Duration `envconfig:"PIXCHECKOUT_RECONCILIATION_JANITOR_INTERVAL" default:"1m"`
	SweepStaleAfter time.Duration `envconfig:"PIXCHECKOUT_RECONCILIATION_SWEEP_STALE_AFTER" default:"10m"`
	SweepMaxAge     time.Duration `envconfig:"PIXCHECKOUT_RECONCILIATION_SWEEP_MAX_AGE" default:"24h"`
	SweepBatchSize  int           `envconfig:"PIXCHECKOUT_RECONCILIATION_SWEEP_BATCH_SIZE" default:"50"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PIXCHECKOUT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookDedupeTTL     time.Duration `envconfig:"PIXCHECKOUT_EVENTING_WEBHOOK_DEDUPE_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PIXCHECKOUT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PIXCHECKOUT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PIXCHECKOUT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	AnalyticsTopic        string `envconfig:"PIXCHECKOUT_PUBSUB_ANALYTICS_TOPIC" default:"pix-checkout-events"`
	AnalyticsSubscription string `envconfig:"PIXCHECKOUT_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"pix-checkout-events-analytics"`
}

type BigQueryConfig struct {
	Dataset           string `envconfig:"PIXCHECKOUT_BIGQUERY_DATASET" default:"pixcheckout"`
	FunnelEventsTable string `envconfig:"PIXCHECKOUT_BIGQUERY_FUNNEL_TABLE" default:"funnel_events"`
	CreateTables      bool   `envconfig:"PIXCHECKOUT_BIGQUERY_CREATE_TABLES" default:"false"`
}

type FacebookConfig struct {
	GraphBaseURL  string        `envconfig:"PIXCHECKOUT_FACEBOOK_GRAPH_URL" default:"https://graph.facebook.com/v18.0"`
	TestEventCode string        `envconfig:"PIXCHECKOUT_FACEBOOK_TEST_EVENT_CODE"`
	Timeout       time.Duration `envconfig:"PIXCHECKOUT_FACEBOOK_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PIXCHECKOUT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PIXCHECKOUT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PIXCHECKOUT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"PIXCHECKOUT_CRON_INTERVAL" default:"5m"`
	LockTTL         time.Duration `envconfig:"PIXCHECKOUT_CRON_LOCK_TTL" default:"4m"`
	RetentionEvery  time.Duration `envconfig:"PIXCHECKOUT_CRON_RETENTION_EVERY" default:"24h"`
	OutboxRetention time.Duration `envconfig:"PIXCHECKOUT_CRON_OUTBOX_RETENTION" default:"720h"`
	BackupRetention time.Duration `envconfig:"PIXCHECKOUT_CRON_BACKUP_RETENTION" default:"2160h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

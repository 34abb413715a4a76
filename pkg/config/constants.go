package config

const (
	EnvPrefix = "PIXCHECKOUT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "PIXCHECKOUT_APP_ENV"
	EnvPort     = "PIXCHECKOUT_APP_PORT"
	EnvLogLevel = "PIXCHECKOUT_LOG_LEVEL"

	EnvDBDSN  = "PIXCHECKOUT_DB_DSN"
	EnvDBHost = "PIXCHECKOUT_DB_HOST"
	EnvDBUser = "PIXCHECKOUT_DB_USER"
	EnvDBName = "PIXCHECKOUT_DB_NAME"

	EnvRedisURL = "PIXCHECKOUT_REDIS_URL"

	EnvJWTSecret  = "PIXCHECKOUT_JWT_SECRET"
	EnvJWTIssuer  = "PIXCHECKOUT_JWT_ISSUER"
	EnvJWTExpMins = "PIXCHECKOUT_JWT_EXPIRATION_MINUTES"

	EnvAdminUsername     = "PIXCHECKOUT_ADMIN_USERNAME"
	EnvAdminPasswordHash = "PIXCHECKOUT_ADMIN_PASSWORD_HASH"

	EnvPushinPayToken   = "PIXCHECKOUT_PUSHINPAY_TOKEN"
	EnvPushinPayTimeout = "PIXCHECKOUT_PUSHINPAY_TIMEOUT"

	EnvReconciliationPollInterval = "PIXCHECKOUT_RECONCILIATION_POLL_INTERVAL"
	EnvGCPProjectID               = "PIXCHECKOUT_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

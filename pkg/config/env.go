package config

const (
	EnvPrefix = "CARTFLOW"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv            = "CARTFLOW_APP_ENV"
	EnvPort              = "CARTFLOW_APP_PORT"
	EnvLogLevel          = "CARTFLOW_LOG_LEVEL"
	EnvDBDSN             = "CARTFLOW_DB_DSN"
	EnvUseSQLite         = "CARTFLOW_USE_SQLITE"
	EnvRedisURL          = "CARTFLOW_REDIS_URL"
	EnvRedisAddr         = "CARTFLOW_REDIS_ADDR"
	EnvWCRestURL         = "CARTFLOW_WC_REST_URL"
	EnvWCConsumerKey     = "CARTFLOW_WC_CONSUMER_KEY"
	EnvWCConsumerSecret  = "CARTFLOW_WC_CONSUMER_SECRET"
	EnvWCTimeout         = "CARTFLOW_WC_TIMEOUT"
	EnvSessionTTL        = "CARTFLOW_SESSION_TTL"
	EnvAnalyticsEnabled  = "CARTFLOW_ANALYTICS_ENABLED"
	EnvGCPProjectID      = "CARTFLOW_GCP_PROJECT_ID"
	EnvAnalyticsTopic    = "CARTFLOW_ANALYTICS_TOPIC"
	EnvAnalyticsSub      = "CARTFLOW_ANALYTICS_SUBSCRIPTION"
	EnvBigQueryDataset   = "CARTFLOW_BIGQUERY_DATASET"
	EnvSearchPageSize    = "CARTFLOW_SEARCH_PAGE_SIZE"
	EnvOrderIdempotencyT = "CARTFLOW_ORDER_IDEMPOTENCY_TTL"
)

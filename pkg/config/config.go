package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	WooCommerce  WooCommerceConfig
	Session      SessionConfig
	Idempotency  IdempotencyConfig
	Analytics    AnalyticsConfig
	BigQuery     BigQueryConfig
	Search       SearchConfig
	Maintenance  MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARTFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"CARTFLOW_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CARTFLOW_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CARTFLOW_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CARTFLOW_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma separated list of storefront origins.
	CORSOrigins []string `envconfig:"CARTFLOW_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN             string        `envconfig:"CARTFLOW_DB_DSN"`
	Driver          string        `envconfig:"CARTFLOW_DB_DRIVER" default:"postgres"`
	MaxOpenConns    int           `envconfig:"CARTFLOW_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"CARTFLOW_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CARTFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTFLOW_REDIS_URL"`
	Address      string        `envconfig:"CARTFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"CARTFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTFLOW_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"CARTFLOW_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CARTFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CARTFLOW_AUTO_MIGRATE" default:"false"`
}

// WooCommerceConfig points at the external order-management REST API.
type WooCommerceConfig struct {
	BaseURL        string        `envconfig:"CARTFLOW_WC_REST_URL" required:"true"`
	ConsumerKey    string        `envconfig:"CARTFLOW_WC_CONSUMER_KEY" required:"true"`
	ConsumerSecret string        `envconfig:"CARTFLOW_WC_CONSUMER_SECRET" required:"true"`
	Timeout        time.Duration `envconfig:"CARTFLOW_WC_TIMEOUT" default:"15s"`
	// Breaker trips after this many consecutive transport failures.
	BreakerFailures uint32        `envconfig:"CARTFLOW_WC_BREAKER_FAILURES" default:"5"`
	BreakerCooldown time.Duration `envconfig:"CARTFLOW_WC_BREAKER_COOLDOWN" default:"30s"`
}

type SessionConfig struct {
	TTL time.Duration `envconfig:"CARTFLOW_SESSION_TTL" default:"720h"`
}

type IdempotencyConfig struct {
	OrderTTL time.Duration `envconfig:"CARTFLOW_ORDER_IDEMPOTENCY_TTL" default:"24h"`
}

type AnalyticsConfig struct {
	Enabled                bool          `envconfig:"CARTFLOW_ANALYTICS_ENABLED" default:"false"`
	ProjectID              string        `envconfig:"CARTFLOW_GCP_PROJECT_ID"`
	CredentialsJSON        string        `envconfig:"CARTFLOW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string        `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	Topic                  string        `envconfig:"CARTFLOW_ANALYTICS_TOPIC" default:"cf-checkout-events"`
	Subscription           string        `envconfig:"CARTFLOW_ANALYTICS_SUBSCRIPTION" default:"cf-checkout-events-warehouse"`
	Timeout                time.Duration `envconfig:"CARTFLOW_ANALYTICS_TIMEOUT" default:"5s"`
}

// BigQueryConfig locates the warehouse table fed by the analytics worker.
type BigQueryConfig struct {
	Dataset     string        `envconfig:"CARTFLOW_BIGQUERY_DATASET"`
	EventsTable string        `envconfig:"CARTFLOW_BIGQUERY_EVENTS_TABLE" default:"checkout_events"`
	DedupeTTL   time.Duration `envconfig:"CARTFLOW_ANALYTICS_DEDUPE_TTL" default:"72h"`
}

type SearchConfig struct {
	PageSize int `envconfig:"CARTFLOW_SEARCH_PAGE_SIZE" default:"24"`
}

// MaintenanceConfig drives the scheduled retention worker.
type MaintenanceConfig struct {
	Interval          time.Duration `envconfig:"CARTFLOW_MAINTENANCE_INTERVAL" default:"6h"`
	LockTTL           time.Duration `envconfig:"CARTFLOW_MAINTENANCE_LOCK_TTL" default:"1h"`
	AcceptedRetention time.Duration `envconfig:"CARTFLOW_SUBMISSION_RETENTION_ACCEPTED" default:"2160h"`
	FailedRetention   time.Duration `envconfig:"CARTFLOW_SUBMISSION_RETENTION_FAILED" default:"720h"`
}

func (c *Config) validate() error {
	if c.Redis.URL == "" && c.Redis.Address == "" {
		return fmt.Errorf("either %s or %s is required", EnvRedisURL, EnvRedisAddr)
	}
	if !c.FeatureFlags.UseSQLite && c.DB.DSN == "" {
		return fmt.Errorf("%s is required unless %s is set", EnvDBDSN, EnvUseSQLite)
	}
	if c.Analytics.Enabled && strings.TrimSpace(c.Analytics.ProjectID) == "" {
		return fmt.Errorf("%s is required when analytics is enabled", EnvGCPProjectID)
	}
	return nil
}

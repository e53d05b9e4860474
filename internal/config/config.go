package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/utafrali/storefront/pkg/database"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Payment modes. In sync mode checkout creates PAID orders; in deferred mode
// it creates PENDING orders that the payment-result flow settles.
const (
	PaymentModeSync     = "sync"
	PaymentModeDeferred = "deferred"
)

// DefaultJWTSecret is the development signing key. It is refused in
// production.
const DefaultJWTSecret = "change-me-in-production-32-bytes!"

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP server
	HTTPPort            int           `env:"HTTP_PORT" envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"storefront"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
	SlowQueryThresholdMs  int   `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"500"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`

	// Kafka
	KafkaEnabled       bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"storefront-payments"`

	// Outbox relay
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
	OutboxClaimTTL     time.Duration `env:"OUTBOX_CLAIM_TTL" envDefault:"30s"`

	// Payment
	PaymentMode           string        `env:"PAYMENT_MODE" envDefault:"sync"`
	PaymentGatewayURL     string        `env:"PAYMENT_GATEWAY_URL" envDefault:""`
	PaymentGatewayToken   string        `env:"PAYMENT_GATEWAY_TOKEN" envDefault:""`
	PaymentGatewayTimeout time.Duration `env:"PAYMENT_GATEWAY_TIMEOUT" envDefault:"5s"`

	// Auth
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"change-me-in-production-32-bytes!"`
	JWTAccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	JWTRefreshTTL time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	AdminEmail    string        `env:"ADMIN_EMAIL" envDefault:""`
	AdminPassword string        `env:"ADMIN_PASSWORD" envDefault:""`

	// Public route guards
	RateLimitRPS       float64  `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst     int      `env:"RATE_LIMIT_BURST" envDefault:"40"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.StorageDriver {
	case StoragePostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StoragePostgres, StorageMemory, c.StorageDriver)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if c.OutboxBatchSize < 1 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", c.OutboxBatchSize)
	}
	if c.OutboxPollInterval <= 0 {
		return fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive")
	}
	if c.OutboxClaimTTL <= 0 {
		return fmt.Errorf("OUTBOX_CLAIM_TTL must be positive")
	}
	if c.PaymentMode != PaymentModeSync && c.PaymentMode != PaymentModeDeferred {
		return fmt.Errorf("PAYMENT_MODE must be %q or %q, got %q", PaymentModeSync, PaymentModeDeferred, c.PaymentMode)
	}
	if c.PaymentMode == PaymentModeDeferred && c.PaymentGatewayURL == "" {
		return fmt.Errorf("PAYMENT_GATEWAY_URL is required when PAYMENT_MODE is %q", PaymentModeDeferred)
	}
	if c.PaymentGatewayURL != "" {
		if _, err := url.ParseRequestURI(c.PaymentGatewayURL); err != nil {
			return fmt.Errorf("invalid PAYMENT_GATEWAY_URL %q: %w", c.PaymentGatewayURL, err)
		}
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.IsProduction() && c.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be changed from the default in production")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:               c.PostgresHost,
		Port:               c.PostgresPort,
		User:               c.PostgresUser,
		Password:           c.PostgresPass,
		DBName:             c.PostgresDB,
		SSLMode:            c.PostgresSSL,
		MaxConns:           c.DBMaxConns,
		MinConns:           c.DBMinConns,
		MaxConnLifetime:    time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime:    time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
		SlowQueryThreshold: time.Duration(c.SlowQueryThresholdMs) * time.Millisecond,
	}
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Package config handles loading and managing application configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	Server      ServerConfig
	MercadoPago MercadoPagoConfig
	Checkout    CheckoutConfig
	DB          DBConfig
	Redis       RedisConfig
	Notifier    NotifierConfig
	Log         LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"3000"`
	GinMode         string        `envconfig:"GIN_MODE" default:"release"` // "debug", "release", or "test"
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CORSOrigin      string        `envconfig:"CORS_ALLOWED_ORIGIN" default:"*"`
}

// MercadoPagoConfig holds the credentials and limits for gateway calls.
type MercadoPagoConfig struct {
	AccessToken   string        `envconfig:"MERCADOPAGO_ACCESS_TOKEN" required:"true"`
	WebhookSecret string        `envconfig:"MP_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"MP_GATEWAY_TIMEOUT" default:"5s"`
}

// CheckoutConfig holds the policies applied to every preference.
type CheckoutConfig struct {
	PublicBaseURL        string        `envconfig:"PUBLIC_BASE_URL" required:"true"`
	NotificationPath     string        `envconfig:"NOTIFICATION_PATH" default:"/api/webhook"`
	MaxInstallments      int           `envconfig:"MAX_INSTALLMENTS" default:"12"`
	ExcludedPaymentTypes []string      `envconfig:"EXCLUDED_PAYMENT_TYPES"`
	DefaultPlanID        string        `envconfig:"DEFAULT_PLAN_ID" default:"qaura-plan"`
	StatementDescriptor  string        `envconfig:"STATEMENT_DESCRIPTOR" default:"Q-AURA ESTUDOS"`
	PreferenceTTL        time.Duration `envconfig:"PREFERENCE_TTL" default:"24h"`
}

// DBConfig holds the subscription store connection settings.
type DBConfig struct {
	Driver          string        `envconfig:"DB_DRIVER" default:"sqlite"`
	DSN             string        `envconfig:"DB_DSN" default:"file:qaura-payments.db?_busy_timeout=5000"`
	AutoMigrate     bool          `envconfig:"DB_AUTO_MIGRATE" default:"true"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig holds the claim store settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL"`
	ClaimTTL     time.Duration `envconfig:"REDIS_CLAIM_TTL" default:"30s"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a Redis URL was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

// NotifierConfig holds the site backend callback. An empty URL only logs.
type NotifierConfig struct {
	URL     string        `envconfig:"NOTIFIER_URL"`
	APIKey  string        `envconfig:"NOTIFIER_API_KEY"`
	Timeout time.Duration `envconfig:"NOTIFIER_TIMEOUT" default:"10s"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Checkout.ExcludedPaymentTypes = compact(cfg.Checkout.ExcludedPaymentTypes)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.MercadoPago.AccessToken) == "" {
		return errors.New("MERCADOPAGO_ACCESS_TOKEN is required")
	}
	u, err := url.Parse(c.Checkout.PublicBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("PUBLIC_BASE_URL must be an absolute http(s) URL, got %q", c.Checkout.PublicBaseURL)
	}
	if !strings.HasPrefix(c.Checkout.NotificationPath, "/") {
		return fmt.Errorf("NOTIFICATION_PATH must start with '/', got %q", c.Checkout.NotificationPath)
	}
	if c.Checkout.MaxInstallments < 1 {
		return errors.New("MAX_INSTALLMENTS must be at least 1")
	}
	if strings.Contains(c.Checkout.DefaultPlanID, "_") || c.Checkout.DefaultPlanID == "" {
		return fmt.Errorf("DEFAULT_PLAN_ID must be non-empty without '_', got %q", c.Checkout.DefaultPlanID)
	}
	if c.Checkout.PreferenceTTL < 0 {
		return errors.New("PREFERENCE_TTL must not be negative")
	}
	if c.MercadoPago.Timeout <= 0 {
		return errors.New("MP_GATEWAY_TIMEOUT must be positive")
	}
	switch c.DB.Driver {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DBDriverPostgres, DBDriverSQLite, c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return errors.New("DB_DSN is required")
	}
	if c.Redis.Enabled() && c.Redis.ClaimTTL <= 0 {
		return errors.New("REDIS_CLAIM_TTL must be positive")
	}
	return nil
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Package config loads runtime settings from the environment (and .env when present).
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port            string
	Env             string
	LogLevel        string
	ShutdownTimeout time.Duration

	DB DBConfig

	VATRate        decimal.Decimal
	PriceTolerance decimal.Decimal
	DefaultCountry string

	CORSAllowedOrigins []string
	TrustedProxies     []string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RedisAddr         string

	KafkaBrokers     []string
	OrderEventsTopic string
	OutboxInterval   time.Duration
	OutboxBatchSize  int
	OutboxMaxRetries int
}

type DBConfig struct {
	Host            string
	Port            string
	Database        string
	Username        string
	Password        string
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN builds the pgx connection string.
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {"disable"}, "search_path": {c.Schema}}.Encode(),
	}
	return u.String()
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) (int, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func decenv(key, def string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getenv(key, def))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func csvenv(key, def string) []string {
	var out []string
	for _, part := range strings.Split(getenv(key, def), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads the configuration and validates it.
func Load() (Config, error) {
	var errs []error
	intVal := func(key string, def int) int {
		n, err := atoienv(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}
	decVal := func(key, def string) decimal.Decimal {
		d, err := decenv(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}

	cfg := Config{
		Port:            getenv("PORT", "8080"),
		Env:             getenv("APP_ENV", "local"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		ShutdownTimeout: time.Duration(intVal("SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
		DB: DBConfig{
			Host:            getenv("BLUEPRINT_DB_HOST", "localhost"),
			Port:            getenv("BLUEPRINT_DB_PORT", "5432"),
			Database:        getenv("BLUEPRINT_DB_DATABASE", "storefront"),
			Username:        getenv("BLUEPRINT_DB_USERNAME", "postgres"),
			Password:        getenv("BLUEPRINT_DB_PASSWORD", "postgres"),
			Schema:          getenv("BLUEPRINT_DB_SCHEMA", "public"),
			MaxOpenConns:    intVal("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    intVal("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: time.Duration(intVal("DB_CONN_MAX_LIFETIME_SEC", 300)) * time.Second,
		},
		VATRate:            decVal("VAT_RATE", "0.18"),
		PriceTolerance:     decVal("PRICE_TOLERANCE", "0.01"),
		DefaultCountry:     getenv("DEFAULT_COUNTRY", "Rwanda"),
		CORSAllowedOrigins: csvenv("CORS_ALLOWED_ORIGINS", "*"),
		TrustedProxies:     csvenv("TRUSTED_PROXIES", ""),
		RateLimitRequests:  intVal("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:    time.Duration(intVal("RATE_LIMIT_WINDOW_SEC", 60)) * time.Second,
		RedisAddr:          getenv("REDIS_ADDR", ""),
		KafkaBrokers:       csvenv("KAFKA_BROKERS", ""),
		OrderEventsTopic:   getenv("ORDER_EVENTS_TOPIC", "order.events"),
		OutboxInterval:     time.Duration(intVal("OUTBOX_INTERVAL_MS", 1000)) * time.Millisecond,
		OutboxBatchSize:    intVal("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:   intVal("OUTBOX_MAX_RETRIES", 5),
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch {
	case c.VATRate.IsNegative() || c.VATRate.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return fmt.Errorf("VAT_RATE must be in [0, 1), got %s", c.VATRate)
	case c.PriceTolerance.IsNegative():
		return fmt.Errorf("PRICE_TOLERANCE must be >= 0, got %s", c.PriceTolerance)
	case c.RateLimitRequests < 1:
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be >= 1, got %d", c.RateLimitRequests)
	case c.RateLimitWindow <= 0:
		return errors.New("RATE_LIMIT_WINDOW_SEC must be > 0")
	case c.OutboxBatchSize < 1:
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be >= 1, got %d", c.OutboxBatchSize)
	case c.OutboxInterval <= 0:
		return errors.New("OUTBOX_INTERVAL_MS must be > 0")
	case c.OutboxMaxRetries < 1:
		return fmt.Errorf("OUTBOX_MAX_RETRIES must be >= 1, got %d", c.OutboxMaxRetries)
	}
	return nil
}

package config

import (
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "VAT_RATE", "PRICE_TOLERANCE", "DEFAULT_COUNTRY", "KAFKA_BROKERS", "REDIS_ADDR", "CORS_ALLOWED_ORIGINS", "TRUSTED_PROXIES"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.VATRate.Equal(decimal.RequireFromString("0.18")))
	assert.True(t, cfg.PriceTolerance.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, "Rwanda", cfg.DefaultCountry)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, time.Second, cfg.OutboxInterval)
	assert.Equal(t, 5, cfg.OutboxMaxRetries)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("VAT_RATE", "0.16")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RATE_LIMIT_WINDOW_SEC", "5")
	t.Setenv("BLUEPRINT_DB_HOST", "db")
	t.Setenv("BLUEPRINT_DB_SCHEMA", "shop")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.VATRate.Equal(decimal.RequireFromString("0.16")))
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.RateLimitWindow)
	assert.Contains(t, cfg.DB.DSN(), "@db:")
	assert.Contains(t, cfg.DB.DSN(), "search_path=shop")
}

func TestDSNEscapesCredentials(t *testing.T) {
	cfg := DBConfig{
		Host:     "db",
		Port:     "5432",
		Database: "storefront",
		Username: "shop@admin",
		Password: "p@ss:w/rd?#",
		Schema:   "public",
	}

	u, err := url.Parse(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/storefront", u.Path)
	assert.Equal(t, "shop@admin", u.User.Username())
	pass, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss:w/rd?#", pass)
	assert.Equal(t, "public", u.Query().Get("search_path"))
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"non numeric int": {"OUTBOX_BATCH_SIZE", "lots"},
		"vat too high":    {"VAT_RATE", "1.5"},
		"bad decimal":     {"PRICE_TOLERANCE", "cents"},
		"zero limit":      {"RATE_LIMIT_REQUESTS", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

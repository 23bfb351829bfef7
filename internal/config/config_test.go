package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_PUBLISHABLE_KEY", "pk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "4242", cfg.HTTPPort)
	assert.Equal(t, "2019-12-03", cfg.StripeAPIVersion)
	assert.Equal(t, "./static", cfg.StaticDir)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int64(1<<20), cfg.MaxRequestBodySize)
	assert.Equal(t, int64(0), cfg.StripeMaxNetworkRetries)
	assert.True(t, cfg.BreakerEnabled)
	assert.False(t, cfg.DedupEnabled())
	assert.False(t, cfg.ForwardingEnabled())
	assert.Equal(t, "payment-intents-succeeded", cfg.KafkaTopic)
	assert.Equal(t, "none", cfg.OtelExporter)
	assert.Equal(t, 72*time.Hour, cfg.FulfillmentDedupTTL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8080")
	t.Setenv("STATIC_DIR", "/srv/static")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("BREAKER_ENABLED", "false")
	t.Setenv("OTEL_EXPORTER", "stdout")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "/srv/static", cfg.StaticDir)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.ForwardingEnabled())
	assert.True(t, cfg.DedupEnabled())
	assert.False(t, cfg.BreakerEnabled)
	assert.Equal(t, "stdout", cfg.OtelExporter)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "STRIPE_SECRET_KEY=sk_from_file\n" +
		"STRIPE_PUBLISHABLE_KEY=pk_from_file\n" +
		"STRIPE_WEBHOOK_SECRET=whsec_from_file\n" +
		"STATIC_DIR=../client\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("STRIPE_PUBLISHABLE_KEY", "pk_from_env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk_from_file", cfg.StripeSecretKey)
	assert.Equal(t, "pk_from_env", cfg.StripePublishableKey, "environment must win over the file")
	assert.Equal(t, "whsec_from_file", cfg.StripeWebhookSecret)
	assert.Equal(t, "../client", cfg.StaticDir)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	setRequired(t)

	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.env"))
	require.NoError(t, err)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("STRIPE_PUBLISHABLE_KEY", "pk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	_, err := Load("")
	require.ErrorIs(t, err, ErrMissingSetting)
	assert.ErrorContains(t, err, "STRIPE_SECRET_KEY")
	assert.ErrorContains(t, err, "STRIPE_WEBHOOK_SECRET")
}

func TestValidate_RejectsBadNumbers(t *testing.T) {
	cfg := &Config{
		StripeSecretKey:         "sk",
		StripePublishableKey:    "pk",
		StripeWebhookSecret:     "whsec",
		StaticDir:               ".",
		StripeMaxNetworkRetries: -1,
		MaxRequestBodySize:      1,
	}
	assert.Error(t, cfg.Validate())

	cfg.StripeMaxNetworkRetries = 0
	cfg.MaxRequestBodySize = 0
	assert.Error(t, cfg.Validate())

	cfg.MaxRequestBodySize = 1024
	assert.NoError(t, cfg.Validate())
}

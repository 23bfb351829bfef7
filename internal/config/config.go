package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrMissingSetting = errors.New("missing required setting")

// Config is built once at startup and shared read-only by every handler.
type Config struct {
	HTTPPort string

	StripeSecretKey         string
	StripePublishableKey    string
	StripeAPIVersion        string
	StripeWebhookSecret     string
	StripeAPIBase           string
	StripeMaxNetworkRetries int64

	StaticDir string
	PublicURL string

	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	LogLevel  string
	LogFormat string

	BreakerEnabled bool

	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	FulfillmentDedupTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	OtelExporter string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "4242")
	v.SetDefault("stripe_api_version", "2019-12-03")
	v.SetDefault("stripe_max_network_retries", 0)
	v.SetDefault("static_dir", "./static")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("max_request_body_size", int64(1<<20)) // 1MB
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("breaker_enabled", true)
	v.SetDefault("redis_db", 0)
	v.SetDefault("fulfillment_dedup_ttl", 72*time.Hour)
	v.SetDefault("kafka_topic", "payment-intents-succeeded")
	v.SetDefault("otel_exporter", "none")
}

// Load reads defaults, then envFile (dotenv format, optional), then the process
// environment. Environment variables win over the file.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read env file %s: %w", envFile, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		HTTPPort:                v.GetString("port"),
		StripeSecretKey:         v.GetString("stripe_secret_key"),
		StripePublishableKey:    v.GetString("stripe_publishable_key"),
		StripeAPIVersion:        v.GetString("stripe_api_version"),
		StripeWebhookSecret:     v.GetString("stripe_webhook_secret"),
		StripeAPIBase:           v.GetString("stripe_api_base"),
		StripeMaxNetworkRetries: v.GetInt64("stripe_max_network_retries"),
		StaticDir:               v.GetString("static_dir"),
		PublicURL:               v.GetString("public_url"),
		RequestTimeout:          v.GetDuration("request_timeout"),
		ShutdownTimeout:         v.GetDuration("shutdown_timeout"),
		MaxRequestBodySize:      v.GetInt64("max_request_body_size"),
		LogLevel:                v.GetString("log_level"),
		LogFormat:               v.GetString("log_format"),
		BreakerEnabled:          v.GetBool("breaker_enabled"),
		RedisAddr:               v.GetString("redis_addr"),
		RedisPassword:           v.GetString("redis_password"),
		RedisDB:                 v.GetInt("redis_db"),
		FulfillmentDedupTTL:     v.GetDuration("fulfillment_dedup_ttl"),
		KafkaBrokers:            splitList(v.GetString("kafka_brokers")),
		KafkaTopic:              v.GetString("kafka_topic"),
		OtelExporter:            v.GetString("otel_exporter"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the provider credentials and paths are present.
func (c *Config) Validate() error {
	var missing []string
	if c.StripeSecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if c.StripePublishableKey == "" {
		missing = append(missing, "STRIPE_PUBLISHABLE_KEY")
	}
	if c.StripeWebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if c.StaticDir == "" {
		missing = append(missing, "STATIC_DIR")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}
	if c.StripeMaxNetworkRetries < 0 {
		return fmt.Errorf("STRIPE_MAX_NETWORK_RETRIES must not be negative, got %d", c.StripeMaxNetworkRetries)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be positive, got %d", c.MaxRequestBodySize)
	}
	return nil
}

// DedupEnabled reports whether fulfillment is guarded by the Redis idempotency store.
func (c *Config) DedupEnabled() bool {
	return c.RedisAddr != ""
}

// ForwardingEnabled reports whether succeeded intents are published to Kafka.
func (c *Config) ForwardingEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

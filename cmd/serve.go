package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fjod/go_connect/internal/config"
	"github.com/fjod/go_connect/internal/fulfillment"
	h "github.com/fjod/go_connect/internal/http"
	"github.com/fjod/go_connect/internal/logger"
	"github.com/fjod/go_connect/internal/provider"
	"github.com/fjod/go_connect/internal/telemetry"
)

func serveCmd() *cobra.Command {
	var envFile, port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server.

Settings come from the environment, optionally seeded from a dotenv file:
  go_connect serve --env-file .env --port 4242`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if port != "" {
				cfg.HTTPPort = port
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment (ignored if missing)")
	cmd.Flags().StringVar(&port, "port", "", "HTTP port, overrides PORT")

	return cmd
}

func runServe(cfg *config.Config) error {
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	tp, shutdownTracing, err := telemetry.Setup(cfg.OtelExporter, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	var client provider.Client = provider.NewStripe(provider.StripeConfig{
		SecretKey:         cfg.StripeSecretKey,
		WebhookSecret:     cfg.StripeWebhookSecret,
		APIVersion:        cfg.StripeAPIVersion,
		APIBase:           cfg.StripeAPIBase,
		MaxNetworkRetries: cfg.StripeMaxNetworkRetries,
	}, log)
	if cfg.BreakerEnabled {
		client = provider.NewBreaker(client, provider.DefaultBreakerSettings, log)
	}

	fulfiller, closeFulfiller, err := buildFulfiller(cfg, log)
	if err != nil {
		return err
	}
	defer closeFulfiller()

	page, err := h.NewPageHandler(cfg.StaticDir, cfg.StripePublishableKey, log)
	if err != nil {
		return err
	}

	router := h.NewRouter(h.Handlers{
		Page:     page,
		Payment:  h.NewPaymentHandler(client, cfg.StripePublishableKey, cfg.MaxRequestBodySize, cfg.RequestTimeout, log),
		Accounts: h.NewAccountsHandler(client, cfg.PublicURL, cfg.RequestTimeout, log),
		Webhook:  h.NewWebhookHandler(client, fulfiller, cfg.RequestTimeout, log),
	}, cfg.StaticDir, tp, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("stripe_api_version", cfg.StripeAPIVersion),
			zap.Bool("breaker_enabled", cfg.BreakerEnabled),
			zap.Bool("dedup_enabled", cfg.DedupEnabled()),
			zap.Bool("forwarding_enabled", cfg.ForwardingEnabled()),
			zap.String("trace_exporter", cfg.OtelExporter))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

// buildFulfiller assembles the fulfillment pipeline: log, then Kafka when
// brokers are configured, all behind the Redis claim when Redis is configured.
func buildFulfiller(cfg *config.Config, log *zap.Logger) (fulfillment.Fulfiller, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	chain := fulfillment.Chain{fulfillment.NewLogFulfiller(log)}

	if cfg.ForwardingEnabled() {
		publisher := fulfillment.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		closers = append(closers, func() {
			if err := publisher.Close(); err != nil {
				log.Warn("failed to close kafka writer", zap.Error(err))
			}
		})
		chain = append(chain, publisher)
		log.Info("forwarding succeeded payment intents to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic))
	}

	var f fulfillment.Fulfiller = chain

	if cfg.DedupEnabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			closeAll()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))
		closers = append(closers, func() { _ = redisClient.Close() })

		f = fulfillment.NewDeduplicator(redisClient, f, cfg.FulfillmentDedupTTL, log)
	}

	return f, closeAll, nil
}

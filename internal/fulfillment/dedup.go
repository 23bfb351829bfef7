package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_connect/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultDedupTTL = 72 * time.Hour

// Deduplicator claims each payment intent in Redis before handing it on, so
// webhook redeliveries of the same intent are fulfilled once.
type Deduplicator struct {
	client *redis.Client
	next   Fulfiller
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduplicator(client *redis.Client, next Fulfiller, ttl time.Duration, logger *zap.Logger) *Deduplicator {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &Deduplicator{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger,
	}
}

func (d *Deduplicator) Fulfill(ctx context.Context, intent domain.PaymentIntent) error {
	if intent.ID == "" {
		return d.next.Fulfill(ctx, intent)
	}

	key := dedupKey(intent.ID)
	claimed, err := d.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx failed: %w", err)
	}
	if !claimed {
		d.logger.Info("payment intent already fulfilled, skipping",
			zap.String("payment_intent_id", intent.ID))
		return nil
	}

	if err := d.next.Fulfill(ctx, intent); err != nil {
		// Release the claim so the provider's retry can fulfill it.
		if delErr := d.client.Del(context.WithoutCancel(ctx), key).Err(); delErr != nil {
			d.logger.Error("failed to release fulfillment claim",
				zap.String("payment_intent_id", intent.ID),
				zap.Error(delErr))
		}
		return err
	}
	return nil
}

func dedupKey(intentID string) string {
	return fmt.Sprintf("fulfilled:%s", intentID)
}

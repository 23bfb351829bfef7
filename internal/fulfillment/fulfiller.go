package fulfillment

import (
	"context"

	"github.com/fjod/go_connect/internal/domain"
	"go.uber.org/zap"
)

// Fulfiller acts on a payment intent that has succeeded.
type Fulfiller interface {
	Fulfill(ctx context.Context, intent domain.PaymentIntent) error
}

// LogFulfiller records the intent and does nothing else.
type LogFulfiller struct {
	logger *zap.Logger
}

func NewLogFulfiller(logger *zap.Logger) *LogFulfiller {
	return &LogFulfiller{logger: logger}
}

func (f *LogFulfiller) Fulfill(_ context.Context, intent domain.PaymentIntent) error {
	f.logger.Info("fulfilling payment intent",
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("amount", intent.Amount),
		zap.String("currency", intent.Currency),
		zap.String("status", string(intent.Status)),
		zap.ByteString("payment_intent", intent.Raw))
	return nil
}

// Chain runs each fulfiller in order and stops at the first error.
type Chain []Fulfiller

func (c Chain) Fulfill(ctx context.Context, intent domain.PaymentIntent) error {
	for _, f := range c {
		if err := f.Fulfill(ctx, intent); err != nil {
			return err
		}
	}
	return nil
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_connect/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type BreakerSettings struct {
	// ConsecutiveFailures is how many provider outages in a row open the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before letting one probe through.
	OpenTimeout time.Duration
}

var DefaultBreakerSettings = BreakerSettings{
	ConsecutiveFailures: 5,
	OpenTimeout:         30 * time.Second,
}

// Breaker stops calling the provider while it is failing. Rejections of a single
// request (4xx) never count as failures, and nothing is retried.
type Breaker struct {
	next Client
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreaker(next Client, settings BreakerSettings, logger *zap.Logger) *Breaker {
	st := gobreaker.Settings{
		Name:        "payments-provider",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isOutage(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[any](st),
	}
}

func isOutage(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Outage()
	}
	return true
}

func (b *Breaker) execute(op string, fn func() (any, error)) (any, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return res, err
}

func (b *Breaker) CreatePaymentIntent(ctx context.Context, order domain.Order) (*domain.PaymentIntent, error) {
	res, err := b.execute("create payment intent", func() (any, error) {
		return b.next.CreatePaymentIntent(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return res.(*domain.PaymentIntent), nil
}

func (b *Breaker) ListAccounts(ctx context.Context, limit int) ([]domain.Account, error) {
	res, err := b.execute("list accounts", func() (any, error) {
		return b.next.ListAccounts(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return res.([]domain.Account), nil
}

func (b *Breaker) CreateLoginLink(ctx context.Context, accountID, redirectURL string) (string, error) {
	res, err := b.execute("create login link", func() (any, error) {
		return b.next.CreateLoginLink(ctx, accountID, redirectURL)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// VerifyWebhook is local signature math and bypasses the breaker.
func (b *Breaker) VerifyWebhook(payload []byte, signature string) (domain.Event, error) {
	return b.next.VerifyWebhook(payload, signature)
}

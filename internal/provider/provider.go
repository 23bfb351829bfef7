package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fjod/go_connect/internal/domain"
)

// RecentAccountsLimit is how many connected accounts the listing returns.
const RecentAccountsLimit = 10

var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrUnavailable      = errors.New("payment provider unavailable")
)

// Client is everything this service asks of the payments provider.
type Client interface {
	CreatePaymentIntent(ctx context.Context, order domain.Order) (*domain.PaymentIntent, error)
	ListAccounts(ctx context.Context, limit int) ([]domain.Account, error)
	CreateLoginLink(ctx context.Context, accountID, redirectURL string) (string, error)
	VerifyWebhook(payload []byte, signature string) (domain.Event, error)
}

// Error is a failed provider call. StatusCode is the provider's HTTP status,
// or 0 when no response was received.
type Error struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	RequestID  string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: provider returned %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Outage reports whether the failure is on the provider's side (no response,
// 5xx or throttling) rather than a rejection of this request.
func (e *Error) Outage() bool {
	return e.StatusCode == 0 ||
		e.StatusCode >= http.StatusInternalServerError ||
		e.StatusCode == http.StatusTooManyRequests
}

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/go_connect/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type StripeConfig struct {
	SecretKey         string
	WebhookSecret     string
	APIVersion        string
	APIBase           string // empty means api.stripe.com
	MaxNetworkRetries int64
	HTTPClient        *http.Client
}

// Stripe talks to the Stripe API with its own key; it never touches stripe.Key.
type Stripe struct {
	api           *client.API
	webhookSecret string
	apiVersion    string
	tolerance     time.Duration
	logger        *zap.Logger
}

func NewStripe(cfg StripeConfig, logger *zap.Logger) *Stripe {
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig(cfg, logger)),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig(cfg, logger)),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig(cfg, logger)),
	}

	return &Stripe{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
		apiVersion:    cfg.APIVersion,
		tolerance:     webhook.DefaultTolerance,
		logger:        logger,
	}
}

// backendConfig is built per backend because GetBackendWithConfig fills in the URL.
func backendConfig(cfg StripeConfig, logger *zap.Logger) *stripe.BackendConfig {
	bc := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     sdkLogger(logger),
	}
	if cfg.APIBase != "" {
		bc.URL = stripe.String(cfg.APIBase)
	}
	if cfg.HTTPClient != nil {
		bc.HTTPClient = cfg.HTTPClient
	}
	return bc
}

// sdkLogger drops the SDK's debug output, which includes full response bodies
// with client secrets and login-link URLs.
func sdkLogger(logger *zap.Logger) *zap.SugaredLogger {
	core := logger.Core()
	floor := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.InfoLevel && core.Enabled(l)
	})
	return logger.Named("stripe").WithOptions(zap.IncreaseLevel(floor)).Sugar()
}

// CreatePaymentIntent creates a destination charge: the connected account gets the
// funds and the platform keeps ApplicationFeeAmount.
func (s *Stripe) CreatePaymentIntent(ctx context.Context, order domain.Order) (*domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:               stripe.Int64(order.Amount),
		Currency:             stripe.String(order.Currency),
		ApplicationFeeAmount: stripe.Int64(order.ApplicationFeeAmount),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(order.Destination),
		},
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, wrapStripeError("create payment intent", err)
	}

	intent, err := toPaymentIntent(pi)
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// ListAccounts returns at most limit connected accounts from the first page,
// each exactly as the provider sent it.
func (s *Stripe) ListAccounts(ctx context.Context, limit int) ([]domain.Account, error) {
	params := &stripe.AccountListParams{}
	params.Limit = stripe.Int64(int64(limit))
	params.Single = true
	params.Context = ctx

	it := s.api.Accounts.List(params)
	it.Next()
	if err := it.Err(); err != nil {
		return nil, wrapStripeError("list accounts", err)
	}

	list := it.AccountList()
	if list == nil {
		return []domain.Account{}, nil
	}
	if list.LastResponse == nil || len(list.LastResponse.RawJSON) == 0 {
		return marshalAccounts(list.Data, limit)
	}

	var page struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(list.LastResponse.RawJSON, &page); err != nil {
		return nil, fmt.Errorf("decode account list: %w", err)
	}

	accounts := make([]domain.Account, 0, min(limit, len(page.Data)))
	for _, raw := range page.Data {
		if len(accounts) == limit {
			break
		}
		accounts = append(accounts, domain.Account(raw))
	}
	return accounts, nil
}

func marshalAccounts(data []*stripe.Account, limit int) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0, min(limit, len(data)))
	for _, acct := range data {
		if len(accounts) == limit {
			break
		}
		raw, err := json.Marshal(acct)
		if err != nil {
			return nil, fmt.Errorf("marshal account: %w", err)
		}
		accounts = append(accounts, raw)
	}
	return accounts, nil
}

func (s *Stripe) CreateLoginLink(ctx context.Context, accountID, redirectURL string) (string, error) {
	params := &stripe.LoginLinkParams{
		Account: stripe.String(accountID),
	}
	if redirectURL != "" {
		params.AddExtra("redirect_url", redirectURL)
	}
	params.Context = ctx

	link, err := s.api.LoginLinks.New(params)
	if err != nil {
		return "", wrapStripeError("create login link", err)
	}
	return link.URL, nil
}

// VerifyWebhook checks the Stripe-Signature header against the shared secret and
// decodes the event.
func (s *Stripe) VerifyWebhook(payload []byte, signature string) (domain.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		Tolerance: s.tolerance,
		// The SDK pins one API version; events are decoded field by field below.
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrNotSigned),
			errors.Is(err, webhook.ErrInvalidHeader),
			errors.Is(err, webhook.ErrNoValidSignature),
			errors.Is(err, webhook.ErrTooOld):
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	}

	if s.apiVersion != "" && ev.APIVersion != "" && ev.APIVersion != s.apiVersion {
		s.logger.Debug("webhook api version differs from configured version",
			zap.String("event_id", ev.ID),
			zap.String("event_api_version", ev.APIVersion),
			zap.String("configured_api_version", s.apiVersion))
	}

	return toEvent(ev)
}

func toEvent(ev stripe.Event) (domain.Event, error) {
	switch string(ev.Type) {
	case domain.EventTypePaymentIntentSucceeded:
		if ev.Data == nil || len(ev.Data.Raw) == 0 {
			return nil, fmt.Errorf("%w: event %s has no data.object", ErrMalformedPayload, ev.ID)
		}
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: decode payment intent: %v", ErrMalformedPayload, err)
		}
		return domain.PaymentIntentSucceeded{
			ID: ev.ID,
			Intent: domain.PaymentIntent{
				ID:       pi.ID,
				Amount:   pi.Amount,
				Currency: string(pi.Currency),
				Status:   domain.PaymentIntentStatus(pi.Status),
				Raw:      ev.Data.Raw,
			},
		}, nil
	default:
		return domain.IgnoredEvent{ID: ev.ID, Type: string(ev.Type)}, nil
	}
}

func toPaymentIntent(pi *stripe.PaymentIntent) (*domain.PaymentIntent, error) {
	var raw json.RawMessage
	if pi.LastResponse != nil && len(pi.LastResponse.RawJSON) > 0 {
		raw = pi.LastResponse.RawJSON
	} else {
		b, err := json.Marshal(pi)
		if err != nil {
			return nil, fmt.Errorf("marshal payment intent: %w", err)
		}
		raw = b
	}

	return &domain.PaymentIntent{
		ID:           pi.ID,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       domain.PaymentIntentStatus(pi.Status),
		ClientSecret: pi.ClientSecret,
		Raw:          raw,
	}, nil
}

func wrapStripeError(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &Error{
			Op:         op,
			StatusCode: se.HTTPStatusCode,
			Code:       string(se.Code),
			Message:    se.Msg,
			RequestID:  se.RequestID,
			Err:        err,
		}
	}
	return &Error{Op: op, Message: err.Error(), Err: err}
}

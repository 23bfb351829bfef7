package http

import (
	"context"
	"sync"

	"github.com/fjod/go_connect/internal/domain"
)

// ProviderClientMock implements provider.Client with canned results.
type ProviderClientMock struct {
	intent   *domain.PaymentIntent
	accounts []domain.Account
	url      string
	event    domain.Event
	err      error
	block    bool // ListAccounts waits for ctx to end

	mu          sync.Mutex
	orders      []domain.Order
	linkAccount string
	redirectURL string
	verified    int
}

func (m *ProviderClientMock) CreatePaymentIntent(_ context.Context, order domain.Order) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	m.orders = append(m.orders, order)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.intent, nil
}

func (m *ProviderClientMock) ListAccounts(ctx context.Context, _ int) ([]domain.Account, error) {
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.accounts, nil
}

func (m *ProviderClientMock) CreateLoginLink(_ context.Context, accountID, redirectURL string) (string, error) {
	m.mu.Lock()
	m.linkAccount = accountID
	m.redirectURL = redirectURL
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}

func (m *ProviderClientMock) VerifyWebhook([]byte, string) (domain.Event, error) {
	m.mu.Lock()
	m.verified++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.event, nil
}

// FulfillerMock records fulfilled intents. Router tests read it from the test
// goroutine while the server writes from its own.
type FulfillerMock struct {
	err error

	mu       sync.Mutex
	received []domain.PaymentIntent
}

func (m *FulfillerMock) Fulfill(_ context.Context, intent domain.PaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, intent)
	return m.err
}

func (m *FulfillerMock) Received() []domain.PaymentIntent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PaymentIntent(nil), m.received...)
}

package http

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_connect/internal/domain"
	"github.com/fjod/go_connect/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testAccounts(n int) []domain.Account {
	accounts := make([]domain.Account, 0, n)
	for i := 0; i < n; i++ {
		accounts = append(accounts, domain.Account(fmt.Sprintf(`{"id":"acct_%d","type":"express"}`, i)))
	}
	return accounts
}

func TestRecentAccounts_Success(t *testing.T) {
	clientMock := &ProviderClientMock{accounts: testAccounts(3)}
	handler := NewAccountsHandler(clientMock, "", 5*time.Second, zaptest.NewLogger(t))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/recent-accounts", nil)

	handler.RecentAccounts(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var response struct {
		Accounts []map[string]string `json:"accounts"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.Len(t, response.Accounts, 3)
	assert.Equal(t, "acct_0", response.Accounts[0]["id"])
}

func TestRecentAccounts_AtMostTen(t *testing.T) {
	clientMock := &ProviderClientMock{accounts: testAccounts(15)}
	handler := NewAccountsHandler(clientMock, "", 5*time.Second, zaptest.NewLogger(t))

	recorder := httptest.NewRecorder()
	handler.RecentAccounts(recorder, httptest.NewRequest(http.MethodGet, "/recent-accounts", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	var response RecentAccountsResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Len(t, response.Accounts, provider.RecentAccountsLimit)
}

func TestRecentAccounts_EmptyIsList(t *testing.T) {
	clientMock := &ProviderClientMock{}
	handler := NewAccountsHandler(clientMock, "", 5*time.Second, zaptest.NewLogger(t))

	recorder := httptest.NewRecorder()
	handler.RecentAccounts(recorder, httptest.NewRequest(http.MethodGet, "/recent-accounts", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"accounts":[]}`, recorder.Body.String())
}

func TestRecentAccounts_Timeout(t *testing.T) {
	clientMock := &ProviderClientMock{block: true}
	handler := NewAccountsHandler(clientMock, "", 20*time.Millisecond, zaptest.NewLogger(t))

	recorder := httptest.NewRecorder()
	handler.RecentAccounts(recorder, httptest.NewRequest(http.MethodGet, "/recent-accounts", nil))

	require.Equal(t, http.StatusGatewayTimeout, recorder.Code)
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "timeout", response.Code)
}

func TestRecentAccounts_ProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "provider 5xx",
			err:        &provider.Error{Op: "list accounts", StatusCode: http.StatusInternalServerError, Message: "boom"},
			wantStatus: http.StatusBadGateway,
			wantCode:   "provider_error",
		},
		{
			name:       "no response",
			err:        &provider.Error{Op: "list accounts", Message: "connection refused"},
			wantStatus: http.StatusBadGateway,
			wantCode:   "provider_error",
		},
		{
			name:       "rate limited",
			err:        &provider.Error{Op: "list accounts", StatusCode: http.StatusTooManyRequests, Message: "slow down"},
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "rate_limit_exceeded",
		},
		{
			name:       "bad key",
			err:        &provider.Error{Op: "list accounts", StatusCode: http.StatusUnauthorized, Message: "Invalid API Key"},
			wantStatus: http.StatusBadGateway,
			wantCode:   "provider_rejected",
		},
		{
			name:       "breaker open",
			err:        fmt.Errorf("list accounts: %w: circuit breaker is open", provider.ErrUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "service_unavailable",
		},
		{
			name:       "deadline",
			err:        &provider.Error{Op: "list accounts", Message: "deadline", Err: context.DeadlineExceeded},
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientMock := &ProviderClientMock{err: tt.err}
			handler := NewAccountsHandler(clientMock, "", 5*time.Second, zaptest.NewLogger(t))

			recorder := httptest.NewRecorder()
			handler.RecentAccounts(recorder, httptest.NewRequest(http.MethodGet, "/recent-accounts", nil))

			require.Equal(t, tt.wantStatus, recorder.Code)
			var response ErrorResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
			assert.Equal(t, tt.wantCode, response.Code)
			assert.NotEmpty(t, response.Error)
		})
	}
}

func TestExpressDashboardLink_Success(t *testing.T) {
	clientMock := &ProviderClientMock{url: "https://connect.stripe.com/express/abc"}
	handler := NewAccountsHandler(clientMock, "", 5*time.Second, zaptest.NewLogger(t))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "http://localhost:4242/express-dashboard-link?account_id=acct_123", nil)

	handler.ExpressDashboardLink(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"url":"https://connect.stripe.com/express/abc"}`, recorder.Body.String())
	assert.Equal(t, "acct_123", clientMock.linkAccount)
	assert.Equal(t, "http://localhost:4242/", clientMock.redirectURL)
}

func TestExpressDashboardLink_RedirectURL(t *testing.T) {
	tests := []struct {
		name      string
		publicURL string
		prepare   func(r *http.Request)
		want      string
	}{
		{
			name:      "configured public url wins",
			publicURL: "https://shop.example.com/",
			want:      "https://shop.example.com/",
		},
		{
			name: "tls request",
			prepare: func(r *http.Request) {
				r.TLS = &tls.ConnectionState{}
			},
			want: "https://example.com/",
		},
		{
			name: "forwarded proto",
			prepare: func(r *http.Request) {
				r.Header.Set("X-Forwarded-Proto", "https")
			},
			want: "https://example.com/",
		},
		{
			name: "plain http",
			want: "http://example.com/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientMock := &ProviderClientMock{url: "https://connect.stripe.com/express/abc"}
			handler := NewAccountsHandler(clientMock, tt.publicURL, 5*time.Second, zaptest.NewLogger(t))

			request := httptest.NewRequest(http.MethodGet, "http://example.com/express-dashboard-link?account_id=acct_1", nil)
			if tt.prepare != nil {
				tt.prepare(request)
			}
			recorder := httptest.NewRecorder()
			handler.ExpressDashboardLink(recorder, request)

			require.Equal(t, http.StatusOK, recorder.Code)
			assert.Equal(t, tt.want, clientMock.redirectURL)
		})
	}
}

func TestExpressDashboardLink_UnknownAccount(t *testing.T) {
	clientMock := &ProviderClientMock{
		err: &provider.Error{Op: "create login link", StatusCode: http.StatusNotFound, Code: "resource_missing", Message: "No such account: 'acct_nope'"},
	}
	handler := NewAccountsHandler(clientMock, "", 5*time.Second, zaptest.NewLogger(t))

	recorder := httptest.NewRecorder()
	handler.ExpressDashboardLink(recorder, httptest.NewRequest(http.MethodGet, "/express-dashboard-link?account_id=acct_nope", nil))

	require.Equal(t, http.StatusNotFound, recorder.Code)
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "not_found", response.Code)
	assert.Equal(t, "No such account: 'acct_nope'", response.Error)
}

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_connect/internal/domain"
	"github.com/fjod/go_connect/internal/provider"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const recentAccountsKey = "recent-accounts"

type AccountsHandler struct {
	client    provider.Client
	publicURL string
	timeout   time.Duration
	logger    *zap.Logger
	sfg       singleflight.Group // Coalesces concurrent listings
}

func NewAccountsHandler(client provider.Client, publicURL string, timeout time.Duration, logger *zap.Logger) *AccountsHandler {
	return &AccountsHandler{
		client:    client,
		publicURL: publicURL,
		timeout:   timeout,
		logger:    logger,
	}
}

type RecentAccountsResponse struct {
	Accounts []domain.Account `json:"accounts"`
}

type DashboardLinkResponse struct {
	URL string `json:"url"`
}

func (h *AccountsHandler) RecentAccounts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// The shared call must outlive any single caller that gives up early.
	ch := h.sfg.DoChan(recentAccountsKey, func() (interface{}, error) {
		flightCtx, flightCancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
		defer flightCancel()
		return h.client.ListAccounts(flightCtx, provider.RecentAccountsLimit)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		handleProviderError(w, h.logger, ctx.Err())
		return
	}
	if res.Err != nil {
		handleProviderError(w, h.logger, res.Err)
		return
	}

	accounts, _ := res.Val.([]domain.Account)
	if len(accounts) > provider.RecentAccountsLimit {
		accounts = accounts[:provider.RecentAccountsLimit]
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}

	respondJSON(w, http.StatusOK, RecentAccountsResponse{Accounts: accounts})
}

func (h *AccountsHandler) ExpressDashboardLink(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	accountID := r.URL.Query().Get("account_id")

	url, err := h.client.CreateLoginLink(ctx, accountID, h.redirectURL(r))
	if err != nil {
		handleProviderError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, DashboardLinkResponse{URL: url})
}

// redirectURL is the server's own root: PUBLIC_URL when set, otherwise derived
// from the request as seen by this process.
func (h *AccountsHandler) redirectURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd == "http" || fwd == "https" {
		scheme = fwd
	}
	return scheme + "://" + r.Host + "/"
}

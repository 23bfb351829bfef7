package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_connect/internal/domain"
	"github.com/fjod/go_connect/internal/provider"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	client         provider.Client
	publishableKey string
	maxBodySize    int64
	timeout        time.Duration
	logger         *zap.Logger
}

func NewPaymentHandler(client provider.Client, publishableKey string, maxBodySize int64, timeout time.Duration, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		client:         client,
		publishableKey: publishableKey,
		maxBodySize:    maxBodySize,
		timeout:        timeout,
		logger:         logger,
	}
}

type CreatePaymentIntentRequestDTO struct {
	Items    []domain.LineItem `json:"items"`
	Currency string            `json:"currency"`
	Account  string            `json:"account"`
}

type CreatePaymentIntentResponse struct {
	PublishableKey string `json:"publishableKey"`
	ClientSecret   string `json:"clientSecret"`
}

func (h *PaymentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	// Parse request body
	var req CreatePaymentIntentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// Amount and fee are always computed here; client prices are ignored
	order := domain.NewOrder(req.Items, req.Currency, req.Account)

	intent, err := h.client.CreatePaymentIntent(ctx, order)
	if err != nil {
		h.logger.Warn("payment intent creation failed",
			zap.String("destination", order.Destination),
			zap.String("currency", order.Currency),
			zap.String("request_id", getRequestID(r.Context())),
			zap.Error(err))
		respondError(w, http.StatusForbidden, "payment_intent_failed", intentErrorMessage(err))
		return
	}

	h.logger.Info("payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("amount", order.Amount),
		zap.Int64("application_fee_amount", order.ApplicationFeeAmount),
		zap.String("destination", order.Destination))

	respondJSON(w, http.StatusOK, CreatePaymentIntentResponse{
		PublishableKey: h.publishableKey,
		ClientSecret:   intent.ClientSecret,
	})
}

func intentErrorMessage(err error) string {
	var pe *provider.Error
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}

package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fjod/go_connect/internal/domain"
	"github.com/fjod/go_connect/internal/fulfillment"
	"github.com/fjod/go_connect/internal/provider"
	"go.uber.org/zap"
)

const (
	maxWebhookBodySize = 65536
	signatureHeader    = "Stripe-Signature"
)

type WebhookHandler struct {
	verifier  provider.Client
	fulfiller fulfillment.Fulfiller
	timeout   time.Duration
	logger    *zap.Logger
}

func NewWebhookHandler(verifier provider.Client, fulfiller fulfillment.Fulfiller, timeout time.Duration, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier:  verifier,
		fulfiller: fulfiller,
		timeout:   timeout,
		logger:    logger,
	}
}

type WebhookResponse struct {
	Success bool `json:"success"`
}

// Handle verifies and dispatches one provider event. A verified event answers
// 200 {"success": true}, except when the fulfiller fails: then it answers 500 so
// the provider redelivers (only the Kafka and Redis stages can fail).
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize+1))
	if err != nil {
		h.reject(w, "failed to read webhook body", err)
		return
	}
	if len(payload) > maxWebhookBodySize {
		h.reject(w, "webhook body too large", errors.New("payload exceeds 64KiB"))
		return
	}

	event, err := h.verifier.VerifyWebhook(payload, r.Header.Get(signatureHeader))
	if err != nil {
		h.reject(w, "webhook verification failed", err)
		return
	}

	if err := h.dispatch(r, event); err != nil {
		h.logger.Error("webhook fulfillment failed",
			zap.String("event_id", event.EventID()),
			zap.String("event_type", event.EventType()),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "fulfillment_failed", "fulfillment failed")
		return
	}

	respondJSON(w, http.StatusOK, WebhookResponse{Success: true})
}

func (h *WebhookHandler) dispatch(r *http.Request, event domain.Event) error {
	switch ev := event.(type) {
	case domain.PaymentIntentSucceeded:
		h.logger.Info("payment intent succeeded",
			zap.String("event_id", ev.ID),
			zap.String("payment_intent_id", ev.Intent.ID))

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		return h.fulfiller.Fulfill(ctx, ev.Intent)
	case domain.IgnoredEvent:
		h.logger.Debug("ignoring webhook event",
			zap.String("event_id", ev.ID),
			zap.String("event_type", ev.Type))
		return nil
	default:
		h.logger.Debug("ignoring unhandled webhook event kind",
			zap.String("event_id", event.EventID()),
			zap.String("event_type", event.EventType()))
		return nil
	}
}

// reject answers 400 with an empty body so the provider redelivers.
func (h *WebhookHandler) reject(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg, zap.Error(err))
	w.WriteHeader(http.StatusBadRequest)
}

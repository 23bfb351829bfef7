package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_connect/internal/provider"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: "",
	})
}

// handleProviderError converts a failed provider call into an HTTP error response.
func handleProviderError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var httpStatus int
	var code string
	message := err.Error()

	var pe *provider.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
		message = "payment provider did not respond in time"
	case errors.Is(err, provider.ErrUnavailable):
		httpStatus = http.StatusServiceUnavailable
		code = "service_unavailable"
		message = "payment provider is temporarily unavailable"
	case errors.As(err, &pe):
		message = pe.Message
		switch {
		case pe.StatusCode == http.StatusNotFound:
			httpStatus = http.StatusNotFound
			code = "not_found"
		case pe.StatusCode == http.StatusTooManyRequests:
			httpStatus = http.StatusTooManyRequests
			code = "rate_limit_exceeded"
		case pe.StatusCode >= 400 && pe.StatusCode < 500:
			httpStatus = http.StatusBadGateway
			code = "provider_rejected"
		default:
			httpStatus = http.StatusBadGateway
			code = "provider_error"
		}
	default:
		httpStatus = http.StatusInternalServerError
		code = "internal_error"
		message = "internal server error"
	}

	logger.Warn("provider call failed",
		zap.Int("status", httpStatus),
		zap.String("code", code),
		zap.Error(err))
	respondError(w, httpStatus, code, message)
}

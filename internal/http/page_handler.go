package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"
)

const indexFile = "index.html"

// PageHandler renders the landing page that hosts the payment form.
type PageHandler struct {
	tmpl           *template.Template
	publishableKey string
	logger         *zap.Logger
}

type pageData struct {
	PublishableKey string
}

// NewPageHandler parses index.html from staticDir once, so a missing or broken
// page fails at startup rather than on the first request.
func NewPageHandler(staticDir, publishableKey string, logger *zap.Logger) (*PageHandler, error) {
	path := filepath.Join(staticDir, indexFile)
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("parse landing page %s: %w", path, err)
	}
	return &PageHandler{
		tmpl:           tmpl,
		publishableKey: publishableKey,
		logger:         logger,
	}, nil
}

func (h *PageHandler) Get(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, pageData{PublishableKey: h.publishableKey}); err != nil {
		h.logger.Error("failed to render landing page", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("failed to write landing page", zap.Error(err))
	}
}

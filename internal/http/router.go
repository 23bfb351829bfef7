package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Handlers struct {
	Page     *PageHandler
	Payment  *PaymentHandler
	Accounts *AccountsHandler
	Webhook  *WebhookHandler
}

// NewRouter wires the endpoints and serves the remaining files of staticDir.
// Each request is traced through tp; nil means the global provider.
func NewRouter(hs Handlers, staticDir string, tp trace.TracerProvider, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", hs.Page.Get)
	r.Post("/create-payment-intent", hs.Payment.CreatePaymentIntent)
	r.Get("/recent-accounts", hs.Accounts.RecentAccounts)
	r.Get("/express-dashboard-link", hs.Accounts.ExpressDashboardLink)
	r.Post("/webhook", hs.Webhook.Handle)

	// index.html itself is redirected to / by the file server
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))

	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return otelhttp.NewHandler(r, "go_connect", otelhttp.WithTracerProvider(tp))
}

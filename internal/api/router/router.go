package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agendazap/agendazap/internal/http/handlers"
	"github.com/agendazap/agendazap/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	Webhook        *handlers.WhatsAppWebhookHandler
	Stats          *handlers.BotStatsHandler
	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", cfg.Webhook.HealthCheck)
	r.Post("/webhooks/whatsapp", cfg.Webhook.Handle)

	if cfg.Stats != nil {
		r.Get("/bot/stats", cfg.Stats.Handle)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}

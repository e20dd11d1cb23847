package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/whatsapp-concierge/internal/channels/whatsapp"
	"github.com/wolfman30/whatsapp-concierge/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/whatsapp-concierge/internal/http/middleware"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Webhook        *whatsapp.WebhookHandler
	AdminSessions  *handlers.AdminSessionsHandler
	AdminSecret    string
	MetricsHandler http.Handler
	RateLimitRPS   float64
	RateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)

	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Webhook != nil {
			public.Route("/webhook", func(wr chi.Router) {
				wr.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
				wr.Get("/", cfg.Webhook.HandleVerification)
				wr.Post("/", cfg.Webhook.HandleInbound)
			})
		}
	})

	// Admin routes stay unmounted without a signing secret.
	if cfg.AdminSessions != nil && cfg.AdminSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminSecret))
			admin.Get("/sessions/{userID}", cfg.AdminSessions.GetSession)
			admin.Post("/sessions/{userID}/reset", cfg.AdminSessions.ResetSession)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

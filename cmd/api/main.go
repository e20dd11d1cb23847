package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/whatsapp-concierge/cmd/mainconfig"
	"github.com/wolfman30/whatsapp-concierge/internal/api/router"
	"github.com/wolfman30/whatsapp-concierge/internal/app/bootstrap"
	"github.com/wolfman30/whatsapp-concierge/internal/channels/whatsapp"
	appconfig "github.com/wolfman30/whatsapp-concierge/internal/config"
	"github.com/wolfman30/whatsapp-concierge/internal/http/handlers"
	"github.com/wolfman30/whatsapp-concierge/internal/observability/metrics"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting whatsapp concierge",
		"env", cfg.Env,
		"port", cfg.Port,
		"session_store", cfg.SessionStore,
	)

	ctx := context.Background()

	var awsCfg *aws.Config
	if loaded, err := mainconfig.LoadAWSConfig(ctx, cfg); err != nil {
		logger.Warn("aws config unavailable; aws integrations disabled", "error", err)
	} else {
		awsCfg = &loaded
	}

	clients := setupStoreClients(ctx, cfg, awsCfg, logger)
	defer closeStoreClients(clients)

	metricsHandler, messagingMetrics := setupMessagingMetrics()

	relay, err := bootstrap.BuildRelay(ctx, cfg, bootstrap.RelayDeps{
		AWS:     awsCfg,
		Clients: clients,
		Metrics: messagingMetrics,
	}, logger)
	if err != nil {
		logger.Error("failed to build relay", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := relay.Close(); err != nil {
			logger.Warn("relay close failed", "error", err)
		}
	}()

	if cfg.WhatsAppVerifyToken == "" {
		logger.Warn("WHATSAPP_VERIFY_TOKEN not set; webhook verification will be rejected")
	}
	if cfg.WhatsAppAppSecret == "" {
		logger.Warn("WHATSAPP_APP_SECRET not set; webhook signatures are not verified")
	}

	webhook := whatsapp.NewWebhookHandler(whatsapp.WebhookConfig{
		VerifyToken: cfg.WhatsAppVerifyToken,
		AppSecret:   cfg.WhatsAppAppSecret,
		Events:      relay.Service,
		Logger:      logger,
		Metrics:     messagingMetrics,
	})
	r := router.New(&router.Config{
		Logger:         logger,
		Webhook:        webhook,
		AdminSessions:  handlers.NewAdminSessionsHandler(relay.Service, logger),
		AdminSecret:    cfg.AdminJWTSecret,
		MetricsHandler: metricsHandler,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}
	// Acknowledged deliveries still owe their replies.
	webhook.Drain()
	logger.Info("server stopped")
}

func setupMessagingMetrics() (http.Handler, *metrics.MessagingMetrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMessagingMetrics(registry)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), m
}

// setupStoreClients opens only the client the configured session store needs.
func setupStoreClients(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) bootstrap.StoreClients {
	var clients bootstrap.StoreClients
	switch cfg.SessionStore {
	case appconfig.StoreRedis:
		clients.Redis = bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	case appconfig.StorePostgres:
		pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
		if err != nil {
			logger.Warn("postgres not available", "error", err)
		}
		clients.Postgres = pool
	case appconfig.StoreDynamoDB:
		if awsCfg != nil {
			clients.Dynamo = dynamodb.NewFromConfig(*awsCfg)
		}
	}
	return clients
}

func closeStoreClients(clients bootstrap.StoreClients) {
	if clients.Redis != nil {
		_ = clients.Redis.Close()
	}
	if clients.Postgres != nil {
		clients.Postgres.Close()
	}
}

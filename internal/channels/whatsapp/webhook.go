package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/wolfman30/whatsapp-concierge/internal/conversation"
	"github.com/wolfman30/whatsapp-concierge/internal/observability/metrics"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

const (
	ackBody               = "EVENT_RECEIVED"
	maxWebhookBody        = 1 << 20
	defaultProcessTimeout = 30 * time.Second
)

// EventHandler processes one extracted event.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev conversation.InboundEvent) ([]conversation.Action, error)
}

// WebhookHandler serves the WhatsApp webhook: GET verification and POST
// deliveries. Deliveries are always acknowledged so Meta never retries;
// forged ones are acknowledged and dropped.
type WebhookHandler struct {
	verifyToken    string
	appSecret      string
	events         EventHandler
	logger         *logging.Logger
	metrics        *metrics.MessagingMetrics
	processTimeout time.Duration
	inflight       sync.WaitGroup
}

// WebhookConfig wires a WebhookHandler. An empty AppSecret disables
// signature verification.
type WebhookConfig struct {
	VerifyToken    string
	AppSecret      string
	Events         EventHandler
	Logger         *logging.Logger
	Metrics        *metrics.MessagingMetrics
	ProcessTimeout time.Duration
}

func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = defaultProcessTimeout
	}
	return &WebhookHandler{
		verifyToken:    cfg.VerifyToken,
		appSecret:      cfg.AppSecret,
		events:         cfg.Events,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		processTimeout: cfg.ProcessTimeout,
	}
}

// HandleVerification answers Meta's subscription challenge.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { h.metrics.ObserveWebhookLatency(http.MethodGet, time.Since(start).Seconds()) }()

	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && h.verifyToken != "" && hmac.Equal([]byte(token), []byte(h.verifyToken)) {
		h.logger.Info("webhook verified")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}
	h.logger.Warn("webhook verification rejected", "mode", mode)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleInbound acknowledges a delivery with 200 and processes it in the
// background.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { h.metrics.ObserveWebhookLatency(http.MethodPost, time.Since(start).Seconds()) }()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("webhook body read failed", "error", err)
		h.ack(w)
		return
	}

	if h.appSecret != "" && !VerifySignature(h.appSecret, body, r.Header.Get("X-Hub-Signature-256")) {
		h.metrics.ObserveInbound("unknown", "invalid_signature")
		h.logger.Warn("webhook signature rejected, delivery dropped")
		h.ack(w)
		return
	}

	ev, err := ExtractEvent(body)
	if err != nil {
		outcome := "ignored"
		if errors.Is(err, ErrMalformedPayload) {
			outcome = "malformed"
		}
		h.metrics.ObserveInbound("unknown", outcome)
		h.logger.Debug("webhook delivery skipped", "reason", err.Error())
		h.ack(w)
		return
	}

	// Meta retries anything not acknowledged quickly, so ack before the
	// reply work. That work outlives the request but not processTimeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.processTimeout)
	h.inflight.Add(1)
	h.ack(w)
	go func() {
		defer h.inflight.Done()
		defer cancel()
		h.process(ctx, ev)
	}()
}

// Drain blocks until every delivery accepted so far has been processed.
func (h *WebhookHandler) Drain() {
	h.inflight.Wait()
}

func (h *WebhookHandler) process(ctx context.Context, ev conversation.InboundEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("webhook processing panicked", "panic", fmt.Sprint(rec), "message_id", ev.MessageID)
		}
	}()
	if h.events == nil {
		return
	}
	if _, err := h.events.HandleEvent(ctx, ev); err != nil {
		h.logger.Error("webhook processing failed", "error", err, "message_id", ev.MessageID)
	}
}

func (h *WebhookHandler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ackBody)
}

// VerifySignature checks the X-Hub-Signature-256 header ("sha256=<hex>").
func VerifySignature(appSecret string, body []byte, signature string) bool {
	if appSecret == "" || signature == "" {
		return false
	}
	const prefix = "sha256="
	if len(signature) <= len(prefix) || signature[:len(prefix)] != prefix {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature[len(prefix):]))
}

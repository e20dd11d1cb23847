package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/whatsapp-concierge/internal/channels/whatsapp"
	appconfig "github.com/wolfman30/whatsapp-concierge/internal/config"
	"github.com/wolfman30/whatsapp-concierge/internal/content"
	"github.com/wolfman30/whatsapp-concierge/internal/conversation"
	"github.com/wolfman30/whatsapp-concierge/internal/identity"
	"github.com/wolfman30/whatsapp-concierge/internal/observability/metrics"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

// RelayDeps are the externally owned clients the relay is assembled from.
// Sender overrides the Graph API client.
type RelayDeps struct {
	AWS     *aws.Config
	Clients StoreClients
	Metrics *metrics.MessagingMetrics
	Sender  conversation.MessageSender
}

// Relay is the assembled inbound pipeline.
type Relay struct {
	Service *conversation.Service
	Content content.BusinessContent
	Backend string
	closers []io.Closer
}

// Close releases clients the relay opened itself.
func (r *Relay) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Normalizer builds the identity normalizer from config, falling back to the
// default rewrite when the prefixes are unset.
func Normalizer(cfg *appconfig.Config) identity.Normalizer {
	n := identity.Normalizer{
		LongPrefix:       strings.TrimSpace(cfg.LongNationalPrefix),
		ShortPrefix:      strings.TrimSpace(cfg.ShortNationalPrefix),
		SubscriberDigits: cfg.SubscriberDigits,
	}
	if n.LongPrefix == "" || n.ShortPrefix == "" || n.SubscriberDigits <= 0 {
		return identity.Default()
	}
	return n
}

// BuildRelay loads business content and wires store, engine, reasoner,
// responder and service. Content and provider failures degrade; only
// invalid configuration is an error.
func BuildRelay(ctx context.Context, cfg *appconfig.Config, deps RelayDeps, logger *logging.Logger) (*Relay, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	loader := content.Loader{}
	if deps.AWS != nil {
		loader.S3 = s3.NewFromConfig(*deps.AWS)
	}
	biz, err := loader.Load(ctx, cfg.BusinessContentPath)
	if err != nil {
		logger.Warn("business content unavailable; using fallback", "source", cfg.BusinessContentPath, "error", err)
	}

	persistence, err := BuildPersistence(cfg, deps.Clients, logger)
	if err != nil {
		return nil, err
	}

	relay := &Relay{Content: biz, Backend: persistence.Backend}
	reasoner, err := BuildReasoner(ctx, cfg, deps.AWS, biz, logger, &relay.closers)
	if err != nil {
		return nil, err
	}

	normalizer := Normalizer(cfg)
	adminID := ""
	if raw := strings.TrimSpace(cfg.AdminWhatsAppID); raw != "" {
		adminID = normalizer.Normalize(raw)
	}

	sender := deps.Sender
	if sender == nil {
		if cfg.WhatsAppAccessToken == "" || cfg.WhatsAppPhoneNumberID == "" {
			logger.Warn("whatsapp credentials missing; outbound sends will fail")
		}
		client := whatsapp.NewClient(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID, cfg.WhatsAppSendTimeout)
		client.SetGraphAPIBase(cfg.WhatsAppGraphAPIBase)
		sender = client
	}

	responder := conversation.NewResponder(conversation.ResponderConfig{
		Sender:     sender,
		Reasoner:   reasoner,
		Sink:       BuildBookingSink(cfg, deps.AWS, biz.BusinessName, logger),
		AIFallback: biz.AIFallbackText,
		Logger:     logger,
		Metrics:    deps.Metrics,
	})

	relay.Service = conversation.NewService(conversation.ServiceConfig{
		Engine: conversation.NewEngine(conversation.EngineConfig{
			Content:   biz,
			AdminID:   adminID,
			AIEnabled: reasoner != nil,
		}),
		Store:      persistence.Store,
		Responder:  responder,
		Dedupe:     persistence.Dedupe,
		Normalizer: normalizer,
		Logger:     logger,
		Metrics:    deps.Metrics,
	})

	logger.Info("relay ready",
		"session_store", persistence.Backend,
		"ai_enabled", reasoner != nil,
		"admin_notices", adminID != "",
		"business", biz.BusinessName,
	)
	return relay, nil
}

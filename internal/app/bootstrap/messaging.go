package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/whatsapp-concierge/internal/config"
	"github.com/wolfman30/whatsapp-concierge/internal/conversation"
	"github.com/wolfman30/whatsapp-concierge/internal/events"
	"github.com/wolfman30/whatsapp-concierge/internal/notify"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

// BuildEmailSender prefers SES, then SendGrid, then a logging stub.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, string) {
	if strings.TrimSpace(cfg.SESFromEmail) != "" && awsCfg != nil {
		return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger), "ses"
	}
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		return sender, "sendgrid"
	}
	return notify.NewStubEmailSender(logger), "stub"
}

// BuildBookingSink fans completed bookings out to the admin email and the
// booking queue. It returns nil when neither is configured.
func BuildBookingSink(cfg *appconfig.Config, awsCfg *aws.Config, businessName string, logger *logging.Logger) conversation.BookingSink {
	if logger == nil {
		logger = logging.Default()
	}

	var sinks []conversation.BookingSink
	if strings.TrimSpace(cfg.BookingQueueURL) != "" && awsCfg != nil {
		sinks = append(sinks, events.NewBookingPublisher(sqs.NewFromConfig(*awsCfg), cfg.BookingQueueURL))
	}

	adminEmail := strings.TrimSpace(cfg.AdminEmail)
	if adminEmail == "" && len(sinks) == 0 {
		return nil
	}

	var email notify.EmailSender
	if adminEmail != "" {
		var provider string
		email, provider = BuildEmailSender(cfg, awsCfg, logger)
		logger.Info("booking email enabled", "provider", provider)
	}
	return notify.NewBookingNotifier(notify.BookingNotifierConfig{
		Email:        email,
		AdminEmail:   adminEmail,
		BusinessName: businessName,
		Sinks:        sinks,
		Logger:       logger,
	})
}

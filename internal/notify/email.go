package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

const defaultFromName = "WhatsApp Concierge"

// ErrIncompleteEmail is returned before any provider call when a message
// lacks a recipient or a subject.
var ErrIncompleteEmail = errors.New("notify: email needs a recipient and a subject")

// EmailSender delivers operator notifications.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one operator notification. Body is plain text; HTML is
// optional. Category tags the message at the provider ("booking").
type EmailMessage struct {
	To       string
	ToName   string
	Subject  string
	Body     string
	HTML     string
	Category string
}

func (m EmailMessage) validate() error {
	if strings.TrimSpace(m.To) == "" || strings.TrimSpace(m.Subject) == "" {
		return ErrIncompleteEmail
	}
	return nil
}

type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender returns nil when no API key is configured, so callers
// can fall through to the next provider.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return errors.New("notify: sendgrid client not configured")
	}
	if err := msg.validate(); err != nil {
		return err
	}

	response, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: sendgrid: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected email", "status", response.StatusCode, "body", response.Body, "to", msg.To)
		return fmt.Errorf("notify: sendgrid status %d", response.StatusCode)
	}
	s.logger.Info("operator email sent", "provider", "sendgrid", "to", msg.To, "category", msg.Category)
	return nil
}

// build keeps text/plain first; SendGrid rejects HTML-first content.
func (s *SendGridSender) build(msg EmailMessage) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.fromName, s.fromEmail))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	m.AddPersonalizations(p)

	m.AddContent(mail.NewContent("text/plain", msg.Body))
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	if msg.Category != "" {
		m.AddCategories(msg.Category)
	}
	return m
}

// StubEmailSender logs instead of sending. Bootstrap picks it when neither
// SES nor SendGrid is configured.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	s.logger.Info("operator email not sent, no provider configured", "to", msg.To, "subject", msg.Subject)
	return nil
}

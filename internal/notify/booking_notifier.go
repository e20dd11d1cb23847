package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/whatsapp-concierge/internal/conversation"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

// BookingNotifier fans a completed booking out to the admin inbox and any
// downstream sinks such as a queue publisher.
type BookingNotifier struct {
	email        EmailSender
	adminEmail   string
	businessName string
	sinks        []conversation.BookingSink
	logger       *logging.Logger
}

// BookingNotifierConfig wires a notifier. Email is skipped when Email or
// AdminEmail is empty.
type BookingNotifierConfig struct {
	Email        EmailSender
	AdminEmail   string
	BusinessName string
	Sinks        []conversation.BookingSink
	Logger       *logging.Logger
}

func NewBookingNotifier(cfg BookingNotifierConfig) *BookingNotifier {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	sinks := make([]conversation.BookingSink, 0, len(cfg.Sinks))
	for _, s := range cfg.Sinks {
		if s != nil {
			sinks = append(sinks, s)
		}
	}
	return &BookingNotifier{
		email:        cfg.Email,
		adminEmail:   strings.TrimSpace(cfg.AdminEmail),
		businessName: cfg.BusinessName,
		sinks:        sinks,
		logger:       cfg.Logger,
	}
}

// RecordBooking attempts every channel and joins their errors.
func (n *BookingNotifier) RecordBooking(ctx context.Context, b conversation.Booking) error {
	var errs []error
	if n.email != nil && n.adminEmail != "" {
		if err := n.email.Send(ctx, bookingEmail(n.adminEmail, n.businessName, b)); err != nil {
			errs = append(errs, err)
		}
	}
	for _, sink := range n.sinks {
		if err := sink.RecordBooking(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		n.logger.Error("booking notification incomplete", "user_id", b.UserID, "error", err)
		return err
	}
	n.logger.Info("booking recorded", "user_id", b.UserID, "service", b.Service)
	return nil
}

func bookingEmail(to, business string, b conversation.Booking) EmailMessage {
	if business == "" {
		business = defaultFromName
	}
	requested := b.RequestedAt
	if requested.IsZero() {
		requested = time.Now().UTC()
	}
	body := fmt.Sprintf("Nueva cita solicitada por WhatsApp.\n\nNombre: %s\nServicio: %s\nWhatsApp: +%s\nFecha: %s\n",
		b.Name, b.Service, b.UserID, requested.Format(time.RFC1123))
	return EmailMessage{
		To:       to,
		Subject:  fmt.Sprintf("[%s] Nueva cita: %s - %s", business, b.Name, b.Service),
		Body:     body,
		Category: "booking",
	}
}

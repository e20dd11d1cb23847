package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/whatsapp-concierge/internal/content"
	"github.com/wolfman30/whatsapp-concierge/internal/observability/metrics"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

// MessageSender delivers outbound WhatsApp messages.
type MessageSender interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, options []string) error
	SendImage(ctx context.Context, to, link, caption string) error
}

// Booking is a completed booking flow.
type Booking struct {
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Service     string    `json:"service"`
	RequestedAt time.Time `json:"requested_at"`
}

// BookingSink receives completed bookings.
type BookingSink interface {
	RecordBooking(ctx context.Context, booking Booking) error
}

// Responder carries out engine actions, one external call per action.
// Failures are logged and counted; they never stop later actions.
type Responder struct {
	sender     MessageSender
	reasoner   Reasoner
	sink       BookingSink
	aiFallback string
	logger     *logging.Logger
	metrics    *metrics.MessagingMetrics
	now        func() time.Time
}

// ResponderConfig wires the responder; Reasoner and Sink are optional.
type ResponderConfig struct {
	Sender     MessageSender
	Reasoner   Reasoner
	Sink       BookingSink
	AIFallback string
	Logger     *logging.Logger
	Metrics    *metrics.MessagingMetrics
}

func NewResponder(cfg ResponderConfig) *Responder {
	if cfg.Sender == nil {
		panic("conversation: message sender cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if strings.TrimSpace(cfg.AIFallback) == "" {
		cfg.AIFallback = content.Fallback().AIFallbackText
	}
	return &Responder{
		sender:     cfg.Sender,
		reasoner:   cfg.Reasoner,
		sink:       cfg.Sink,
		aiFallback: cfg.AIFallback,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        time.Now,
	}
}

// Execute runs the actions in order.
func (r *Responder) Execute(ctx context.Context, actions []Action) {
	for _, action := range actions {
		err := r.execute(ctx, action)
		r.metrics.ObserveOutbound(action.Kind(), err == nil)
		if err != nil {
			r.logger.Error("action failed", "action", action.Kind(), "error", err)
		}
	}
}

func (r *Responder) execute(ctx context.Context, action Action) error {
	switch a := action.(type) {
	case SendText:
		return r.sender.SendText(ctx, a.To, a.Body)
	case SendButtons:
		return r.sender.SendButtons(ctx, a.To, a.Body, a.Options)
	case SendImage:
		return r.sender.SendImage(ctx, a.To, a.Link, a.Caption)
	case ForwardToAI:
		return r.sender.SendText(ctx, a.To, r.answer(ctx, a))
	case RecordBooking:
		r.metrics.ObserveBooking()
		if r.sink == nil {
			return nil
		}
		return r.sink.RecordBooking(ctx, Booking{
			UserID:      a.UserID,
			Name:        a.Name,
			Service:     a.Service,
			RequestedAt: r.now().UTC(),
		})
	default:
		return errors.New("conversation: unknown action")
	}
}

func (r *Responder) answer(ctx context.Context, a ForwardToAI) string {
	if r.reasoner == nil {
		return r.aiFallback
	}
	start := time.Now()
	reply, err := r.reasoner.Reply(ctx, a.UserText)
	outcome := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case errors.Is(err, ErrQuestionRejected):
		outcome = "rejected"
	case errors.Is(err, ErrReplyWithheld):
		outcome = "withheld"
	case err != nil:
		outcome = "error"
	case strings.TrimSpace(reply) == "":
		outcome = "empty"
	}
	r.metrics.ObserveReasoner(outcome, time.Since(start).Seconds())
	if outcome != "ok" {
		r.logger.Warn("reasoner fell back", "user_id", a.To, "outcome", outcome, "error", err)
		return r.aiFallback
	}
	return reply
}

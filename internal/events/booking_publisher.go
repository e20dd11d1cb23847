package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"github.com/wolfman30/whatsapp-concierge/internal/conversation"
)

// EventTypeBookingRequested is the type of a completed booking flow.
const EventTypeBookingRequested = "booking.requested"

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// BookingRequested is the queue message body for a booking.
type BookingRequested struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Service     string    `json:"service"`
	RequestedAt time.Time `json:"requested_at"`
}

// BookingPublisher sends booking events to SQS for downstream follow-up.
type BookingPublisher struct {
	client   sqsAPI
	queueURL string
	newID    func() string
}

func NewBookingPublisher(client sqsAPI, queueURL string) *BookingPublisher {
	if client == nil {
		panic("events: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("events: SQS queueURL cannot be empty")
	}
	return &BookingPublisher{client: client, queueURL: queueURL, newID: uuid.NewString}
}

func (p *BookingPublisher) RecordBooking(ctx context.Context, b conversation.Booking) error {
	evt := BookingRequested{
		EventID:     p.newID(),
		Type:        EventTypeBookingRequested,
		UserID:      b.UserID,
		Name:        b.Name,
		Service:     b.Service,
		RequestedAt: b.RequestedAt,
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal booking: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	}
	// FIFO queues keep one user's bookings in order.
	if strings.HasSuffix(p.queueURL, ".fifo") {
		input.MessageGroupId = aws.String(b.UserID)
		input.MessageDeduplicationId = aws.String(evt.EventID)
	}
	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("events: publish booking: %w", err)
	}
	return nil
}

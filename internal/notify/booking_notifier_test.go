package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/whatsapp-concierge/internal/conversation"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

type recordingEmail struct {
	sent []EmailMessage
	err  error
}

func (r *recordingEmail) Send(_ context.Context, msg EmailMessage) error {
	r.sent = append(r.sent, msg)
	return r.err
}

type recordingSink struct {
	got []conversation.Booking
	err error
}

func (r *recordingSink) RecordBooking(_ context.Context, b conversation.Booking) error {
	r.got = append(r.got, b)
	return r.err
}

func testBooking() conversation.Booking {
	return conversation.Booking{
		UserID:      "525512345678",
		Name:        "María López",
		Service:     "Soporte",
		RequestedAt: time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC),
	}
}

func quietLogger() *logging.Logger {
	return logging.NewWithWriter("error", &bytes.Buffer{})
}

func TestBookingNotifierFansOut(t *testing.T) {
	email := &recordingEmail{}
	sink := &recordingSink{}
	n := NewBookingNotifier(BookingNotifierConfig{
		Email:        email,
		AdminEmail:   "admin@example.com",
		BusinessName: "Estudio Luna",
		Sinks:        []conversation.BookingSink{sink, nil},
		Logger:       quietLogger(),
	})

	if err := n.RecordBooking(context.Background(), testBooking()); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(email.sent) != 1 {
		t.Fatalf("emails = %d, want 1", len(email.sent))
	}
	msg := email.sent[0]
	if msg.To != "admin@example.com" {
		t.Errorf("to = %s", msg.To)
	}
	if !strings.Contains(msg.Subject, "Estudio Luna") || !strings.Contains(msg.Subject, "María López") {
		t.Errorf("subject = %s", msg.Subject)
	}
	if !strings.Contains(msg.Body, "+525512345678") || !strings.Contains(msg.Body, "Soporte") {
		t.Errorf("body = %s", msg.Body)
	}
	if msg.Category != "booking" {
		t.Errorf("category = %q", msg.Category)
	}
	if len(sink.got) != 1 || sink.got[0] != testBooking() {
		t.Errorf("sink got %+v", sink.got)
	}
}

func TestBookingNotifierSkipsEmailWithoutAdmin(t *testing.T) {
	email := &recordingEmail{}
	n := NewBookingNotifier(BookingNotifierConfig{Email: email, Logger: quietLogger()})
	if err := n.RecordBooking(context.Background(), testBooking()); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(email.sent) != 0 {
		t.Fatalf("email sent without admin address")
	}
}

func TestBookingNotifierJoinsErrors(t *testing.T) {
	emailErr := errors.New("smtp down")
	sinkErr := errors.New("queue down")
	email := &recordingEmail{err: emailErr}
	sink := &recordingSink{err: sinkErr}
	n := NewBookingNotifier(BookingNotifierConfig{
		Email:      email,
		AdminEmail: "admin@example.com",
		Sinks:      []conversation.BookingSink{sink},
		Logger:     quietLogger(),
	})

	err := n.RecordBooking(context.Background(), testBooking())
	if !errors.Is(err, emailErr) || !errors.Is(err, sinkErr) {
		t.Fatalf("expected both errors, got %v", err)
	}
	if len(sink.got) != 1 {
		t.Fatalf("sink must still run after email failure")
	}
}

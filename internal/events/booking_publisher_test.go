package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/whatsapp-concierge/internal/conversation"
)

type stubSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (s *stubSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	s.inputs = append(s.inputs, in)
	if s.err != nil {
		return nil, s.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func testBooking() conversation.Booking {
	return conversation.Booking{
		UserID:      "525512345678",
		Name:        "María López",
		Service:     "Soporte",
		RequestedAt: time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestBookingPublisherStandardQueue(t *testing.T) {
	client := &stubSQS{}
	pub := NewBookingPublisher(client, "https://sqs.us-east-1.amazonaws.com/123/bookings")
	pub.newID = func() string { return "evt-1" }

	require.NoError(t, pub.RecordBooking(context.Background(), testBooking()))
	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Nil(t, in.MessageGroupId)

	var evt BookingRequested
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &evt))
	assert.Equal(t, BookingRequested{
		EventID:     "evt-1",
		Type:        EventTypeBookingRequested,
		UserID:      "525512345678",
		Name:        "María López",
		Service:     "Soporte",
		RequestedAt: testBooking().RequestedAt,
	}, evt)
}

func TestBookingPublisherFIFOQueue(t *testing.T) {
	client := &stubSQS{}
	pub := NewBookingPublisher(client, "https://sqs.us-east-1.amazonaws.com/123/bookings.fifo")
	pub.newID = func() string { return "evt-2" }

	require.NoError(t, pub.RecordBooking(context.Background(), testBooking()))
	in := client.inputs[0]
	assert.Equal(t, "525512345678", aws.ToString(in.MessageGroupId))
	assert.Equal(t, "evt-2", aws.ToString(in.MessageDeduplicationId))
}

func TestBookingPublisherError(t *testing.T) {
	client := &stubSQS{err: errors.New("access denied")}
	pub := NewBookingPublisher(client, "https://sqs.example/q")
	err := pub.RecordBooking(context.Background(), testBooking())
	assert.ErrorContains(t, err, "access denied")
}

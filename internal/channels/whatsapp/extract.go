package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/whatsapp-concierge/internal/conversation"
)

var (
	// ErrMalformedPayload means the body was not a JSON webhook envelope.
	ErrMalformedPayload = errors.New("whatsapp: malformed payload")
	// ErrNoActionableEvent means the envelope holds nothing to reply to,
	// such as a delivery status or a media message.
	ErrNoActionableEvent = errors.New("whatsapp: no actionable event")
)

// ExtractError explains why a delivery produced no event. It unwraps to
// ErrMalformedPayload or ErrNoActionableEvent.
type ExtractError struct {
	Err    error
	Detail string
}

func (e *ExtractError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Detail)
}

func (e *ExtractError) Unwrap() error { return e.Err }

func noEvent(detail string) error {
	return &ExtractError{Err: ErrNoActionableEvent, Detail: detail}
}

// ExtractEvent reads the first message of a webhook body. The sender id is
// returned raw; normalization happens downstream.
func ExtractEvent(raw []byte) (conversation.InboundEvent, error) {
	var env WebhookEvent
	if err := json.Unmarshal(raw, &env); err != nil {
		return conversation.InboundEvent{}, &ExtractError{Err: ErrMalformedPayload, Detail: err.Error()}
	}
	if len(env.Entry) == 0 {
		return conversation.InboundEvent{}, noEvent("no entry")
	}
	if len(env.Entry[0].Changes) == 0 {
		return conversation.InboundEvent{}, noEvent("no changes")
	}
	value := env.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 {
		if len(value.Statuses) > 0 {
			return conversation.InboundEvent{}, noEvent("status callback")
		}
		return conversation.InboundEvent{}, noEvent("no messages")
	}

	msg := value.Messages[0]
	if strings.TrimSpace(msg.From) == "" {
		return conversation.InboundEvent{}, noEvent("empty sender")
	}

	ev := conversation.InboundEvent{
		SenderID:    msg.From,
		MessageID:   msg.ID,
		ProfileName: profileName(value.Contacts, msg.From),
		Timestamp:   parseUnix(msg.Timestamp),
	}
	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return conversation.InboundEvent{}, noEvent("text message without body")
		}
		ev.Kind = conversation.KindText
		ev.Payload = msg.Text.Body
	case "interactive":
		reply := interactiveReply(msg.Interactive)
		if reply == nil {
			return conversation.InboundEvent{}, noEvent("interactive message without reply")
		}
		ev.Kind = conversation.KindButtonReply
		ev.Payload = reply.Title
	case "button":
		if msg.Button == nil {
			return conversation.InboundEvent{}, noEvent("button message without payload")
		}
		ev.Kind = conversation.KindButtonReply
		ev.Payload = msg.Button.Text
		if ev.Payload == "" {
			ev.Payload = msg.Button.Payload
		}
	default:
		return conversation.InboundEvent{}, noEvent(fmt.Sprintf("unsupported type %q", msg.Type))
	}
	return ev, nil
}

func interactiveReply(in *Interactive) *Reply {
	if in == nil {
		return nil
	}
	if in.ButtonReply != nil {
		return in.ButtonReply
	}
	return in.ListReply
}

func profileName(contacts []Contact, from string) string {
	for _, c := range contacts {
		if c.WaID == from {
			return c.Profile.Name
		}
	}
	if len(contacts) > 0 {
		return contacts[0].Profile.Name
	}
	return ""
}

func parseUnix(ts string) time.Time {
	sec, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

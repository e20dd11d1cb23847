package conversation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wolfman30/whatsapp-concierge/internal/content"
)

const maxNameRunes = 60

const (
	namePromptText    = "📝 Para agendar, primero necesito tu nombre completo. ¿Cómo te llamas?"
	askAIPromptText   = "🤖 Claro, escribe tu pregunta y te respondo enseguida."
	genericAckText    = "👍 Recibido. Escribe *menu* para ver las opciones."
	serviceGreeting   = "Gusto en saludarte, %s. ¿Qué servicio te interesa?"
	bookingConfirmMsg = "¡Perfecto! Hemos agendado una cita para: %s.\nNos pondremos en contacto pronto."
	adminNoticeMsg    = "📅 Nueva cita solicitada\nNombre: %s\nServicio: %s\nWhatsApp: %s"
)

// EngineConfig holds the read-only inputs of the state machine.
type EngineConfig struct {
	Content content.BusinessContent
	// AdminID is the canonical recipient of booking notices; empty disables them.
	AdminID string
	// AIEnabled routes unmatched free text to the reasoner instead of the error text.
	AIEnabled bool
}

// Engine is the booking state machine. Dispatch is a pure function of its
// inputs and never touches storage or the network.
type Engine struct {
	cfg EngineConfig
}

// NewEngine builds an engine, filling empty option lists from the fallback content.
func NewEngine(cfg EngineConfig) *Engine {
	fb := content.Fallback()
	if len(cfg.Content.MenuOptions) == 0 {
		cfg.Content.MenuOptions = fb.MenuOptions
	}
	if len(cfg.Content.ServiceOptions) == 0 {
		cfg.Content.ServiceOptions = fb.ServiceOptions
	}
	if strings.TrimSpace(cfg.Content.ErrorText) == "" {
		cfg.Content.ErrorText = fb.ErrorText
	}
	return &Engine{cfg: cfg}
}

// Dispatch computes the next session and the actions for one inbound event.
// Every input yields at least one action.
func (e *Engine) Dispatch(sess UserSession, ev InboundEvent) (UserSession, []Action) {
	sess = sess.Repaired()
	to := sess.UserID
	if to == "" {
		to = ev.SenderID
		sess.UserID = to
	}

	switch sess.State {
	case StateAwaitingName:
		return e.captureName(sess, ev, to)
	case StateAwaitingService:
		return e.captureService(sess, ev, to)
	default:
		return e.dispatchIdle(sess, ev, to)
	}
}

func (e *Engine) captureName(sess UserSession, ev InboundEvent, to string) (UserSession, []Action) {
	name := TitleCase(ev.Payload)
	if name == "" {
		return sess, []Action{SendText{To: to, Body: namePromptText}}
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		name = strings.TrimSpace(string([]rune(name)[:maxNameRunes]))
	}
	next := sess
	next.State = StateAwaitingService
	next.CapturedName = name
	return next, []Action{SendButtons{
		To:      to,
		Body:    fmt.Sprintf(serviceGreeting, name),
		Options: e.cfg.Content.ServiceOptions,
	}}
}

func (e *Engine) captureService(sess UserSession, ev InboundEvent, to string) (UserSession, []Action) {
	// The service keeps the user's casing; only whitespace is collapsed.
	service := strings.Join(strings.Fields(CanonicalDisplay(ev.Payload)), " ")
	if service == "" {
		return sess, []Action{SendButtons{
			To:      to,
			Body:    fmt.Sprintf(serviceGreeting, sess.CapturedName),
			Options: e.cfg.Content.ServiceOptions,
		}}
	}
	name := sess.CapturedName
	next := sess
	next.State = StateInit
	next.CapturedName = ""

	actions := []Action{SendText{To: to, Body: fmt.Sprintf(bookingConfirmMsg, service)}}
	if e.cfg.AdminID != "" {
		actions = append(actions, SendText{
			To:   e.cfg.AdminID,
			Body: fmt.Sprintf(adminNoticeMsg, name, service, to),
		})
	}
	actions = append(actions, RecordBooking{UserID: to, Name: name, Service: service})
	return next, actions
}

func (e *Engine) dispatchIdle(sess UserSession, ev InboundEvent, to string) (UserSession, []Action) {
	c := e.cfg.Content
	switch Classify(ev) {
	case IntentSchedule:
		next := sess
		next.State = StateAwaitingName
		next.CapturedName = ""
		return next, []Action{SendText{To: to, Body: namePromptText}}
	case IntentMenu:
		return sess, []Action{SendButtons{To: to, Body: c.WelcomeText, Options: c.MenuOptions}}
	case IntentPricing:
		if strings.TrimSpace(c.Pricing.ImageLink) != "" {
			return sess, []Action{SendImage{To: to, Link: c.Pricing.ImageLink, Caption: c.Pricing.Caption}}
		}
		return sess, []Action{SendText{To: to, Body: c.Pricing.Caption}}
	case IntentLocation:
		return sess, []Action{SendText{To: to, Body: c.LocationText}}
	case IntentAskAIButton:
		return sess, []Action{SendText{To: to, Body: askAIPromptText}}
	case IntentOtherButton:
		return sess, []Action{SendText{To: to, Body: genericAckText}}
	default:
		if e.cfg.AIEnabled && strings.TrimSpace(ev.Payload) != "" {
			return sess, []Action{ForwardToAI{To: to, UserText: ev.Payload}}
		}
		return sess, []Action{SendText{To: to, Body: c.ErrorText}}
	}
}

// CanonicalDisplay strips leading decorative symbols from a label while
// keeping its readable text: "💻 Desarrollo Web" -> "Desarrollo Web".
func CanonicalDisplay(s string) string {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if isWordRune(r) {
			return strings.TrimSpace(s[i:])
		}
	}
	return ""
}

package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/whatsapp-concierge/internal/content"
)

const (
	testUser  = "525512345678"
	testAdmin = "525500000000"
)

func testContent() content.BusinessContent {
	c := content.Fallback()
	c.WelcomeText = "Bienvenido"
	c.ErrorText = "No entendí"
	c.LocationText = "Av. Reforma 100"
	c.Pricing = content.Pricing{ImageLink: "https://cdn.example.com/p.png", Caption: "Precios 2025"}
	return c
}

func newTestEngine(aiEnabled bool) *Engine {
	return NewEngine(EngineConfig{Content: testContent(), AdminID: testAdmin, AIEnabled: aiEnabled})
}

func textEvent(body string) InboundEvent {
	return InboundEvent{SenderID: testUser, Kind: KindText, Payload: body}
}

func buttonEvent(title string) InboundEvent {
	return InboundEvent{SenderID: testUser, Kind: KindButtonReply, Payload: title}
}

func TestBookingFlowRoundTrip(t *testing.T) {
	e := newTestEngine(true)
	sess := NewSession(testUser)

	sess, actions := e.Dispatch(sess, textEvent("quiero agendar una cita"))
	assert.Equal(t, StateAwaitingName, sess.State)
	require.Len(t, actions, 1)
	assert.Equal(t, SendText{To: testUser, Body: namePromptText}, actions[0])

	sess, actions = e.Dispatch(sess, textEvent("Maria"))
	assert.Equal(t, StateAwaitingService, sess.State)
	assert.Equal(t, "Maria", sess.CapturedName)
	require.Len(t, actions, 1)
	buttons, ok := actions[0].(SendButtons)
	require.True(t, ok)
	assert.Equal(t, []string{"Consultoría", "Desarrollo Web", "Soporte"}, buttons.Options)
	assert.Contains(t, buttons.Body, "Maria")

	sess, actions = e.Dispatch(sess, buttonEvent("Consultoría"))
	assert.Equal(t, StateInit, sess.State)
	assert.Empty(t, sess.CapturedName)
	require.Len(t, actions, 3)

	confirm := actions[0].(SendText)
	assert.Equal(t, testUser, confirm.To)
	assert.Contains(t, confirm.Body, "Consultoría")

	notice := actions[1].(SendText)
	assert.Equal(t, testAdmin, notice.To)
	assert.Contains(t, notice.Body, "Maria")
	assert.Contains(t, notice.Body, "Consultoría")
	assert.Contains(t, notice.Body, testUser)

	assert.Equal(t, RecordBooking{UserID: testUser, Name: "Maria", Service: "Consultoría"}, actions[2])
}

func TestBookingWithoutAdmin(t *testing.T) {
	e := NewEngine(EngineConfig{Content: testContent()})
	sess := UserSession{UserID: testUser, State: StateAwaitingService, CapturedName: "Ana"}
	_, actions := e.Dispatch(sess, textEvent("soporte"))
	require.Len(t, actions, 2)
	assert.IsType(t, SendText{}, actions[0])
	assert.IsType(t, RecordBooking{}, actions[1])
}

func TestNameIsTitleCased(t *testing.T) {
	e := newTestEngine(false)
	sess := UserSession{UserID: testUser, State: StateAwaitingName}
	next, _ := e.Dispatch(sess, textEvent("  maría JOSÉ "))
	assert.Equal(t, "María José", next.CapturedName)
}

func TestServiceKeepsOriginalCasing(t *testing.T) {
	e := newTestEngine(false)
	sess := UserSession{UserID: testUser, State: StateAwaitingService, CapturedName: "Ana"}
	_, actions := e.Dispatch(sess, textEvent("  🚀 SEO y  marketing IT "))
	require.Len(t, actions, 3)
	assert.Contains(t, actions[0].(SendText).Body, "SEO y marketing IT")
	assert.Contains(t, actions[1].(SendText).Body, "SEO y marketing IT")
	assert.Equal(t, RecordBooking{UserID: testUser, Name: "Ana", Service: "SEO y marketing IT"}, actions[2])
}

func TestBlankNameKeepsWaiting(t *testing.T) {
	e := newTestEngine(false)
	sess := UserSession{UserID: testUser, State: StateAwaitingName}
	next, actions := e.Dispatch(sess, textEvent("   "))
	assert.Equal(t, StateAwaitingName, next.State)
	require.Len(t, actions, 1)
}

func TestIdleRows(t *testing.T) {
	e := newTestEngine(true)
	idle := NewSession(testUser)

	_, actions := e.Dispatch(idle, textEvent("hola"))
	assert.Equal(t, []Action{SendButtons{To: testUser, Body: "Bienvenido", Options: content.Fallback().MenuOptions}}, actions)

	_, actions = e.Dispatch(idle, textEvent("precios?"))
	assert.Equal(t, []Action{SendImage{To: testUser, Link: "https://cdn.example.com/p.png", Caption: "Precios 2025"}}, actions)

	_, actions = e.Dispatch(idle, textEvent("ubicación"))
	assert.Equal(t, []Action{SendText{To: testUser, Body: "Av. Reforma 100"}}, actions)
}

func TestPricingWithoutImageSendsText(t *testing.T) {
	c := testContent()
	c.Pricing.ImageLink = ""
	e := NewEngine(EngineConfig{Content: c})
	_, actions := e.Dispatch(NewSession(testUser), textEvent("precio"))
	assert.Equal(t, []Action{SendText{To: testUser, Body: "Precios 2025"}}, actions)
}

func TestButtonNeverForwardedToAI(t *testing.T) {
	e := newTestEngine(true)
	for _, title := range []string{"Precios", "🤖 Preguntar a la IA", "Algo más", "🎉"} {
		_, actions := e.Dispatch(NewSession(testUser), buttonEvent(title))
		require.NotEmpty(t, actions, title)
		for _, a := range actions {
			_, forwarded := a.(ForwardToAI)
			assert.False(t, forwarded, "button %q was forwarded", title)
		}
	}
}

func TestFreeTextRouting(t *testing.T) {
	_, actions := newTestEngine(true).Dispatch(NewSession(testUser), textEvent("what's the weather"))
	assert.Equal(t, []Action{ForwardToAI{To: testUser, UserText: "what's the weather"}}, actions)

	_, actions = newTestEngine(false).Dispatch(NewSession(testUser), textEvent("what's the weather"))
	assert.Equal(t, []Action{SendText{To: testUser, Body: "No entendí"}}, actions)
}

func TestUnknownOrInvalidStateTreatedAsInit(t *testing.T) {
	e := newTestEngine(true)

	next, actions := e.Dispatch(UserSession{UserID: testUser, State: "LEGACY"}, textEvent("agendar"))
	assert.Equal(t, StateAwaitingName, next.State)
	require.Len(t, actions, 1)

	next, _ = e.Dispatch(UserSession{UserID: testUser, State: StateAwaitingService}, textEvent("hola"))
	assert.Equal(t, StateInit, next.State)
}

func TestDispatchTotality(t *testing.T) {
	e := newTestEngine(true)
	states := []State{StateInit, StateAwaitingName, StateAwaitingService, "", "BROKEN"}
	payloads := []string{"", " ", "hola", "agendar", "precios", "ubicacion", "Maria", "🤖 IA", "💻 Desarrollo Web", "random"}
	kinds := []EventKind{KindText, KindButtonReply}

	for _, st := range states {
		for _, name := range []string{"", "Ana"} {
			for _, p := range payloads {
				for _, k := range kinds {
					sess := UserSession{UserID: testUser, State: st, CapturedName: name}
					next, actions := e.Dispatch(sess, InboundEvent{SenderID: testUser, Kind: k, Payload: p})
					assert.NotEmpty(t, actions, "state=%s name=%q payload=%q kind=%s", st, name, p, k)
					assert.NoError(t, next.Validate(), "state=%s payload=%q", st, p)
					if next.State == StateAwaitingService {
						assert.NotEmpty(t, next.CapturedName)
					}
				}
			}
		}
	}
}

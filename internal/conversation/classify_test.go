package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		ev   InboundEvent
		want Intent
	}{
		{"schedule keyword", InboundEvent{Kind: KindText, Payload: "Quiero agendar una cita"}, IntentSchedule},
		{"schedule button with emoji", InboundEvent{Kind: KindButtonReply, Payload: "📅 Agendar Cita"}, IntentSchedule},
		{"greeting", InboundEvent{Kind: KindText, Payload: "HOLA buenas"}, IntentMenu},
		{"accented menu", InboundEvent{Kind: KindText, Payload: "Menú"}, IntentMenu},
		{"pricing button", InboundEvent{Kind: KindButtonReply, Payload: "💰 Precios"}, IntentPricing},
		{"location accented", InboundEvent{Kind: KindText, Payload: "¿Cuál es su ubicación?"}, IntentLocation},
		{"first row wins", InboundEvent{Kind: KindText, Payload: "hola, quiero una cita"}, IntentSchedule},
		{"ask ai button", InboundEvent{Kind: KindButtonReply, Payload: "🤖 Preguntar a la IA"}, IntentAskAIButton},
		{"other button", InboundEvent{Kind: KindButtonReply, Payload: "✅ Listo"}, IntentOtherButton},
		{"free text", InboundEvent{Kind: KindText, Payload: "what's the weather"}, IntentFreeText},
		{"empty text", InboundEvent{Kind: KindText}, IntentFreeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ev), "got %s", Classify(tt.ev))
		})
	}
}

func TestFoldAndTokens(t *testing.T) {
	assert.Equal(t, "ubicacion", Fold("UBICACIÓN"))
	assert.Equal(t, "agendar cita", CanonicalToken("📅  Agendar   Cita!"))
	assert.Equal(t, "", CanonicalToken("🎉🎉"))
	assert.Equal(t, "Desarrollo Web", CanonicalDisplay("💻 Desarrollo Web"))
	assert.Equal(t, "", CanonicalDisplay("  🎉 "))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Maria", TitleCase("maria"))
	assert.Equal(t, "María José", TitleCase("  MARÍA   josé "))
	assert.Equal(t, "", TitleCase("   "))
}

package conversation

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Intent is the classified meaning of an inbound event while no flow step is active.
type Intent int

const (
	IntentFreeText Intent = iota
	IntentSchedule
	IntentMenu
	IntentPricing
	IntentLocation
	IntentAskAIButton
	IntentOtherButton
)

func (i Intent) String() string {
	switch i {
	case IntentSchedule:
		return "schedule"
	case IntentMenu:
		return "menu"
	case IntentPricing:
		return "pricing"
	case IntentLocation:
		return "location"
	case IntentAskAIButton:
		return "ask_ai_button"
	case IntentOtherButton:
		return "other_button"
	default:
		return "free_text"
	}
}

// keywordRules are evaluated in order; the first rule with a contained keyword wins.
var keywordRules = []struct {
	intent   Intent
	keywords []string
}{
	{IntentSchedule, []string{"agendar", "cita", "reservar", "schedule", "appointment"}},
	{IntentMenu, []string{"hola", "menu", "inicio", "hello"}},
	{IntentPricing, []string{"precio", "costo", "pricing", "price"}},
	{IntentLocation, []string{"ubicacion", "direccion", "location", "address"}},
}

var askAIWords = map[string]struct{}{
	"ia": {}, "ai": {}, "asistente": {}, "ask": {}, "pregunta": {}, "preguntas": {}, "preguntar": {},
}

// Classify maps an event to an intent. Keyword containment applies to both
// kinds; unmatched button replies are resolved by their canonical token and
// never become free text.
func Classify(ev InboundEvent) Intent {
	folded := Fold(ev.Payload)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(folded, kw) {
				return rule.intent
			}
		}
	}
	if ev.Kind != KindButtonReply {
		return IntentFreeText
	}
	for _, word := range strings.Fields(CanonicalToken(ev.Payload)) {
		if _, ok := askAIWords[word]; ok {
			return IntentAskAIButton
		}
	}
	return IntentOtherButton
}

// Fold lower-cases s and strips diacritics so "Ubicación" matches "ubicacion".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// CanonicalToken folds s and drops decorative symbols such as emoji, keeping
// letters and digits separated by single spaces. "📅 Agendar Cita" -> "agendar cita".
func CanonicalToken(s string) string {
	folded := Fold(s)
	var b strings.Builder
	for _, r := range folded {
		switch {
		case isWordRune(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TitleCase normalizes whitespace and capitalizes each word: "maría  JOSÉ" -> "María José".
func TitleCase(s string) string {
	return cases.Title(language.Spanish).String(strings.Join(strings.Fields(s), " "))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

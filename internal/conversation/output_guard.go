package conversation

import (
	"regexp"
	"strings"
)

// ReplyScreen is the verdict on one language model answer before it is sent.
type ReplyScreen struct {
	// Flagged is true when any pattern matched.
	Flagged bool
	Reasons []string
	// Text is the answer to send; empty when the answer must be withheld.
	Text string
}

type replyPattern struct {
	re     *regexp.Regexp
	reason string
	block  bool // false: the matching sentence can be cut and the rest sent
}

var replyPatterns = []replyPattern{
	// Prompt and instruction disclosure
	{regexp.MustCompile(`(?i)my (system\s+)?prompt\s+(is|says|tells|instructs)`), "prompt_disclosure", true},
	{regexp.MustCompile(`(?i)mi(s)? (prompt|instrucci[oó]n(es)?)( del sistema)?\s+(es|son|dice|dicen|indica|indican)`), "prompt_disclosure", true},
	{regexp.MustCompile(`(?i)my instructions?\s+(are|say|tell|include|require)`), "prompt_disclosure", true},
	{regexp.MustCompile(`(?i)(estoy|fui) (programad[oa]|configurad[oa]|instruid[oa]) para`), "programming_disclosure", true},
	{regexp.MustCompile(`(?i)i('m| am) (programmed|instructed|told|designed|configured) to`), "programming_disclosure", true},

	// Vendor and model disclosure
	{regexp.MustCompile(`(?i)(powered by|built on|running on|basad[oa] en|funciono con|impulsad[oa] por)\s+(Claude|GPT|OpenAI|Anthropic|Bedrock|Gemini|Google AI)`), "tech_stack", true},
	{regexp.MustCompile(`(?i)\b(soy|i('m| am)) (un|una|a|an) (IA|AI|inteligencia artificial|artificial intelligence|modelo de lenguaje|language model|LLM|chatbot|chat bot)\b`), "ai_identity", false},

	// Credentials and infrastructure
	{regexp.MustCompile(`(?i)(api[_\s]?key|secret[_\s]?key|access[_\s]?token|bearer\s+token)\s*[:=]\s*\S+`), "credential", true},
	{regexp.MustCompile(`AKIA[A-Z0-9]{16}`), "aws_key", true},
	{regexp.MustCompile(`\bEAA[A-Za-z0-9]{30,}`), "graph_token", true},
	{regexp.MustCompile(`(?i)(postgres(ql)?|mysql|redis|rediss|mongodb)://\S+`), "database_url", true},
	{regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}:\d{2,5}\b`), "ip_port", true},
	{regexp.MustCompile(`(?i)/admin/|/webhook\b|/internal/|/debug/`), "internal_path", true},
}

var aiIdentitySentence = regexp.MustCompile(`(?i)[^.!?¡¿]*\b(soy|i('m| am)) (un|una|a|an) (IA|AI|inteligencia artificial|artificial intelligence|modelo de lenguaje|language model|LLM|chatbot|chat bot)\b[^.!?]*[.!?]?\s*`)

// ScreenReply checks an answer for prompt, vendor or credential leaks. Self
// descriptions as an AI are cut; everything else withholds the whole answer.
func ScreenReply(reply string) ReplyScreen {
	if strings.TrimSpace(reply) == "" {
		return ReplyScreen{Text: reply}
	}

	var reasons []string
	block := false
	for _, p := range replyPatterns {
		if p.re.MatchString(reply) {
			reasons = append(reasons, p.reason)
			block = block || p.block
		}
	}
	if len(reasons) == 0 {
		return ReplyScreen{Text: reply}
	}

	screen := ReplyScreen{Flagged: true, Reasons: reasons}
	if !block {
		screen.Text = strings.TrimSpace(aiIdentitySentence.ReplaceAllString(reply, ""))
	}
	return screen
}

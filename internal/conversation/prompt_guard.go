package conversation

import (
	"regexp"
	"strings"
)

// QuestionScreen is the verdict on inbound free text before it reaches the
// language model.
type QuestionScreen struct {
	Rejected bool
	// Score is a heuristic risk from 0 (clean) to 1.
	Score   float64
	Reasons []string
	// Text is the question with injection markers stripped.
	Text string
}

type guardPattern struct {
	re     *regexp.Regexp
	reason string
	weight float64
}

const (
	rejectScore  = 0.7
	extraSignals = 0.1
)

var questionPatterns = []guardPattern{
	// Attempts to replace the system prompt
	{regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?)`), "override", 0.9},
	{regexp.MustCompile(`(?i)(ignora|olvida|descarta)\s+(todas\s+)?(las\s+|tus\s+)?(instrucciones|reglas|indicaciones)(\s+(anteriores|previas))?`), "override", 0.9},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|my)\s+|ahora\s+eres\s+(un|una|mi)\s+`), "role_reassignment", 0.7},
	{regexp.MustCompile(`(?i)new\s+(role|instructions?)\s*:|nuevas?\s+(rol|instrucciones)\s*:|system\s*prompt\s*:|<<\s*sys(tem)?\s*>>`), "new_role", 0.9},
	{regexp.MustCompile(`(?i)jailbreak|DAN\s*mode|developer\s*mode|modo\s+desarrollador|god\s*mode`), "jailbreak", 0.9},
	{regexp.MustCompile(`(?i)(pretend|imagine|finge|imagina)\s+(that\s+|que\s+)?(you\s+)?(have\s+no|are\s+without|no\s+tienes)\s+(rules?|restrictions?|limits?|reglas|restricciones|l[ií]mites)`), "no_rules", 0.9},

	// Attempts to read the prompt or secrets
	{regexp.MustCompile(`(?i)(reveal|show|print|repeat|tell\s+me)\s+(your\s+)?(system\s+prompt|instructions?|initial\s+prompt)`), "exfiltration", 0.8},
	{regexp.MustCompile(`(?i)(mu[eé]strame|dime|revela|repite|escribe)\s+(tu|tus)\s+(prompt|instrucciones|reglas)`), "exfiltration", 0.8},
	{regexp.MustCompile(`(?i)\b(api|secret|aws|database|db|whatsapp)\s*(key|token|secret|password)s?\b`), "credentials", 0.8},
	{regexp.MustCompile(`(?i)repeat\s+(everything|all)\s+(above|from\s+the\s+(start|beginning))|repite\s+todo\s+lo\s+anterior`), "repeat_above", 0.7},

	// Chat template markers and markup
	{regexp.MustCompile(`(?i)\[/?INST\]|\[/?SYS\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>|<\|user\|>|<\|assistant\|>`), "special_tokens", 0.9},
	{regexp.MustCompile(`(?i)###\s*(system|instruction|human|assistant|user|sistema)\s*:`), "role_markers", 0.7},
	{regexp.MustCompile(`<\s*(script|img|iframe|object|embed|style|svg|form)\b`), "html", 0.6},
	{regexp.MustCompile(`(?i)base64\s*(encode|decode|:)|\\x[0-9a-fA-F]{2}`), "encoding", 0.5},
}

var (
	specialTokens = regexp.MustCompile(`(?i)\[/?INST\]|\[/?SYS\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>|<\|user\|>|<\|assistant\|>`)
	roleMarkers   = regexp.MustCompile(`(?i)###\s*(system|instruction|human|assistant|user|sistema)\s*:`)
	htmlTags      = regexp.MustCompile(`<\s*(script|img|iframe|object|embed|style|svg|form)\b[^>]*>`)
)

// ScreenQuestion scores inbound text for prompt injection. The strongest
// signal sets the score and each additional signal adds to it.
func ScreenQuestion(text string) QuestionScreen {
	if strings.TrimSpace(text) == "" {
		return QuestionScreen{Text: text}
	}

	var reasons []string
	top := 0.0
	for _, p := range questionPatterns {
		if p.re.MatchString(text) {
			reasons = append(reasons, p.reason)
			if p.weight > top {
				top = p.weight
			}
		}
	}

	score := top
	if len(reasons) > 1 {
		score = min(1.0, top+float64(len(reasons)-1)*extraSignals)
	}
	return QuestionScreen{
		Rejected: score >= rejectScore,
		Score:    score,
		Reasons:  reasons,
		Text:     stripMarkers(text),
	}
}

func stripMarkers(text string) string {
	cleaned := specialTokens.ReplaceAllString(text, "")
	cleaned = roleMarkers.ReplaceAllString(cleaned, "")
	cleaned = htmlTags.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wolfman30/whatsapp-concierge/internal/content"
)

const (
	maxReasonerInputRunes  = 1000
	defaultReasonerTimeout = 12 * time.Second
	defaultReasonerTokens  = 400
)

// ErrReasonerUnavailable means no answer could be produced.
var ErrReasonerUnavailable = errors.New("conversation: reasoner unavailable")

// ErrQuestionRejected means the question failed ScreenQuestion and was not sent.
var ErrQuestionRejected = fmt.Errorf("%w: question rejected", ErrReasonerUnavailable)

// ErrReplyWithheld means the answer failed ScreenReply.
var ErrReplyWithheld = fmt.Errorf("%w: reply withheld", ErrReasonerUnavailable)

// Reasoner answers free text the scripted flow does not handle.
type Reasoner interface {
	Reply(ctx context.Context, userText string) (string, error)
}

// ReasonerOptions tunes an LLMReasoner.
type ReasonerOptions struct {
	Timeout   time.Duration
	MaxTokens int32
}

// LLMReasoner wraps an LLMClient with a business system prompt.
type LLMReasoner struct {
	client    LLMClient
	system    string
	timeout   time.Duration
	maxTokens int32
}

func NewLLMReasoner(client LLMClient, biz content.BusinessContent, opts ReasonerOptions) *LLMReasoner {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultReasonerTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultReasonerTokens
	}
	return &LLMReasoner{
		client:    client,
		system:    SystemPrompt(biz),
		timeout:   opts.Timeout,
		maxTokens: opts.MaxTokens,
	}
}

// Reply bounds both the input and the wait. Timeouts surface as
// context.DeadlineExceeded; blank answers as ErrReasonerUnavailable. Screened
// questions and answers surface as ErrQuestionRejected and ErrReplyWithheld.
func (r *LLMReasoner) Reply(ctx context.Context, userText string) (string, error) {
	if r == nil || r.client == nil {
		return "", ErrReasonerUnavailable
	}
	userText = truncateRunes(strings.TrimSpace(userText), maxReasonerInputRunes)
	if userText == "" {
		return "", fmt.Errorf("%w: empty question", ErrReasonerUnavailable)
	}
	screen := ScreenQuestion(userText)
	if screen.Rejected {
		return "", fmt.Errorf("%w (%s)", ErrQuestionRejected, strings.Join(screen.Reasons, ","))
	}
	if userText = screen.Text; userText == "" {
		return "", fmt.Errorf("%w: empty question", ErrReasonerUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.Complete(ctx, customerQuestion(r.system, userText, r.maxTokens))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("conversation: reasoner: %w", ctxErr)
		}
		return "", fmt.Errorf("conversation: reasoner: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: blank reply", ErrReasonerUnavailable)
	}
	verdict := ScreenReply(text)
	if verdict.Text == "" {
		return "", fmt.Errorf("%w (%s)", ErrReplyWithheld, strings.Join(verdict.Reasons, ","))
	}
	return verdict.Text, nil
}

// SystemPrompt returns the operator prompt, or one built from the business texts.
func SystemPrompt(biz content.BusinessContent) string {
	if p := strings.TrimSpace(biz.SystemPrompt); p != "" {
		return p
	}
	name := strings.TrimSpace(biz.BusinessName)
	if name == "" {
		name = content.Fallback().BusinessName
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Eres el asistente virtual de WhatsApp de %s. ", name)
	b.WriteString("Responde en español, en no más de tres frases, con tono amable. ")
	b.WriteString("No inventes precios, horarios ni datos que no aparezcan aquí. ")
	b.WriteString("Si el cliente quiere una cita, pídele que escriba *agendar*.\n")
	if loc := strings.TrimSpace(biz.LocationText); loc != "" {
		fmt.Fprintf(&b, "Ubicación: %s\n", loc)
	}
	if price := strings.TrimSpace(biz.Pricing.Caption); price != "" {
		fmt.Fprintf(&b, "Precios: %s\n", price)
	}
	if len(biz.ServiceOptions) > 0 {
		fmt.Fprintf(&b, "Servicios: %s\n", strings.Join(biz.ServiceOptions, ", "))
	}
	return strings.TrimSpace(b.String())
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

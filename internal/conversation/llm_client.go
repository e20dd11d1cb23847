package conversation

import "context"

// ChatRole tags who spoke a ChatMessage.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// TokenUsage is reported by providers that meter tokens; zero otherwise.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMRequest carries no model id: each client is bound to one model.
type LLMRequest struct {
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// customerQuestion is the single-turn request the concierge sends: the
// business prompt plus one customer message.
func customerQuestion(system, text string, maxTokens int32) LLMRequest {
	return LLMRequest{
		System:      []string{system},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: text}},
		MaxTokens:   maxTokens,
		Temperature: 0.3,
	}
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// LLMClient completes one request against a hosted model.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

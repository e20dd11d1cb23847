package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/whatsapp-concierge/internal/config"
	"github.com/wolfman30/whatsapp-concierge/internal/content"
	"github.com/wolfman30/whatsapp-concierge/internal/conversation"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

// BuildLLMClient returns the client for provider, or nil when the provider
// is disabled or missing credentials. Closers collects clients that hold
// connections.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, provider string, closers *[]io.Closer) (conversation.LLMClient, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", appconfig.LLMProviderNone:
		return nil, nil
	case appconfig.LLMProviderBedrock:
		if strings.TrimSpace(cfg.BedrockModelID) == "" || awsCfg == nil {
			return nil, nil
		}
		client, err := conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: bedrock client: %w", err)
		}
		return client, nil
	case appconfig.LLMProviderGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, nil
		}
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		if closers != nil {
			*closers = append(*closers, client)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown llm provider %q", provider)
	}
}

// BuildReasoner wires the primary provider, wrapped with the fallback
// provider when both are available. A nil reasoner means AI is disabled.
func BuildReasoner(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, biz content.BusinessContent, logger *logging.Logger, closers *[]io.Closer) (conversation.Reasoner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	primary, err := BuildLLMClient(ctx, cfg, awsCfg, cfg.LLMProvider, closers)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		logger.Warn("no language model configured; AI answers disabled", "provider", cfg.LLMProvider)
		return nil, nil
	}

	client := primary
	if cfg.FallbackProvider != "" && cfg.FallbackProvider != cfg.LLMProvider {
		fallback, err := BuildLLMClient(ctx, cfg, awsCfg, cfg.FallbackProvider, closers)
		if err != nil {
			logger.Warn("fallback language model unavailable", "provider", cfg.FallbackProvider, "error", err)
		} else if fallback != nil {
			client = conversation.NewFallbackLLMClient(primary, fallback, logger)
			logger.Info("language model fallback enabled", "primary", cfg.LLMProvider, "fallback", cfg.FallbackProvider)
		}
	}

	return conversation.NewLLMReasoner(client, biz, conversation.ReasonerOptions{
		Timeout:   cfg.AITimeout,
		MaxTokens: int32(cfg.AIMaxTokens),
	}), nil
}

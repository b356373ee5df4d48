package genai

import (
	"context"
	"log/slog"
)

// CreateResponder builds a FallbackResponder over every configured
// provider's model chain, in cfg.Providers order.
//
// Provider selection logic:
//  1. Each provider's models are tried in the specified order.
//  2. Providers without an API key are skipped.
//  3. Each model is tried with retry logic (configured in RetryConfig).
//  4. Returns nil if no providers/models are configured.
func CreateResponder(ctx context.Context, cfg LLMConfig) (*FallbackResponder, error) {
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	maxOut := cfg.MaxOutputTokens
	if maxOut <= 0 {
		maxOut = DefaultMaxOutputTokens
	}

	var chain []Responder
	for _, provider := range cfg.ConfiguredProviders() {
		pc := cfg.GetProviderConfig(provider)
		for _, model := range pc.Models {
			var (
				r   Responder
				err error
			)
			if provider == ProviderGemini {
				r, err = newGeminiResponder(ctx, pc.APIKey, model, systemPrompt, maxOut)
			} else {
				r, err = newOpenAIResponder(provider, pc.APIKey, model, systemPrompt, maxOut)
			}
			if err != nil {
				slog.WarnContext(ctx, "failed to create responder",
					"provider", provider,
					"model", model,
					"error", err)
				continue
			}
			chain = append(chain, r)
		}
	}

	if len(chain) == 0 {
		slog.InfoContext(ctx, "no LLM provider configured for conversation")
		return nil, nil
	}

	slog.InfoContext(ctx, "conversation responder configured",
		"primary", chain[0].Provider(),
		"chainSize", len(chain))

	return NewFallbackResponder(cfg.RetryConfig, chain...), nil
}

// DefaultLLMConfig returns a default LLM configuration.
// API keys must be provided separately.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Providers:       append([]Provider(nil), DefaultProviders...),
		Gemini:          ProviderConfig{Models: append([]string(nil), DefaultGeminiModels...)},
		Groq:            ProviderConfig{Models: append([]string(nil), DefaultGroqModels...)},
		Cerebras:        ProviderConfig{Models: append([]string(nil), DefaultCerebrasModels...)},
		MaxOutputTokens: DefaultMaxOutputTokens,
		RetryConfig:     DefaultRetryConfig(),
	}
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}

package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiResponder answers dialogues through an OpenAI-compatible chat
// completions endpoint (Groq, Cerebras). It implements the Responder interface.
type openaiResponder struct {
	client          openai.Client
	model           string
	provider        Provider
	systemPrompt    string
	maxOutputTokens int
}

func newOpenAIResponder(provider Provider, apiKey, model, systemPrompt string, maxOutputTokens int, opts ...option.RequestOption) (*openaiResponder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: missing API key", provider)
	}

	baseURL, ok := ProviderEndpoint[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
	}

	if model == "" {
		switch provider {
		case ProviderGroq:
			model = DefaultGroqModels[0]
		case ProviderCerebras:
			model = DefaultCerebrasModels[0]
		}
	}

	// Retries are handled by FallbackResponder.
	clientOpts := append([]option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &openaiResponder{
		client:          openai.NewClient(clientOpts...),
		model:           model,
		provider:        provider,
		systemPrompt:    systemPrompt,
		maxOutputTokens: maxOutputTokens,
	}, nil
}

// Respond sends the dialogue as chat messages.
func (r *openaiResponder) Respond(ctx context.Context, turns []Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if r.systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(r.systemPrompt))
	}
	for _, t := range turns {
		if t.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(t.Text))
		} else {
			messages = append(messages, openai.UserMessage(t.Text))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       r.model,
		Messages:    messages,
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(int64(r.maxOutputTokens)),
	}

	start := time.Now()
	resp, err := r.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "chat API call failed",
			"provider", r.provider,
			"model", r.model,
			"turns", len(turns),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", r.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", errEmptyReply
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errEmptyReply
	}

	if resp.Usage.TotalTokens > 0 {
		slog.DebugContext(ctx, "chat reply generated",
			"provider", r.provider,
			"model", r.model,
			"input_tokens", resp.Usage.PromptTokens,
			"output_tokens", resp.Usage.CompletionTokens,
			"duration_ms", duration.Milliseconds())
	}

	return text, nil
}

// wrapError attaches the HTTP status and Retry-After hint of API errors.
func (r *openaiResponder) wrapError(err error) error {
	var (
		status int
		wait   time.Duration
	)
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
		if apiErr.Response != nil {
			wait = ParseRetryAfter(apiErr.Response.Header)
		}
	}
	return newProviderError(r.provider, r.model, "chat completion", status, wait, err)
}

// Provider returns the provider type for this responder.
func (r *openaiResponder) Provider() Provider {
	return r.provider
}

// Close releases resources.
func (r *openaiResponder) Close() error {
	// openai-go client doesn't require cleanup
	return nil
}

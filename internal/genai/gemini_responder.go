package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// errEmptyReply is returned when a provider answers without text.
// ClassifyError retries it.
var errEmptyReply = errors.New("empty reply from model")

// geminiResponder answers dialogues with a Gemini model.
// It implements the Responder interface.
type geminiResponder struct {
	client          *genai.Client
	model           string
	systemPrompt    string
	maxOutputTokens int
}

// newGeminiResponder creates a Gemini API responder. configure may adjust
// the client config, e.g. to point HTTPOptions.BaseURL at another host.
func newGeminiResponder(ctx context.Context, apiKey, model, systemPrompt string, maxOutputTokens int, configure ...func(*genai.ClientConfig)) (*geminiResponder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: missing API key")
	}
	if model == "" {
		model = DefaultGeminiModels[0]
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, fn := range configure {
		fn(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiResponder{
		client:          client,
		model:           model,
		systemPrompt:    systemPrompt,
		maxOutputTokens: maxOutputTokens,
	}, nil
}

// Respond sends the dialogue as alternating user/model contents.
func (r *geminiResponder) Respond(ctx context.Context, turns []Turn) (string, error) {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		var role genai.Role = genai.RoleUser
		if t.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: int32(r.maxOutputTokens),
	}
	if r.systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(r.systemPrompt, genai.RoleUser)
	}

	start := time.Now()
	resp, err := r.client.Models.GenerateContent(ctx, r.model, contents, config)
	duration := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "chat API call failed",
			"provider", ProviderGemini,
			"model", r.model,
			"turns", len(turns),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		var apiErr genai.APIError
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.Code
		}
		return "", newProviderError(ProviderGemini, r.model, "generate content", status, 0, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errEmptyReply
	}

	var reply strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			reply.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(reply.String())
	if text == "" {
		return "", errEmptyReply
	}

	if resp.UsageMetadata != nil {
		slog.DebugContext(ctx, "chat reply generated",
			"provider", ProviderGemini,
			"model", r.model,
			"input_tokens", resp.UsageMetadata.PromptTokenCount,
			"output_tokens", resp.UsageMetadata.CandidatesTokenCount,
			"duration_ms", duration.Milliseconds())
	}

	return text, nil
}

// Provider returns the provider type for this responder.
func (r *geminiResponder) Provider() Provider {
	return ProviderGemini
}

// Close releases resources.
func (r *geminiResponder) Close() error {
	// genai.Client does not require explicit cleanup
	return nil
}

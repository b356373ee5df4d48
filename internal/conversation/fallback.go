// Package conversation answers free-form chat with a generative model,
// keeping a token-level dialogue context per session.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abccollege/college-chatbot-go/internal/ctxutil"
	domerrors "github.com/abccollege/college-chatbot-go/internal/errors"
	"github.com/abccollege/college-chatbot-go/internal/genai"
)

// DefaultSession is used when the caller sends no session id. All such
// callers share one dialogue.
const DefaultSession = "default"

// MetricsRecorder records dialogue sizes.
type MetricsRecorder interface {
	RecordDialogueTokens(n int)
}

// Fallback is the conversational path of the chat service.
type Fallback struct {
	tokenizer genai.Tokenizer
	model     genai.Model
	store     Store
	maxLength int
	metrics   MetricsRecorder
	locks     stripedMutex
}

// saveTimeout bounds persisting a session after a successful reply.
const saveTimeout = 2 * time.Second

// Option configures a Fallback.
type Option func(*Fallback)

// WithMaxLength caps the dialogue context, in tokens.
func WithMaxLength(n int) Option {
	return func(f *Fallback) {
		if n > 0 {
			f.maxLength = n
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(f *Fallback) { f.metrics = m }
}

// NewFallback creates a Fallback. model may be nil when no generation
// provider is configured; Reply then fails with a generate error.
func NewFallback(tokenizer genai.Tokenizer, model genai.Model, store Store, opts ...Option) *Fallback {
	f := &Fallback{
		tokenizer: tokenizer,
		model:     model,
		store:     store,
		maxLength: genai.DefaultMaxLength,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Reply appends text as a user turn to the session's dialogue, generates
// the next bot turn and returns it. The session context is only updated
// when generation succeeds and produced at least one token.
func (f *Fallback) Reply(ctx context.Context, sessionID, text string) (string, error) {
	w := domerrors.NewWrapper("conversation", "reply")
	if sessionID == "" {
		sessionID = DefaultSession
	}
	if f.model == nil {
		return "", w.Wrap(domerrors.KindGenerate, domerrors.ErrModelUnavailable)
	}

	turn, err := genai.EncodeTurn(f.tokenizer, text)
	if err != nil {
		return "", w.Wrap(domerrors.KindEncode, fmt.Errorf("encode message: %w", err))
	}

	unlock := f.locks.lock(sessionID)
	defer unlock()

	history, err := f.store.Load(ctx, sessionID)
	if err != nil {
		return "", w.Wrap(domerrors.KindInternal, err)
	}

	input := append(history, turn...)

	output, err := f.model.Generate(ctx, input, genai.GenerateOptions{
		MaxLength:  f.maxLength,
		PadTokenID: f.tokenizer.EOSID(),
	})
	if err != nil {
		return "", w.Wrap(domerrors.KindGenerate, err)
	}
	if len(output) < len(input) {
		return "", w.Wrapf(domerrors.KindGenerate, "model returned %d tokens for %d input tokens", len(output), len(input))
	}

	reply, err := f.tokenizer.Decode(output[len(input):])
	if err != nil {
		return "", w.Wrap(domerrors.KindEncode, fmt.Errorf("decode reply: %w", err))
	}

	// A full context yields no new tokens; the stored one stays as it was
	// so it never grows past maxLength.
	if len(output) == len(input) {
		slog.DebugContext(ctx, "dialogue context full, not saved",
			"input_tokens", len(input),
			"max_length", f.maxLength)
		return reply, nil
	}

	// Persisted even if the request is canceled after generation.
	saveCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), saveTimeout)
	defer cancel()
	if err := f.store.Save(saveCtx, sessionID, output); err != nil {
		// The reply is still valid; the next turn starts from the old context.
		slog.WarnContext(ctx, "failed to save dialogue context",
			"tokens", len(output),
			"error", err)
	}
	if f.metrics != nil {
		f.metrics.RecordDialogueTokens(len(output))
	}

	slog.DebugContext(ctx, "conversational reply generated",
		"input_tokens", len(input),
		"output_tokens", len(output)-len(input))

	return reply, nil
}

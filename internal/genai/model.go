package genai

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultMaxLength bounds a dialogue context, in tokens, including the
// generated reply.
const DefaultMaxLength = 1000

// GenerateOptions controls a single generation.
type GenerateOptions struct {
	// MaxLength caps len(output) in tokens.
	MaxLength int
	// PadTokenID separates turns in the token sequence.
	PadTokenID int
}

// Model continues a token sequence. The returned sequence starts with
// input unchanged.
type Model interface {
	Generate(ctx context.Context, input []int, opts GenerateOptions) ([]int, error)
}

// ChatModel is a Model that decodes the token sequence into dialogue turns,
// asks a Responder for the next turn and encodes the answer back.
type ChatModel struct {
	tokenizer Tokenizer
	responder Responder
}

// NewChatModel creates a ChatModel.
func NewChatModel(tokenizer Tokenizer, responder Responder) *ChatModel {
	return &ChatModel{tokenizer: tokenizer, responder: responder}
}

// Generate appends one assistant turn, terminated by opts.PadTokenID, to
// input. A reply that does not fit is truncated so the output never exceeds
// opts.MaxLength and still ends with the terminator. When input already
// fills MaxLength, input is returned unchanged and no model call is made.
func (m *ChatModel) Generate(ctx context.Context, input []int, opts GenerateOptions) ([]int, error) {
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}

	output := append(make([]int, 0, opts.MaxLength), input...)
	budget := opts.MaxLength - len(input)
	if budget <= 0 {
		slog.DebugContext(ctx, "dialogue context at max length, skipping generation",
			"input_tokens", len(input),
			"max_length", opts.MaxLength)
		return output, nil
	}

	turns, err := m.turns(input, opts.PadTokenID)
	if err != nil {
		return nil, err
	}

	reply, err := m.responder.Respond(ctx, turns)
	if err != nil {
		return nil, err
	}

	ids, err := m.tokenizer.Encode(reply)
	if err != nil {
		return nil, fmt.Errorf("encode reply: %w", err)
	}
	if len(ids) > budget-1 {
		ids = ids[:budget-1]
	}

	output = append(output, ids...)
	output = append(output, opts.PadTokenID)
	return output, nil
}

// turns splits ids on sep into alternating user and assistant turns,
// starting with the user. A trailing unterminated segment is kept as the
// last turn.
func (m *ChatModel) turns(ids []int, sep int) ([]Turn, error) {
	var turns []Turn
	appendTurn := func(segment []int) error {
		text, err := m.tokenizer.Decode(segment)
		if err != nil {
			return fmt.Errorf("decode turn: %w", err)
		}
		role := RoleUser
		if len(turns)%2 == 1 {
			role = RoleAssistant
		}
		turns = append(turns, Turn{Role: role, Text: text})
		return nil
	}

	begin := 0
	for i, id := range ids {
		if id != sep {
			continue
		}
		if err := appendTurn(ids[begin:i]); err != nil {
			return nil, err
		}
		begin = i + 1
	}
	if begin < len(ids) {
		if err := appendTurn(ids[begin:]); err != nil {
			return nil, err
		}
	}
	return turns, nil
}

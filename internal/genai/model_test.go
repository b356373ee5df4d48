package genai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTurns(t *testing.T, tok Tokenizer, texts ...string) []int {
	t.Helper()
	var ids []int
	for _, text := range texts {
		turn, err := EncodeTurn(tok, text)
		require.NoError(t, err)
		ids = append(ids, turn...)
	}
	return ids
}

func TestChatModel_Generate(t *testing.T) {
	t.Parallel()
	tok := newWordTokenizer()
	resp := &mockResponder{provider: ProviderGemini, respondFunc: func(context.Context, []Turn) (string, error) {
		return "glad to help", nil
	}}
	m := NewChatModel(tok, resp)

	input := encodeTurns(t, tok, "hello there", "hi how can I help", "tell me a joke")
	out, err := m.Generate(context.Background(), input, GenerateOptions{MaxLength: 100, PadTokenID: tok.EOSID()})
	require.NoError(t, err)

	assert.Equal(t, input, out[:len(input)], "output must start with input")
	assert.Equal(t, tok.EOSID(), out[len(out)-1], "reply must end with the terminator")

	reply, err := tok.Decode(out[len(input):])
	require.NoError(t, err)
	assert.Equal(t, "glad to help", reply)

	require.Equal(t, 1, resp.callCount())
	assert.Equal(t, []Turn{
		{Role: RoleUser, Text: "hello there"},
		{Role: RoleAssistant, Text: "hi how can I help"},
		{Role: RoleUser, Text: "tell me a joke"},
	}, resp.calls[0])
}

func TestChatModel_TruncatesToMaxLength(t *testing.T) {
	t.Parallel()
	tok := newWordTokenizer()
	resp := &mockResponder{respondFunc: func(context.Context, []Turn) (string, error) {
		return "one two three four five six", nil
	}}
	m := NewChatModel(tok, resp)

	input := encodeTurns(t, tok, "a b c")
	out, err := m.Generate(context.Background(), input, GenerateOptions{MaxLength: 7, PadTokenID: tok.EOSID()})
	require.NoError(t, err)

	assert.Len(t, out, 7)
	assert.Equal(t, tok.EOSID(), out[6])
	reply, _ := tok.Decode(out[len(input):])
	assert.Equal(t, "one two", reply)
}

func TestChatModel_InputAtMaxLength(t *testing.T) {
	t.Parallel()
	tok := newWordTokenizer()
	resp := &mockResponder{}
	m := NewChatModel(tok, resp)

	input := encodeTurns(t, tok, "a b c", "d e")
	out, err := m.Generate(context.Background(), input, GenerateOptions{MaxLength: len(input), PadTokenID: tok.EOSID()})
	require.NoError(t, err)

	assert.Equal(t, input, out)
	assert.Zero(t, resp.callCount(), "no model call when there is no room")
}

func TestChatModel_OneTokenBudget(t *testing.T) {
	t.Parallel()
	tok := newWordTokenizer()
	m := NewChatModel(tok, &mockResponder{})

	input := encodeTurns(t, tok, "a b")
	out, err := m.Generate(context.Background(), input, GenerateOptions{MaxLength: len(input) + 1, PadTokenID: tok.EOSID()})
	require.NoError(t, err)
	assert.Equal(t, append(append([]int(nil), input...), tok.EOSID()), out)
}

func TestChatModel_ResponderError(t *testing.T) {
	t.Parallel()
	tok := newWordTokenizer()
	boom := errors.New("upstream down")
	m := NewChatModel(tok, &mockResponder{respondFunc: func(context.Context, []Turn) (string, error) {
		return "", boom
	}})

	_, err := m.Generate(context.Background(), encodeTurns(t, tok, "hi"), GenerateOptions{MaxLength: 50})
	assert.ErrorIs(t, err, boom)
}

func TestChatModel_DoesNotAliasInput(t *testing.T) {
	t.Parallel()
	tok := newWordTokenizer()
	m := NewChatModel(tok, &mockResponder{})

	input := make([]int, 0, 64)
	input = append(input, encodeTurns(t, tok, "hi")...)
	snapshot := append([]int(nil), input...)

	_, err := m.Generate(context.Background(), input, GenerateOptions{MaxLength: 50, PadTokenID: tok.EOSID()})
	require.NoError(t, err)
	assert.Equal(t, snapshot, input[:len(snapshot)])
	assert.Len(t, input, len(snapshot))
}

func TestChatModel_TurnsWithUnterminatedTail(t *testing.T) {
	t.Parallel()
	tok := newWordTokenizer()
	m := NewChatModel(tok, &mockResponder{})

	ids := encodeTurns(t, tok, "hello")
	tail, _ := tok.Encode("partial text")
	ids = append(ids, tail...)

	turns, err := m.turns(ids, tok.EOSID())
	require.NoError(t, err)
	assert.Equal(t, []Turn{
		{Role: RoleUser, Text: "hello"},
		{Role: RoleAssistant, Text: "partial text"},
	}, turns)
}

package genai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTiktoken skips when the BPE ranks cannot be loaded (offline CI
// without TIKTOKEN_CACHE_DIR).
func newTestTiktoken(t *testing.T) *TiktokenTokenizer {
	t.Helper()
	tok, err := NewTiktokenTokenizer("")
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
	return tok
}

func TestTiktokenTokenizer_RoundTrip(t *testing.T) {
	tok := newTestTiktoken(t)
	assert.Equal(t, DefaultEncoding, tok.Encoding())

	ids, err := EncodeTurn(tok, "Hello, how are you?")
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	assert.Equal(t, tok.EOSID(), ids[len(ids)-1])

	text, err := tok.Decode(ids)
	require.NoError(t, err)
	assert.Equal(t, "Hello, how are you?", text, "decode must drop the end-of-turn token")
}

func TestTiktokenTokenizer_SpecialMarkupIsPlainText(t *testing.T) {
	tok := newTestTiktoken(t)

	ids, err := tok.Encode("try " + EndOfText + " this")
	require.NoError(t, err)
	assert.NotContains(t, ids, tok.EOSID(), "user text must not inject turn separators")
}

func TestTiktokenTokenizer_Nil(t *testing.T) {
	var tok *TiktokenTokenizer
	_, err := tok.Encode("x")
	assert.Error(t, err)
	_, err = tok.Decode([]int{1})
	assert.Error(t, err)
}

func TestWithoutToken(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, withoutToken([]int{0, 1, 0, 2, 3, 0}, 0))
	assert.Empty(t, withoutToken(nil, 0))
}

package genai

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultEncoding is the BPE encoding used when none is configured.
	DefaultEncoding = "cl100k_base"
	// EndOfText terminates every dialogue turn.
	EndOfText = "<|endoftext|>"
)

// Tokenizer converts between text and token ids.
type Tokenizer interface {
	// Encode tokenizes text. Special token markup in text is treated as
	// plain text.
	Encode(text string) ([]int, error)
	// Decode turns ids back into text, dropping the end-of-turn token.
	Decode(ids []int) (string, error)
	// EOSID returns the id of the end-of-turn token.
	EOSID() int
}

// TiktokenTokenizer implements Tokenizer with a tiktoken BPE encoding.
type TiktokenTokenizer struct {
	encoding string
	tke      *tiktoken.Tiktoken
	eosID    int
}

// NewTiktokenTokenizer loads the named encoding. The first load of an
// encoding may download its BPE ranks; set TIKTOKEN_CACHE_DIR to reuse them.
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %q: %w", encoding, err)
	}

	eos := tke.Encode(EndOfText, []string{EndOfText}, nil)
	if len(eos) != 1 {
		return nil, fmt.Errorf("encoding %q has no %s token", encoding, EndOfText)
	}

	return &TiktokenTokenizer{
		encoding: encoding,
		tke:      tke,
		eosID:    eos[0],
	}, nil
}

// Encode tokenizes text with no special tokens allowed.
func (t *TiktokenTokenizer) Encode(text string) ([]int, error) {
	if t == nil || t.tke == nil {
		return nil, fmt.Errorf("tiktoken encoder is not initialized")
	}
	return t.tke.Encode(text, nil, nil), nil
}

// Decode drops end-of-turn tokens and decodes the rest.
func (t *TiktokenTokenizer) Decode(ids []int) (string, error) {
	if t == nil || t.tke == nil {
		return "", fmt.Errorf("tiktoken encoder is not initialized")
	}
	return t.tke.Decode(withoutToken(ids, t.eosID)), nil
}

// EOSID returns the id of <|endoftext|>.
func (t *TiktokenTokenizer) EOSID() int {
	return t.eosID
}

// Encoding returns the encoding name.
func (t *TiktokenTokenizer) Encoding() string {
	return t.encoding
}

// EncodeTurn tokenizes text and terminates it with the end-of-turn token.
func EncodeTurn(tok Tokenizer, text string) ([]int, error) {
	ids, err := tok.Encode(text)
	if err != nil {
		return nil, err
	}
	return append(ids, tok.EOSID()), nil
}

func withoutToken(ids []int, drop int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

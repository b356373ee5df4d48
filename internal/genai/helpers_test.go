package genai

import (
	"context"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abccollege/college-chatbot-go/internal/metrics"
)

func init() {
	metrics.InitGlobal(metrics.New(prometheus.NewRegistry()))
}

// wordTokenizer maps each space-separated word to a stable id. Id 0 is the
// end-of-turn token.
type wordTokenizer struct {
	mu    sync.Mutex
	ids   map[string]int
	words []string
}

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{ids: map[string]int{}, words: []string{EndOfText}}
}

func (w *wordTokenizer) Encode(text string) ([]int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []int
	for _, word := range strings.Fields(text) {
		id, ok := w.ids[word]
		if !ok {
			id = len(w.words)
			w.ids[word] = id
			w.words = append(w.words, word)
		}
		out = append(out, id)
	}
	return out, nil
}

func (w *wordTokenizer) Decode(ids []int) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var parts []string
	for _, id := range ids {
		if id == 0 {
			continue
		}
		parts = append(parts, w.words[id])
	}
	return strings.Join(parts, " "), nil
}

func (w *wordTokenizer) EOSID() int { return 0 }

// mockResponder is a test mock for the Responder interface.
type mockResponder struct {
	mu          sync.Mutex
	respondFunc func(ctx context.Context, turns []Turn) (string, error)
	provider    Provider
	calls       [][]Turn
	closeCalled bool
}

func (m *mockResponder) Respond(ctx context.Context, turns []Turn) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]Turn(nil), turns...))
	m.mu.Unlock()
	if m.respondFunc != nil {
		return m.respondFunc(ctx, turns)
	}
	return "ok", nil
}

func (m *mockResponder) Provider() Provider {
	return m.provider
}

func (m *mockResponder) Close() error {
	m.closeCalled = true
	return nil
}

func (m *mockResponder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

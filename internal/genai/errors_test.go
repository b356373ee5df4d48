package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	status := func(code int) error {
		return &ProviderError{Provider: ProviderGroq, StatusCode: code, Err: errors.New("boom")}
	}

	tests := []struct {
		name string
		err  error
		want ErrorAction
	}{
		{"nil", nil, ActionFail},
		{"canceled", context.Canceled, ActionFail},
		{"wrapped canceled", fmt.Errorf("call: %w", context.Canceled), ActionFail},
		{"deadline", context.DeadlineExceeded, ActionRetry},

		{"429", status(http.StatusTooManyRequests), ActionRetry},
		{"408", status(http.StatusRequestTimeout), ActionRetry},
		{"409", status(http.StatusConflict), ActionRetry},
		{"503", status(http.StatusServiceUnavailable), ActionRetry},
		{"400", status(http.StatusBadRequest), ActionFail},
		{"401", status(http.StatusUnauthorized), ActionFail},
		{"404", status(http.StatusNotFound), ActionFail},
		{"418", status(http.StatusTeapot), ActionFail},
		{"status beats message", &ProviderError{StatusCode: 500, Err: errors.New("quota exceeded")}, ActionRetry},

		{"quota", errors.New("Quota exceeded for project"), ActionFallback},
		{"quota over rate limit", errors.New("rate limit: daily limit reached"), ActionFallback},
		{"rate limit", errors.New("Rate limit reached, slow down"), ActionRetry},
		{"gemini exhausted", errors.New("RESOURCE_EXHAUSTED"), ActionRetry},
		{"overloaded", errors.New("model is overloaded"), ActionRetry},
		{"connection reset", errors.New("read: connection reset by peer"), ActionRetry},
		{"empty reply", errEmptyReply, ActionRetry},
		{"bad key", errors.New("invalid API key provided"), ActionFail},
		{"forbidden", errors.New("permission denied on model"), ActionFail},
		{"missing model", errors.New("model not found"), ActionFail},
		{"malformed", errors.New("malformed request body"), ActionFail},
		{"unknown", errors.New("something odd"), ActionRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestErrorActionString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "retry", ActionRetry.String())
	assert.Equal(t, "fallback", ActionFallback.String())
	assert.Equal(t, "fail", ActionFail.String())
	assert.Equal(t, "unknown", ErrorAction(42).String())
}

func TestProviderError(t *testing.T) {
	t.Parallel()

	cause := errors.New("upstream closed")
	err := newProviderError(ProviderCerebras, "llama-3.3-70b", "chat completion", http.StatusBadGateway, 3*time.Second, cause)

	assert.Equal(t, "cerebras/llama-3.3-70b: chat completion failed: upstream closed (status 502)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3*time.Second, retryAfter(fmt.Errorf("wrapped: %w", err)))
	assert.Zero(t, retryAfter(cause))

	bare := &ProviderError{Provider: ProviderGemini, Err: cause}
	assert.Equal(t, "gemini: upstream closed", bare.Error())
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		want    time.Duration
	}{
		{"none", nil, 0},
		{"milliseconds", map[string]string{"retry-after-ms": "1500"}, 1500 * time.Millisecond},
		{"ms wins over seconds", map[string]string{"retry-after-ms": "250", "retry-after": "9"}, 250 * time.Millisecond},
		{"seconds", map[string]string{"Retry-After": "7"}, 7 * time.Second},
		{"zero seconds ignored", map[string]string{"Retry-After": "0"}, 0},
		{"groq reset", map[string]string{"x-ratelimit-reset-tokens": "6.5s"}, 6500 * time.Millisecond},
		{"garbage", map[string]string{"Retry-After": "soon", "x-ratelimit-reset-tokens": "later"}, 0},
		{"past date", map[string]string{"Retry-After": "Mon, 02 Jan 2006 15:04:05 GMT"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, ParseRetryAfter(h))
		})
	}
}

func TestParseRetryAfter_FutureDate(t *testing.T) {
	t.Parallel()
	h := http.Header{}
	h.Set("Retry-After", time.Now().Add(time.Minute).UTC().Format(http.TimeFormat))

	got := ParseRetryAfter(h)
	require.Positive(t, got)
	assert.LessOrEqual(t, got, time.Minute)
}

func TestMetricStatus(t *testing.T) {
	t.Parallel()

	status := func(code int) error {
		return &ProviderError{Provider: ProviderGroq, StatusCode: code, Err: errors.New("x")}
	}

	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{status(http.StatusTooManyRequests), "rate_limit"},
		{status(http.StatusBadGateway), "server_error"},
		{status(http.StatusForbidden), "auth_error"},
		{status(http.StatusBadRequest), "invalid_request"},
		{status(http.StatusNotFound), "error"},
		{errors.New("quota exceeded"), "quota_exhausted"},
		{errors.New("weird"), "transient_error"},
		{errors.New("invalid request"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, metricStatus(tt.err), "%v", tt.err)
	}
}

package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorAction is what the responder chain does after a failed call.
type ErrorAction int

const (
	// ActionRetry retries the same responder after a backoff.
	ActionRetry ErrorAction = iota
	// ActionFallback moves on to the next responder without retrying.
	ActionFallback
	// ActionFail gives up on this responder; the request itself is bad.
	ActionFail
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// ProviderError is a failed provider call with the HTTP details needed to
// decide between retry and fallback.
type ProviderError struct {
	Provider   Provider
	Model      string
	StatusCode int // 0 when the call never got a response
	// RetryAfter is the wait requested by the provider, zero when absent.
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Provider))
	if e.Model != "" {
		b.WriteString("/" + e.Model)
	}
	b.WriteString(": " + e.Err.Error())
	if e.StatusCode > 0 {
		b.WriteString(" (status " + strconv.Itoa(e.StatusCode) + ")")
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// messagePatterns classify errors that carry no status code. Order matters:
// quota exhaustion must win over the generic rate-limit wording.
var messagePatterns = []struct {
	action   ErrorAction
	patterns []string
}{
	{ActionFallback, []string{"quota", "daily limit", "monthly limit", "billing"}},
	{ActionRetry, []string{"rate limit", "too many requests", "resource_exhausted", "429"}},
	{ActionRetry, []string{"unavailable", "overloaded", "capacity", "bad gateway", "internal server error",
		"500", "502", "503", "504"}},
	{ActionRetry, []string{"timeout", "deadline", "connection", "empty reply", "408", "409"}},
	{ActionFail, []string{"unauthorized", "unauthenticated", "api key", "401"}},
	{ActionFail, []string{"forbidden", "permission denied", "403"}},
	{ActionFail, []string{"not found", "404"}},
	{ActionFail, []string{"bad request", "invalid", "malformed", "unprocessable", "400", "422"}},
}

// ClassifyError decides how the chain reacts to err. Status codes win over
// message matching; anything unrecognized is retried.
func ClassifyError(err error) ErrorAction {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return ActionFail
	case errors.Is(err, context.DeadlineExceeded):
		return ActionRetry
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode > 0 {
		return classifyStatus(pe.StatusCode)
	}

	msg := strings.ToLower(err.Error())
	for _, group := range messagePatterns {
		for _, p := range group.patterns {
			if strings.Contains(msg, p) {
				return group.action
			}
		}
	}
	return ActionRetry
}

func classifyStatus(code int) ErrorAction {
	switch {
	case code == http.StatusTooManyRequests,
		code == http.StatusRequestTimeout,
		code == http.StatusConflict,
		code >= 500:
		return ActionRetry
	case code >= 400:
		return ActionFail
	default:
		return ActionRetry
	}
}

// ParseRetryAfter reads the wait a provider asks for, in order of
// precision: retry-after-ms, retry-after (seconds or HTTP date), then
// Groq's x-ratelimit-reset-tokens duration. It returns 0 when none parse.
func ParseRetryAfter(h http.Header) time.Duration {
	if ms, err := strconv.Atoi(h.Get("retry-after-ms")); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	if v := h.Get("retry-after"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
		if t, err := http.ParseTime(v); err == nil {
			return max(time.Until(t), 0)
		}
	}
	if d, err := time.ParseDuration(h.Get("x-ratelimit-reset-tokens")); err == nil && d > 0 {
		return d
	}
	return 0
}

// newProviderError wraps a failed call. op describes the call in the
// message, e.g. "chat completion".
func newProviderError(provider Provider, model, op string, status int, retryAfter time.Duration, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Model:      model,
		StatusCode: status,
		RetryAfter: retryAfter,
		Err:        fmt.Errorf("%s failed: %w", op, err),
	}
}

// retryAfter returns the provider-requested wait carried by err, if any.
func retryAfter(err error) time.Duration {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}

// metricStatus maps a failed call to the status label of college_llm_total.
func metricStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		switch code := pe.StatusCode; {
		case code == http.StatusTooManyRequests:
			return "rate_limit"
		case code >= 500:
			return "server_error"
		case code == http.StatusUnauthorized, code == http.StatusForbidden:
			return "auth_error"
		case code == http.StatusBadRequest:
			return "invalid_request"
		}
	}

	switch ClassifyError(err) {
	case ActionFallback:
		return "quota_exhausted"
	case ActionRetry:
		return "transient_error"
	default:
		return "error"
	}
}

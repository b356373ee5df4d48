package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abccollege/college-chatbot-go/internal/metrics"
)

const operationChat = "chat"

// FallbackResponder tries a chain of responders in order. Each responder
// is retried on transient errors before moving to the next one.
type FallbackResponder struct {
	chain       []Responder
	retryConfig RetryConfig
}

// NewFallbackResponder creates a responder over chain. Nil entries are dropped.
func NewFallbackResponder(cfg RetryConfig, chain ...Responder) *FallbackResponder {
	filtered := make([]Responder, 0, len(chain))
	for _, r := range chain {
		if r != nil {
			filtered = append(filtered, r)
		}
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &FallbackResponder{chain: filtered, retryConfig: cfg}
}

// Respond returns the first successful reply in the chain.
func (f *FallbackResponder) Respond(ctx context.Context, turns []Turn) (string, error) {
	if f == nil || len(f.chain) == 0 {
		return "", errors.New("responder not configured")
	}

	start := time.Now()
	first := f.chain[0].Provider()
	var lastErr error

	for i, r := range f.chain {
		callStart := time.Now()
		reply, err := f.respondWithRetry(ctx, r, turns)
		if err == nil {
			recordSuccess(r.Provider(), callStart)
			if i > 0 {
				recordFallback(first, r.Provider(), time.Since(start))
			}
			return reply, nil
		}

		lastErr = err
		recordError(r.Provider(), err)
		action := ClassifyError(err)

		// Context errors end the chain; the caller's budget is gone.
		if ctx.Err() != nil {
			return "", err
		}
		if i == len(f.chain)-1 {
			break
		}

		slog.WarnContext(ctx, "responder failed, trying next in chain",
			"provider", r.Provider(),
			"next", f.chain[i+1].Provider(),
			"action", action,
			"error", err)
	}

	slog.ErrorContext(ctx, "all responders failed",
		"chain_size", len(f.chain),
		"duration", time.Since(start),
		"error", lastErr)

	return "", fmt.Errorf("all responders failed: %w", lastErr)
}

// respondWithRetry retries r on errors classified as transient.
func (f *FallbackResponder) respondWithRetry(ctx context.Context, r Responder, turns []Turn) (string, error) {
	var lastErr error

	for attempt := range f.retryConfig.MaxAttempts {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		reply, err := r.Respond(ctx, turns)
		if err == nil {
			return reply, nil
		}

		lastErr = err
		if ClassifyError(err) != ActionRetry {
			return "", err
		}

		if attempt == f.retryConfig.MaxAttempts-1 {
			break
		}

		backoff := backoffDelay(attempt+1, f.retryConfig.InitialDelay, f.retryConfig.MaxDelay)
		if wait := retryAfter(err); wait > backoff {
			backoff = min(wait, f.retryConfig.MaxDelay)
		}

		if !fitsDeadline(ctx, backoff) {
			return "", fmt.Errorf("timeout during retry: %w", lastErr)
		}

		slog.DebugContext(ctx, "retrying responder",
			"provider", r.Provider(),
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)

		if err := sleepCtx(ctx, backoff); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

// Provider returns the primary provider type.
func (f *FallbackResponder) Provider() Provider {
	if f == nil || len(f.chain) == 0 {
		return ""
	}
	return f.chain[0].Provider()
}

// Len returns the chain length.
func (f *FallbackResponder) Len() int {
	if f == nil {
		return 0
	}
	return len(f.chain)
}

// Close closes every responder in the chain.
func (f *FallbackResponder) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, r := range f.chain {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Helper functions for metrics recording

func recordSuccess(provider Provider, start time.Time) {
	if metrics.LLMTotal == nil || metrics.LLMDuration == nil {
		return
	}
	metrics.LLMTotal.WithLabelValues(string(provider), operationChat, "success").Inc()
	metrics.LLMDuration.WithLabelValues(string(provider), operationChat).Observe(time.Since(start).Seconds())
}

func recordError(provider Provider, err error) {
	if metrics.LLMTotal == nil {
		return
	}
	metrics.LLMTotal.WithLabelValues(string(provider), operationChat, metricStatus(err)).Inc()
}

func recordFallback(from, to Provider, total time.Duration) {
	if metrics.LLMFallbackTotal == nil {
		return
	}
	metrics.LLMFallbackTotal.WithLabelValues(string(from), string(to), operationChat).Inc()
	if metrics.LLMFallbackLatency != nil {
		metrics.LLMFallbackLatency.WithLabelValues(string(from), string(to), operationChat).Observe(total.Seconds())
	}
}

package genai

import (
	"context"
	"math/rand/v2"
	"time"
)

// backoffDelay is the full-jitter wait before retry number attempt (1-based):
// a uniform draw from [0, min(ceiling, initial*2^(attempt-1))).
func backoffDelay(attempt int, initial, ceiling time.Duration) time.Duration {
	if attempt <= 0 || initial <= 0 {
		return 0
	}
	delay := initial
	for i := 1; i < attempt && delay < ceiling; i++ {
		delay *= 2
	}
	if ceiling > 0 && delay > ceiling {
		delay = ceiling
	}
	return rand.N(delay)
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fitsDeadline reports whether ctx leaves at least d before its deadline.
func fitsDeadline(ctx context.Context, d time.Duration) bool {
	deadline, ok := ctx.Deadline()
	return !ok || time.Until(deadline) >= d
}

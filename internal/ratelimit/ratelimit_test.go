package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/abccollege/college-chatbot-go/internal/metrics"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestBucket(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	b := newBucket(2, 1, clock.Now)

	if !b.Allow() || !b.Allow() {
		t.Fatal("burst of 2 should be allowed")
	}
	if b.Allow() {
		t.Fatal("third request should be limited")
	}
	if d := b.Delay(); d != time.Second {
		t.Errorf("Delay() = %v, want 1s", d)
	}

	clock.Advance(500 * time.Millisecond)
	if b.Allow() {
		t.Error("half a token is not enough")
	}

	clock.Advance(500 * time.Millisecond)
	if !b.Allow() {
		t.Error("one token should have refilled")
	}

	clock.Advance(time.Hour)
	if got := b.Available(); got != 2 {
		t.Errorf("Available() = %v, want burst 2", got)
	}
	if !b.Full() {
		t.Error("bucket should be full after idling")
	}
	if d := b.Delay(); d != 0 {
		t.Errorf("Delay() = %v, want 0", d)
	}
}

func TestWindow(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	w := newWindow(4, time.Hour, clock.Now)

	for i := range 4 {
		if !w.Allow() {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if w.Allow() {
		t.Fatal("fifth request should be limited")
	}
	if r := w.Remaining(); r != 0 {
		t.Errorf("Remaining() = %d, want 0", r)
	}

	// Half way through the next window half of the previous count remains.
	clock.Advance(90 * time.Minute)
	if r := w.Remaining(); r != 2 {
		t.Errorf("Remaining() = %d, want 2", r)
	}

	// After two full idle windows nothing counts any more.
	clock.Advance(3 * time.Hour)
	if w.Used() {
		t.Error("window should be empty")
	}
	if r := w.Remaining(); r != 4 {
		t.Errorf("Remaining() = %d, want 4", r)
	}
}

func TestWindow_Disabled(t *testing.T) {
	t.Parallel()
	w := NewWindow(0, time.Hour)
	if w != nil {
		t.Fatal("zero limit should disable the window")
	}
	if !w.Allow() || w.Used() || w.Remaining() != -1 {
		t.Error("nil window should allow everything")
	}
}

func TestClientLimiter(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	m := metrics.New(prometheus.NewRegistry())
	l := NewClientLimiter(ClientConfig{Burst: 1, RefillRate: 0.5, CleanupPeriod: time.Hour, Metrics: m})
	l.now = clock.Now
	defer l.Stop()

	if !l.Allow("10.0.0.1") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("second request should be limited")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("another client has its own bucket")
	}
	if !l.Allow("") {
		t.Error("empty key is never limited")
	}
	if d := l.RetryAfter("10.0.0.1"); d != 2*time.Second {
		t.Errorf("RetryAfter() = %v, want 2s", d)
	}
	if d := l.RetryAfter("unknown"); d != 0 {
		t.Errorf("RetryAfter(unknown) = %v, want 0", d)
	}
	if got := testutil.ToFloat64(m.RateLimiterDropped.WithLabelValues("client")); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}

	clock.Advance(2 * time.Second)
	if !l.Allow("10.0.0.1") {
		t.Error("bucket should have refilled")
	}
}

func TestClientLimiter_Daily(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	l := NewClientLimiter(ClientConfig{Burst: 10, RefillRate: 10, DailyLimit: 2, CleanupPeriod: time.Hour})
	l.now = clock.Now
	defer l.Stop()

	if r := l.DailyRemaining("a"); r != 2 {
		t.Errorf("DailyRemaining() = %d, want 2", r)
	}
	l.Allow("a")
	l.Allow("a")
	if l.Allow("a") {
		t.Error("daily limit should apply")
	}
	if r := l.DailyRemaining("a"); r != 0 {
		t.Errorf("DailyRemaining() = %d, want 0", r)
	}
	// The rejected request consumed no bucket tokens.
	if got := l.get("a").bucket.Available(); got != 8 {
		t.Errorf("bucket tokens = %v, want 8", got)
	}

	noDaily := NewClientLimiter(ClientConfig{Burst: 1})
	defer noDaily.Stop()
	if r := noDaily.DailyRemaining("a"); r != -1 {
		t.Errorf("DailyRemaining() = %d, want -1", r)
	}
}

func TestClientLimiter_Cleanup(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	m := metrics.New(prometheus.NewRegistry())
	l := NewClientLimiter(ClientConfig{Burst: 5, RefillRate: 1, DailyLimit: 100, CleanupPeriod: time.Hour, Metrics: m})
	l.now = clock.Now
	defer l.Stop()

	l.Allow("busy")
	l.get("idle")

	clock.Advance(time.Minute)
	l.cleanup()
	if n := l.Clients(); n != 1 {
		t.Fatalf("Clients() = %d, want 1 (client with daily usage is kept)", n)
	}

	clock.Advance(49 * time.Hour)
	l.cleanup()
	if n := l.Clients(); n != 0 {
		t.Errorf("Clients() = %d, want 0", n)
	}
	if got := testutil.ToFloat64(m.RateLimiterClients); got != 0 {
		t.Errorf("clients gauge = %v, want 0", got)
	}
}

func TestClientLimiter_Concurrent(t *testing.T) {
	t.Parallel()
	l := NewClientLimiter(ClientConfig{Burst: 50, RefillRate: 0})
	defer l.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(fmt.Sprintf("c%d", i%2)) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 100 {
		t.Errorf("allowed = %d, want 100", allowed)
	}
	l.Stop()
}

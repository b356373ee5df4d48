package ratelimit

import (
	"sync"
	"time"
)

// Window is a sliding window counter: the previous fixed window's count is
// weighted by how much of it still overlaps the sliding window.
// A nil *Window allows everything.
type Window struct {
	mu    sync.Mutex
	limit int
	size  time.Duration
	start time.Time
	curr  int
	prev  int
	now   func() time.Time
}

// NewWindow returns nil when limit <= 0.
func NewWindow(limit int, size time.Duration) *Window {
	return newWindow(limit, size, time.Now)
}

func newWindow(limit int, size time.Duration, now func() time.Time) *Window {
	if limit <= 0 {
		return nil
	}
	return &Window{limit: limit, size: size, start: now(), now: now}
}

// advance must be called with mu held.
func (w *Window) advance() float64 {
	elapsed := w.now().Sub(w.start)
	if elapsed >= w.size {
		n := elapsed / w.size
		if n == 1 {
			w.prev = w.curr
		} else {
			w.prev = 0
		}
		w.curr = 0
		w.start = w.start.Add(n * w.size)
		elapsed -= n * w.size
	}
	overlap := float64(w.size-elapsed) / float64(w.size)
	return float64(w.curr) + float64(w.prev)*overlap
}

// Allow counts one request if the window has room.
func (w *Window) Allow() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.advance() >= float64(w.limit) {
		return false
	}
	w.curr++
	return true
}

// Remaining returns the approximate number of requests left, or -1 for a
// nil window.
func (w *Window) Remaining() int {
	if w == nil {
		return -1
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return max(0, int(float64(w.limit)-w.advance()))
}

// Used reports whether any request still counts against the window.
func (w *Window) Used() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.advance() > 0
}

func (w *Window) check() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.advance() < float64(w.limit)
}

func (w *Window) take() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.advance()
	w.curr++
}

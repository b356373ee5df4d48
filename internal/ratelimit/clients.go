package ratelimit

import (
	"sync"
	"time"
)

// Recorder receives limiter metrics.
type Recorder interface {
	RecordRateLimiterDrop(limiterType string)
	SetRateLimiterClients(n int)
}

// ClientConfig configures a ClientLimiter.
type ClientConfig struct {
	// Name labels the limiter in metrics.
	Name       string
	Burst      float64
	RefillRate float64 // tokens per second
	// DailyLimit caps requests per rolling 24h; 0 disables it.
	DailyLimit int
	// CleanupPeriod is how often idle clients are forgotten.
	CleanupPeriod time.Duration
	Metrics       Recorder
}

// DefaultCleanupPeriod applies when ClientConfig.CleanupPeriod is zero.
const DefaultCleanupPeriod = 5 * time.Minute

// ClientLimiter keeps a bucket and an optional daily window per client key.
type ClientLimiter struct {
	cfg     ClientConfig
	now     func() time.Time
	mu      sync.RWMutex
	clients map[string]*client
	stop    chan struct{}
	once    sync.Once
}

type client struct {
	mu     sync.Mutex
	bucket *Bucket
	daily  *Window
}

// NewClientLimiter starts a limiter and its cleanup goroutine; call Stop
// to end it.
func NewClientLimiter(cfg ClientConfig) *ClientLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = DefaultCleanupPeriod
	}
	if cfg.Name == "" {
		cfg.Name = "client"
	}
	l := &ClientLimiter{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*client),
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether key may make a request now, consuming quota when
// it may. Both the bucket and the daily window must have room; neither is
// consumed otherwise. An empty key is never limited.
func (l *ClientLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	c := l.get(key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.daily.check() || !c.bucket.check() {
		if l.cfg.Metrics != nil {
			l.cfg.Metrics.RecordRateLimiterDrop(l.cfg.Name)
		}
		return false
	}
	c.daily.take()
	c.bucket.take()
	return true
}

// RetryAfter returns how long key should wait before its next request.
func (l *ClientLimiter) RetryAfter(key string) time.Duration {
	l.mu.RLock()
	c, ok := l.clients[key]
	l.mu.RUnlock()
	if !ok {
		return 0
	}
	return c.bucket.Delay()
}

// DailyRemaining returns key's remaining daily quota, or -1 when there is
// no daily limit.
func (l *ClientLimiter) DailyRemaining(key string) int {
	if l.cfg.DailyLimit <= 0 {
		return -1
	}
	l.mu.RLock()
	c, ok := l.clients[key]
	l.mu.RUnlock()
	if !ok {
		return l.cfg.DailyLimit
	}
	return c.daily.Remaining()
}

// Clients returns the number of tracked clients.
func (l *ClientLimiter) Clients() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.clients)
}

func (l *ClientLimiter) get(key string) *client {
	l.mu.RLock()
	c, ok := l.clients[key]
	l.mu.RUnlock()
	if ok {
		return c
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok = l.clients[key]; ok {
		return c
	}
	c = &client{
		bucket: newBucket(l.cfg.Burst, l.cfg.RefillRate, l.now),
		daily:  newWindow(l.cfg.DailyLimit, 24*time.Hour, l.now),
	}
	l.clients[key] = c
	return c
}

func (l *ClientLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

// cleanup forgets clients whose bucket is full and whose daily window is
// empty.
func (l *ClientLimiter) cleanup() {
	l.mu.Lock()
	for key, c := range l.clients {
		if c.bucket.Full() && !c.daily.Used() {
			delete(l.clients, key)
		}
	}
	n := len(l.clients)
	l.mu.Unlock()

	if l.cfg.Metrics != nil {
		l.cfg.Metrics.SetRateLimiterClients(n)
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *ClientLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level LLM collectors used by internal/genai. They stay nil until
// InitGlobal is called; callers must nil-check.
var (
	LLMTotal           *prometheus.CounterVec
	LLMDuration        *prometheus.HistogramVec
	LLMFallbackTotal   *prometheus.CounterVec
	LLMFallbackLatency *prometheus.HistogramVec
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Chat endpoint metrics
	ChatRequestsTotal   *prometheus.CounterVec
	ChatDurationSeconds *prometheus.HistogramVec

	// Info repository metrics
	RepositoryQueriesTotal    *prometheus.CounterVec
	RepositoryDurationSeconds *prometheus.HistogramVec
	InfoRecords               prometheus.Gauge

	// Conversational fallback metrics
	DialogueTokens prometheus.Histogram

	// LLM provider metrics
	LLMTotal           *prometheus.CounterVec
	LLMDuration        *prometheus.HistogramVec
	LLMFallbackTotal   *prometheus.CounterVec
	LLMFallbackLatency *prometheus.HistogramVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterClients prometheus.Gauge
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	m := &Metrics{
		ChatRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "college_chat_requests_total",
				Help: "Total number of chat requests by answer path and status",
			},
			[]string{"path", "status"}, // path: info, conversation; status: success, error kind
		),

		ChatDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "college_chat_duration_seconds",
				Help:    "Chat request duration in seconds by answer path",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60}, // Matches 60s chat timeout
			},
			[]string{"path"},
		),

		RepositoryQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "college_repository_queries_total",
				Help: "Total number of info repository queries by intent and status",
			},
			[]string{"intent", "status"},
		),

		RepositoryDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "college_repository_duration_seconds",
				Help:    "Info repository query duration in seconds by intent",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"intent"},
		),

		InfoRecords: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "college_info_records",
				Help: "Number of rows in the info table at last readiness check",
			},
		),

		DialogueTokens: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "college_dialogue_tokens",
				Help:    "Dialogue context length in tokens after each conversational turn",
				Buckets: []float64{16, 32, 64, 128, 256, 512, 768, 1000},
			},
		),

		LLMTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "college_llm_total",
				Help: "Total LLM calls by provider, operation and status",
			},
			[]string{"provider", "operation", "status"},
		),

		LLMDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "college_llm_duration_seconds",
				Help:    "LLM call duration in seconds by provider and operation",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"provider", "operation"},
		),

		LLMFallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "college_llm_fallback_total",
				Help: "Total successful fallbacks between LLM responders",
			},
			[]string{"from", "to", "operation"},
		),

		LLMFallbackLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "college_llm_fallback_latency_seconds",
				Help:    "Total latency of calls that needed a fallback",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"from", "to", "operation"},
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "college_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"}, // limiter_type: client
		),
		RateLimiterClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "college_rate_limiter_clients",
				Help: "Number of clients currently tracked by the chat rate limiter",
			},
		),
	}

	return m
}

// InitGlobal publishes m's LLM collectors to the package-level variables.
func InitGlobal(m *Metrics) {
	if m == nil {
		return
	}
	LLMTotal = m.LLMTotal
	LLMDuration = m.LLMDuration
	LLMFallbackTotal = m.LLMFallbackTotal
	LLMFallbackLatency = m.LLMFallbackLatency
}

// RecordChat records a chat request outcome
func (m *Metrics) RecordChat(path, status string, duration time.Duration) {
	m.ChatRequestsTotal.WithLabelValues(path, status).Inc()
	m.ChatDurationSeconds.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordRepositoryQuery records an info repository query
func (m *Metrics) RecordRepositoryQuery(intent, status string, duration time.Duration) {
	m.RepositoryQueriesTotal.WithLabelValues(intent, status).Inc()
	m.RepositoryDurationSeconds.WithLabelValues(intent).Observe(duration.Seconds())
}

// SetInfoRecords sets the info table row gauge
func (m *Metrics) SetInfoRecords(n int) {
	m.InfoRecords.Set(float64(n))
}

// RecordDialogueTokens records the context length after a conversational turn
func (m *Metrics) RecordDialogueTokens(n int) {
	m.DialogueTokens.Observe(float64(n))
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// SetRateLimiterClients sets the number of tracked rate limiter clients
func (m *Metrics) SetRateLimiterClients(n int) {
	m.RateLimiterClients.Set(float64(n))
}

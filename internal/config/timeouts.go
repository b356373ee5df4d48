package config

import "time"

// HTTP server timeouts. Write must cover ChatProcessing plus encoding.
const (
	HTTPRead  = 10 * time.Second
	HTTPWrite = 65 * time.Second
	HTTPIdle  = 120 * time.Second
)

// ChatProcessing bounds one /chat request, including model fallbacks.
const ChatProcessing = 60 * time.Second

// chatWriteMargin is the minimum gap between the chat timeout and HTTPWrite.
const chatWriteMargin = 5 * time.Second

// ReadinessCheck bounds the /readyz dependency pings.
const ReadinessCheck = 3 * time.Second

// Shutdown steps.
const (
	GracefulShutdown = 30 * time.Second
	SentryFlush      = 2 * time.Second
	LoggerFlush      = 5 * time.Second
)

// SeedDownload bounds fetching a seed file from R2.
const SeedDownload = 2 * time.Minute

// MetricsUpdate is how often gauges backed by store queries are refreshed.
const MetricsUpdate = 5 * time.Minute

// Package sentry wires the Sentry SDK for error reporting. Events can go to
// any Sentry DSN or to Better Stack Errors, which speaks the Sentry protocol.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds Sentry configuration.
type Config struct {
	// DSN takes precedence over Token and Host.
	DSN string

	// Token and Host describe a Better Stack Errors application; the DSN
	// becomes https://$TOKEN@$HOST/1.
	Token string
	Host  string

	Environment string
	Release     string

	// SampleRate controls error sampling (0.0-1.0, default 1.0).
	SampleRate float64
	Debug      bool
}

// ResolveDSN returns the DSN to report to, or "" when reporting is off.
func (c Config) ResolveDSN() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	if c.Token == "" {
		return "", nil
	}
	if c.Host == "" {
		return "", errors.New("sentry host is required when token is provided")
	}
	// The project id is required by the SDK and ignored by Better Stack.
	return fmt.Sprintf("https://%s@%s/1", c.Token, c.Host), nil
}

// Initialize sets up the Sentry SDK. Without a DSN or token it does
// nothing and returns nil.
func Initialize(cfg Config) error {
	dsn, err := cfg.ResolveDSN()
	if err != nil || dsn == "" {
		return err
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
}

// Flush waits for buffered events to be sent to the server.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureError reports err on the hub attached to ctx (set by the gin
// middleware) or the global hub, tagged with tags.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

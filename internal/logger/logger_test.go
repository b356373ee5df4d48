package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/abccollege/college-chatbot-go/internal/ctxutil"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := New(tt.level)
			if got := log.GetLevel(); got != tt.want {
				t.Errorf("New(%q) level = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Warn("test message")

	entry := decode(t, &buf)
	for _, field := range []string{"timestamp", "level", "message"} {
		if _, ok := entry[field]; !ok {
			t.Errorf("JSON log missing required field %q", field)
		}
	}
	if entry["message"] != "test message" {
		t.Errorf("message = %v, want %q", entry["message"], "test message")
	}
	if entry["level"] != "warning" {
		t.Errorf("level = %v, want %q", entry["level"], "warning")
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithModule("chat").
		WithRequestID("req-123").
		WithError(errors.New("boom")).
		WithField("path", "info").
		WithFields(map[string]any{"status": 200}).
		Info("done")

	entry := decode(t, &buf)
	want := map[string]any{
		"module":     "chat",
		"request_id": "req-123",
		"error":      "boom",
		"path":       "info",
		"status":     float64(200),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestLogger_ContextValues(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	ctx := ctxutil.WithRequestID(context.Background(), "req-9")
	ctx = ctxutil.WithSessionID(ctx, "s-1")
	log.InfoContext(ctx, "hello")

	entry := decode(t, &buf)
	if entry["request_id"] != "req-9" {
		t.Errorf("request_id = %v, want req-9", entry["request_id"])
	}
	if entry["session_id"] != "s-1" {
		t.Errorf("session_id = %v, want s-1", entry["session_id"])
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)
	child := log.WithModule("x")

	child.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written at info level: %s", buf.String())
	}

	if err := log.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel(debug) error = %v", err)
	}
	child.Debug("shown")
	if buf.Len() == 0 {
		t.Error("derived logger should follow the new level")
	}

	if err := log.SetLevel("invalid"); err == nil {
		t.Error("SetLevel(invalid) error = nil, want error")
	}
}

func TestLogger_ShutdownWithoutShipping(t *testing.T) {
	log := New("info")
	if err := log.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
}

func TestLogger_BetterStack(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{
		Level:               "info",
		Writer:              &buf,
		BetterStackToken:    "token",
		BetterStackEndpoint: "http://127.0.0.1:1/",
	})
	if log.async == nil {
		t.Fatal("async handler should be set up with a token")
	}

	log.Info("shipped")
	if buf.Len() == 0 {
		t.Error("local output must still be written")
	}
	_ = log.Shutdown(context.Background())
}

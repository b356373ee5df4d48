package sentry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ResolveDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{name: "disabled", cfg: Config{}},
		{name: "explicit dsn", cfg: Config{DSN: "https://k@sentry.example.com/7", Token: "t"}, want: "https://k@sentry.example.com/7"},
		{name: "better stack", cfg: Config{Token: "tok", Host: "errors.betterstack.com"}, want: "https://tok@errors.betterstack.com/1"},
		{name: "token without host", cfg: Config{Token: "tok"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.cfg.ResolveDSN()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitialize_Disabled(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Initialize(Config{}))
	assert.Error(t, Initialize(Config{Token: "tok"}))
}

func TestCaptureError(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn: "https://key@sentry.example.com/1",
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)

	hub := sentry.NewHub(client, sentry.NewScope())
	ctx := sentry.SetHubOnContext(context.Background(), hub)

	CaptureError(ctx, errors.New("db down"), map[string]string{"kind": "repository_connection"})
	CaptureError(ctx, nil, nil)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "repository_connection", events[0].Tags["kind"])
	require.NotEmpty(t, events[0].Exception)
	assert.Equal(t, "db down", events[0].Exception[len(events[0].Exception)-1].Value)
}

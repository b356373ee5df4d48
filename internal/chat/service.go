// Package chat answers chat messages: college questions are looked up in the
// info repository, everything else goes to the conversational fallback.
package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/abccollege/college-chatbot-go/internal/format"
	"github.com/abccollege/college-chatbot-go/internal/intent"
	"github.com/abccollege/college-chatbot-go/internal/storage"
)

// Path labels which branch answered a message.
type Path string

const (
	PathInfo         Path = "info"
	PathConversation Path = "conversation"
)

// Replier continues a session's dialogue.
type Replier interface {
	Reply(ctx context.Context, sessionID, text string) (string, error)
}

// MetricsRecorder records answered messages.
type MetricsRecorder interface {
	RecordChat(path, status string, duration time.Duration)
}

// Request is one incoming chat message.
type Request struct {
	Message   string
	SessionID string
}

// Service routes messages to the info repository or the fallback.
type Service struct {
	repo     storage.InfoRepository
	fallback Replier
	metrics  MetricsRecorder
}

// NewService creates a Service. metrics may be nil.
func NewService(repo storage.InfoRepository, fallback Replier, metrics MetricsRecorder) *Service {
	return &Service{repo: repo, fallback: fallback, metrics: metrics}
}

// Reply answers req.
func (s *Service) Reply(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	res := intent.Classify(req.Message)

	path := PathConversation
	var (
		reply string
		err   error
	)
	if res.HasIntent() {
		path = PathInfo
		reply, err = s.lookup(ctx, res)
	} else {
		reply, err = s.fallback.Reply(ctx, req.SessionID, req.Message)
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	if s.metrics != nil {
		s.metrics.RecordChat(string(path), status, time.Since(start))
	}
	slog.DebugContext(ctx, "chat message answered",
		"path", path,
		"intent", res.Intent,
		"department", res.Department,
		"status", status)
	return reply, err
}

func (s *Service) lookup(ctx context.Context, res intent.Result) (string, error) {
	records, err := s.repo.FindInfo(ctx, res.Intent, res.Department)
	if err != nil {
		return "", err
	}
	return format.Format(records, res.Intent), nil
}

package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/abccollege/college-chatbot-go/internal/ctxutil"
	domerrors "github.com/abccollege/college-chatbot-go/internal/errors"
	"github.com/abccollege/college-chatbot-go/internal/ratelimit"
	"github.com/abccollege/college-chatbot-go/internal/sentry"
)

// SessionHeader may carry the session id when the body does not.
const SessionHeader = "X-Session-ID"

const (
	DefaultMaxMessageLength = 2000
	maxSessionIDLength      = 128
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// HandlerConfig configures NewHandler.
type HandlerConfig struct {
	Service *Service
	// MaxMessageLength is in runes; 0 means DefaultMaxMessageLength.
	MaxMessageLength int
	// Timeout bounds one request; 0 disables it.
	Timeout time.Duration
}

// Handler serves POST /chat.
type Handler struct {
	service          *Service
	maxMessageLength int
	timeout          time.Duration
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}
	return &Handler{
		service:          cfg.Service,
		maxMessageLength: cfg.MaxMessageLength,
		timeout:          cfg.Timeout,
	}
}

// Handle is the gin handler for POST /chat.
func (h *Handler) Handle(c *gin.Context) {
	w := domerrors.NewWrapper("chat", "handle")

	var req chatRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		msg := "request body must be a JSON object"
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		WriteError(c, w.Wrap(domerrors.KindValidation, domerrors.NewValidationError("body", msg)))
		return
	}
	// The decoder swaps invalid bytes for U+FFFD, so check what was sent.
	if raw, ok := c.Get(gin.BodyBytesKey); ok {
		if body, _ := raw.([]byte); !utf8.Valid(body) {
			WriteError(c, w.Wrap(domerrors.KindValidation,
				domerrors.NewValidationError("body", "request body is not valid UTF-8")))
			return
		}
	}
	if req.SessionID == "" {
		req.SessionID = c.GetHeader(SessionHeader)
	}
	if err := h.validate(req); err != nil {
		WriteError(c, w.Wrap(domerrors.KindValidation, err))
		return
	}

	ctx := c.Request.Context()
	if req.SessionID != "" {
		ctx = ctxutil.WithSessionID(ctx, req.SessionID)
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	reply, err := h.service.Reply(ctx, Request{Message: req.Message, SessionID: req.SessionID})
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, chatResponse{Response: reply})
}

func (h *Handler) validate(req chatRequest) error {
	if n := utf8.RuneCountInString(req.Message); n > h.maxMessageLength {
		return domerrors.NewValidationError("message",
			"message is longer than "+strconv.Itoa(h.maxMessageLength)+" characters")
	}
	if len(req.SessionID) > maxSessionIDLength {
		return domerrors.NewValidationError("session_id",
			"session_id is longer than "+strconv.Itoa(maxSessionIDLength)+" bytes")
	}
	return nil
}

// WriteError maps err to its status code and writes the error body. Server
// side failures are logged and reported to Sentry.
func WriteError(c *gin.Context, err error) {
	kind := domerrors.KindOf(err)
	status := kind.HTTPStatus()
	ctx := c.Request.Context()

	if kind.ServerSide() {
		slog.ErrorContext(ctx, "chat request failed",
			"kind", kind.String(),
			"status", status,
			"error", err)
		sentry.CaptureError(ctx, err, map[string]string{"kind": kind.String()})
	} else {
		slog.InfoContext(ctx, "chat request rejected",
			"kind", kind.String(),
			"status", status,
			"error", err)
	}

	c.AbortWithStatusJSON(status, errorBody{Error: errorDetail{
		Kind:    kind.String(),
		Message: domerrors.UserMessage(err),
	}})
}

// RateLimit rejects clients, keyed by IP, that exceed limiter.
func RateLimit(limiter *ratelimit.ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if limiter.Allow(key) {
			c.Next()
			return
		}
		if d := limiter.RetryAfter(key); d > 0 {
			c.Header("Retry-After", strconv.Itoa(int((d+time.Second-1)/time.Second)))
		}
		WriteError(c, domerrors.E(domerrors.KindRateLimited, "chat.rate_limit", domerrors.ErrRateLimitExceeded))
	}
}

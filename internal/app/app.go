// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/abccollege/college-chatbot-go/internal/buildinfo"
	"github.com/abccollege/college-chatbot-go/internal/chat"
	"github.com/abccollege/college-chatbot-go/internal/config"
	"github.com/abccollege/college-chatbot-go/internal/conversation"
	"github.com/abccollege/college-chatbot-go/internal/genai"
	"github.com/abccollege/college-chatbot-go/internal/logger"
	"github.com/abccollege/college-chatbot-go/internal/metrics"
	"github.com/abccollege/college-chatbot-go/internal/ratelimit"
	"github.com/abccollege/college-chatbot-go/internal/sentry"
	"github.com/abccollege/college-chatbot-go/internal/storage"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg       *config.Config
	logger    *logger.Logger
	db        *storage.DB
	store     conversation.Store
	responder *genai.FallbackResponder // nil without an LLM provider
	limiter   *ratelimit.ClientLimiter
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	router    *gin.Engine
	server    *http.Server
	wg        sync.WaitGroup // background jobs
}

// Initialize creates and initializes a new application with all dependencies.
// Components opened before a failure are closed again.
func Initialize(ctx context.Context, cfg *config.Config) (_ *Application, err error) {
	log := logger.NewWithOptions(logger.Options{
		Level:               cfg.LogLevel,
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", "college-chatbot-go")
	if host, herr := os.Hostname(); herr == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog.*Context calls pick up request and session ids
	// through the ContextHandler.
	slog.SetDefault(log.Logger)

	log.WithField("version", buildinfo.Version).Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	if serr := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.Environment,
		Release:     buildinfo.Version,
		SampleRate:  cfg.SentrySampleRate,
	}); serr != nil {
		log.WithError(serr).Warn("Sentry initialization failed")
	} else if sentry.IsEnabled() {
		log.Info("Sentry error reporting enabled")
	}

	a := &Application{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	a.db, err = storage.Open(ctx, storage.Options{
		Driver:       storage.Driver(cfg.DBDriver),
		DSN:          cfg.DatabaseDSN(),
		Table:        cfg.DBTable,
		AutoMigrate:  cfg.DBAutoMigrate,
		MaxOpenConns: cfg.DBMaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("driver", cfg.DBDriver).WithField("table", cfg.DBTable).Info("Database connected")

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	a.metrics = metrics.New(a.registry)

	// genai records provider outcomes through the global instance.
	metrics.InitGlobal(a.metrics)
	a.db.SetMetrics(a.metrics)
	a.recordInfoRecords(ctx)

	tokenizer, err := genai.NewTiktokenTokenizer(cfg.TokenizerEncoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}

	var model genai.Model
	if cfg.HasLLMProvider() {
		responder, rerr := genai.CreateResponder(ctx, buildLLMConfig(cfg))
		if rerr != nil {
			log.WithError(rerr).Warn("Conversation responder initialization failed")
		}
		if responder != nil {
			a.responder = responder
			model = genai.NewChatModel(tokenizer, responder)
			log.WithField("primary", responder.Provider().String()).
				WithField("chain_size", responder.Len()).
				Info("Conversational fallback enabled")
		}
	}
	if model == nil {
		log.Warn("No LLM provider configured; conversational messages will fail")
	}

	a.store, err = openSessionStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	log.WithField("backend", cfg.SessionStore).WithField("ttl", cfg.SessionTTL.String()).Info("Session store ready")

	fallback := conversation.NewFallback(tokenizer, model, a.store,
		conversation.WithMaxLength(cfg.DialogueMaxLength),
		conversation.WithMetrics(a.metrics),
	)
	chatHandler := chat.NewHandler(chat.HandlerConfig{
		Service:          chat.NewService(a.db, fallback, a.metrics),
		MaxMessageLength: cfg.MaxMessageLength,
		Timeout:          cfg.ChatTimeout,
	})

	a.limiter = ratelimit.NewClientLimiter(ratelimit.ClientConfig{
		Name:       "chat",
		Burst:      cfg.ChatRateBurst,
		RefillRate: cfg.ChatRateRefill,
		DailyLimit: cfg.ChatRateDaily,
		Metrics:    a.metrics,
	})

	gin.SetMode(gin.ReleaseMode)
	if err = a.setupRouter(chatHandler); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	a.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return a, nil
}

// openSessionStore opens the dialogue store selected by cfg.SessionStore.
func openSessionStore(ctx context.Context, cfg *config.Config) (conversation.Store, error) {
	if cfg.SessionStore != config.SessionStoreRedis {
		return conversation.NewMemoryStore(cfg.SessionCacheSize, cfg.SessionTTL), nil
	}
	store, err := conversation.NewRedisStoreFromURL(ctx, cfg.RedisURL, cfg.RedisKeyPrefix, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// buildLLMConfig creates an LLMConfig from the application config.
func buildLLMConfig(cfg *config.Config) genai.LLMConfig {
	llmCfg := genai.DefaultLLMConfig()

	llmCfg.Gemini.APIKey = cfg.GeminiAPIKey
	llmCfg.Groq.APIKey = cfg.GroqAPIKey
	llmCfg.Cerebras.APIKey = cfg.CerebrasAPIKey

	if len(cfg.GeminiModels) > 0 {
		llmCfg.Gemini.Models = cfg.GeminiModels
	}
	if len(cfg.GroqModels) > 0 {
		llmCfg.Groq.Models = cfg.GroqModels
	}
	if len(cfg.CerebrasModels) > 0 {
		llmCfg.Cerebras.Models = cfg.CerebrasModels
	}
	if cfg.LLMMaxOutputTokens > 0 {
		llmCfg.MaxOutputTokens = cfg.LLMMaxOutputTokens
	}
	llmCfg.SystemPrompt = cfg.LLMSystemPrompt

	if len(cfg.LLMProviders) > 0 {
		providers := make([]genai.Provider, 0, len(cfg.LLMProviders))
		for _, name := range cfg.LLMProviders {
			p, ok := genai.ParseProvider(name)
			if !ok {
				slog.Warn("ignoring unknown provider", "name", name)
				continue
			}
			providers = append(providers, p)
		}
		if len(providers) > 0 {
			llmCfg.Providers = providers
		}
	}

	return llmCfg
}

// setupRouter builds the gin engine. Recovery wraps the Sentry middleware
// so re-panics still end in a 500. Only cfg.TrustedProxies may set the
// client IP through forwarding headers; it keys the rate limiter.
func (a *Application) setupRouter(chatHandler *chat.Handler) error {
	router := gin.New()
	if err := router.SetTrustedProxies(a.cfg.TrustedProxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	router.Use(requestIDMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(corsMiddleware(a.cfg.CORSOrigins))
	router.Use(loggingMiddleware(a.logger))

	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.POST("/chat", chat.RateLimit(a.limiter), chatHandler.Handle)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsAuthEnabled, a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	a.router = router
	return nil
}

// Handler returns the HTTP handler serving every route.
func (a *Application) Handler() http.Handler {
	return a.router
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) features() map[string]bool {
	return map[string]bool{
		"conversation":   a.responder != nil,
		"redis_sessions": a.cfg.SessionStore == config.SessionStoreRedis,
		"daily_quota":    a.cfg.ChatRateDaily > 0,
		"error_tracking": sentry.IsEnabled(),
	}
}

// readinessCheck pings the info store and the session store concurrently.
func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.db.Ping(gctx); err != nil {
			return &unavailableError{component: "database", err: err}
		}
		return nil
	})
	g.Go(func() error {
		if err := a.store.Ping(gctx); err != nil {
			return &unavailableError{component: "session store", err: err}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		reason := "dependency unavailable"
		var ue *unavailableError
		if errors.As(err, &ue) {
			reason = ue.component + " unavailable"
		}
		a.logger.WithError(err).Warn("Readiness check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": reason,
		})
		return
	}

	body := gin.H{
		"status":        "ready",
		"database":      "connected",
		"session_store": a.cfg.SessionStore,
		"features":      a.features(),
		"version":       buildinfo.Version,
		"commit":        buildinfo.Commit,
		"build_date":    buildinfo.BuildDate,
	}
	if n, err := a.db.CountInfoRecords(ctx); err == nil {
		body["info_records"] = n
	} else {
		a.logger.WithError(err).Warn("Failed to count info records for readiness")
	}
	c.JSON(http.StatusOK, body)
}

type unavailableError struct {
	component string
	err       error
}

func (e *unavailableError) Error() string {
	return e.component + " unavailable: " + e.err.Error()
}

func (e *unavailableError) Unwrap() error { return e.err }

// Run starts the HTTP server and background jobs, then blocks until
// SIGINT/SIGTERM or a server failure.
//
// Shutdown order: cancel background jobs and wait for them, stop the HTTP
// server, then close resources.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	serverErr := a.startHTTPServer()

	var runErr error
	select {
	case sig := <-a.waitForShutdownSignal():
		a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return errors.Join(runErr, a.shutdown())
}

func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.updateInfoRecordMetrics(ctx)
	})
}

// startHTTPServer starts the HTTP server in a goroutine. The returned
// channel receives an error if the listener fails.
func (a *Application) startHTTPServer() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
			errCh <- err
		}
	}()
	return errCh
}

func (a *Application) waitForShutdownSignal() <-chan os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return quit
}

// shutdown stops accepting requests, waits for in-flight ones and closes
// resources. Call it after background jobs have returned.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Closing resources...")
	a.closeResources()

	if !sentry.Flush(config.SentryFlush) && sentry.IsEnabled() {
		a.logger.Warn("Sentry flush timed out")
	}

	a.logger.Info("Shutdown complete")

	flushCtx, flushCancel := context.WithTimeout(context.Background(), config.LoggerFlush)
	defer flushCancel()
	if err := a.logger.Shutdown(flushCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}
	return nil
}

// closeResources releases whatever has been opened so far.
func (a *Application) closeResources() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.responder != nil {
		if err := a.responder.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "responder").Error("Component close error")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "session_store").Error("Component close error")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "database").Error("Component close error")
		}
	}
}

// updateInfoRecordMetrics periodically refreshes the info row gauge, so
// rows added by the seed command show up without a restart.
func (a *Application) updateInfoRecordMetrics(ctx context.Context) {
	a.logger.Debug("Info metrics job started")
	defer a.logger.Debug("Info metrics job stopped")

	ticker := time.NewTicker(config.MetricsUpdate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.recordInfoRecords(ctx)
		}
	}
}

func (a *Application) recordInfoRecords(ctx context.Context) {
	if a.metrics == nil {
		return
	}
	n, err := a.db.CountInfoRecords(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to count info records")
		return
	}
	a.metrics.SetInfoRecords(n)
}

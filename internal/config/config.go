// Package config provides application configuration management.
// It loads settings from a .env file and COLLEGE_* environment variables,
// applies defaults and validates the result.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ValidationMode selects which settings are required.
type ValidationMode int

const (
	// ServerMode validates everything the chat server needs.
	ServerMode ValidationMode = iota
	// SeedMode validates what the seed command needs.
	SeedMode
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	Environment     string
	CORSOrigins     []string // "*" allows every origin
	// TrustedProxies are the IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty: the client IP is the peer address.
	TrustedProxies  []string

	// Info store
	DataDir        string
	DBDriver       string // "sqlite" or "postgres"
	DBDSN          string // empty: SQLite file under DataDir
	DBTable        string
	DBAutoMigrate  bool
	DBMaxOpenConns int

	// Dialogue sessions
	SessionStore     string
	SessionCacheSize int
	SessionTTL       time.Duration
	RedisURL         string
	RedisKeyPrefix   string

	// Chat
	ChatTimeout       time.Duration
	MaxMessageLength  int // in characters
	TokenizerEncoding string
	DialogueMaxLength int // in tokens

	// Per-client rate limit
	ChatRateBurst  float64
	ChatRateRefill float64 // tokens per second
	ChatRateDaily  int     // 0 disables the daily quota

	// LLM
	LLMProviders       []string
	LLMMaxOutputTokens int
	LLMSystemPrompt    string
	GeminiAPIKey       string
	GroqAPIKey         string
	CerebrasAPIKey     string
	GeminiModels       []string // empty: package defaults
	GroqModels         []string
	CerebrasModels     []string

	// Seed data
	SeedPath          string
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2SeedKey         string

	// Error reporting and log shipping
	SentryDSN           string
	SentryToken         string
	SentryHost          string
	SentrySampleRate    float64
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics endpoint Basic Auth
	MetricsAuthEnabled bool
	MetricsUsername    string
	MetricsPassword    string
}

// Load reads the configuration for the chat server.
func Load() (*Config, error) {
	return LoadForMode(ServerMode)
}

// LoadForMode reads the configuration and validates it for mode.
// A missing .env file is not an error.
func LoadForMode(mode ValidationMode) (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv(EnvDataDir, defaultDataDir())
	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		Environment:     getEnv(EnvEnvironment, "production"),
		CORSOrigins:     getListEnv(EnvCORSOrigins, []string{"*"}),
		TrustedProxies:  getListEnv(EnvTrustedProxies, nil),

		DataDir:        dataDir,
		DBDriver:       strings.ToLower(getEnv(EnvDBDriver, "sqlite")),
		DBDSN:          getEnv(EnvDBDSN, ""),
		DBTable:        getEnv(EnvDBTable, "abc_college"),
		DBAutoMigrate:  getBoolEnv(EnvDBAutoMigrate, true),
		DBMaxOpenConns: getIntEnv(EnvDBMaxOpenConns, 10),

		SessionStore:     strings.ToLower(getEnv(EnvSessionStore, SessionStoreMemory)),
		SessionCacheSize: getIntEnv(EnvSessionCacheSize, 10000),
		SessionTTL:       getDurationEnv(EnvSessionTTL, 24*time.Hour),
		RedisURL:         getEnv(EnvRedisURL, ""),
		RedisKeyPrefix:   getEnv(EnvRedisKeyPrefix, "college:dialogue:"),

		ChatTimeout:       getDurationEnv(EnvChatTimeout, ChatProcessing),
		MaxMessageLength:  getIntEnv(EnvMaxMessageLength, 2000),
		TokenizerEncoding: getEnv(EnvTokenizerEncoding, "cl100k_base"),
		DialogueMaxLength: getIntEnv(EnvDialogueMaxLength, 1000),

		ChatRateBurst:  getFloatEnv(EnvChatRateBurst, 10),
		ChatRateRefill: getFloatEnv(EnvChatRateRefill, 0.5),
		ChatRateDaily:  getIntEnv(EnvChatRateDaily, 0),

		LLMProviders:       getListEnv(EnvLLMProviders, []string{"gemini", "groq", "cerebras"}),
		LLMMaxOutputTokens: getIntEnv(EnvLLMMaxOutputTokens, 256),
		LLMSystemPrompt:    getEnv(EnvLLMSystemPrompt, ""),
		GeminiAPIKey:       getEnv(EnvGeminiAPIKey, ""),
		GroqAPIKey:         getEnv(EnvGroqAPIKey, ""),
		CerebrasAPIKey:     getEnv(EnvCerebrasAPIKey, ""),
		GeminiModels:       getListEnv(EnvGeminiModels, nil),
		GroqModels:         getListEnv(EnvGroqModels, nil),
		CerebrasModels:     getListEnv(EnvCerebrasModels, nil),

		SeedPath:          getEnv(EnvSeedPath, filepath.Join(dataDir, "seed.yaml")),
		R2AccountID:       getEnv(EnvR2AccountID, ""),
		R2AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
		R2BucketName:      getEnv(EnvR2BucketName, ""),
		R2SeedKey:         getEnv(EnvR2SeedKey, "seed/abc_college.yaml.zst"),

		SentryDSN:           getEnv(EnvSentryDSN, ""),
		SentryToken:         getEnv(EnvSentryToken, ""),
		SentryHost:          getEnv(EnvSentryHost, ""),
		SentrySampleRate:    getFloatEnv(EnvSentrySampleRate, 1.0),
		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		MetricsAuthEnabled: getBoolEnv(EnvMetricsAuthEnabled, false),
		MetricsUsername:    getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:    getEnv(EnvMetricsPassword, ""),
	}

	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for the chat server.
func (c *Config) Validate() error {
	return c.ValidateForMode(ServerMode)
}

// ValidateForMode reports every problem at once, joined.
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("%s must be sqlite or postgres, got %q", EnvDBDriver, c.DBDriver))
	}
	if c.DBDriver == "postgres" && c.DBDSN == "" {
		errs = append(errs, fmt.Errorf("%s is required for postgres", EnvDBDSN))
	}
	if c.DBDSN == "" && c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
	}
	if c.DBTable == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDBTable))
	}
	if c.R2Enabled() && (c.R2AccessKeyID == "" || c.R2SecretAccessKey == "" || c.R2BucketName == "") {
		errs = append(errs, fmt.Errorf("%s, %s and %s are required with %s",
			EnvR2AccessKeyID, EnvR2SecretAccessKey, EnvR2BucketName, EnvR2AccountID))
	}

	if mode == ServerMode {
		errs = append(errs, c.validateServer()...)
	}

	return errors.Join(errs...)
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
	}
	for _, p := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an IP or CIDR", EnvTrustedProxies, p))
		}
	}

	switch c.SessionStore {
	case SessionStoreMemory:
		if c.SessionCacheSize <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvSessionCacheSize, c.SessionCacheSize))
		}
	case SessionStoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, fmt.Errorf("%s is required for the redis session store", EnvRedisURL))
		}
	default:
		errs = append(errs, fmt.Errorf("%s must be memory or redis, got %q", EnvSessionStore, c.SessionStore))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvSessionTTL, c.SessionTTL))
	}

	if c.ChatTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvChatTimeout, c.ChatTimeout))
	}
	// The reply has to be written before the server's write deadline.
	if c.ChatTimeout > HTTPWrite-chatWriteMargin {
		errs = append(errs, fmt.Errorf("%s must be at most %v, got %v",
			EnvChatTimeout, HTTPWrite-chatWriteMargin, c.ChatTimeout))
	}
	if c.MaxMessageLength <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvMaxMessageLength, c.MaxMessageLength))
	}
	if c.DialogueMaxLength <= 1 {
		errs = append(errs, fmt.Errorf("%s must be greater than 1, got %d", EnvDialogueMaxLength, c.DialogueMaxLength))
	}
	if c.ChatRateBurst < 1 || c.ChatRateRefill <= 0 {
		errs = append(errs, fmt.Errorf("%s must be at least 1 and %s positive", EnvChatRateBurst, EnvChatRateRefill))
	}
	if c.ChatRateDaily < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvChatRateDaily, c.ChatRateDaily))
	}

	for _, p := range c.LLMProviders {
		if !slices.Contains([]string{"gemini", "groq", "cerebras"}, p) {
			errs = append(errs, fmt.Errorf("%s: unknown provider %q", EnvLLMProviders, p))
		}
	}

	if c.MetricsAuthEnabled && c.MetricsPassword == "" {
		errs = append(errs, fmt.Errorf("%s is required when metrics auth is enabled", EnvMetricsPassword))
	}
	if c.SentryToken != "" && c.SentryHost == "" && c.SentryDSN == "" {
		errs = append(errs, fmt.Errorf("%s is required with %s", EnvSentryHost, EnvSentryToken))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", EnvSentrySampleRate, c.SentrySampleRate))
	}

	return errs
}

// DatabaseDSN returns DBDSN, or the SQLite file under DataDir.
func (c *Config) DatabaseDSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	return filepath.Join(c.DataDir, "college.db")
}

// R2Enabled reports whether seed files may be fetched from R2.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != ""
}

// HasLLMProvider reports whether any provider has an API key.
func (c *Config) HasLLMProvider() bool {
	return c.GeminiAPIKey != "" || c.GroqAPIKey != "" || c.CerebrasAPIKey != ""
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated value, trimming blanks.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func defaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

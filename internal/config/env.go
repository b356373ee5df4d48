package config

//nolint:gosec // Environment variable keys are not credentials.
const (
	// Server
	EnvPort            = "COLLEGE_PORT"
	EnvLogLevel        = "COLLEGE_LOG_LEVEL"
	EnvShutdownTimeout = "COLLEGE_SHUTDOWN_TIMEOUT"
	EnvEnvironment     = "COLLEGE_ENVIRONMENT"
	EnvCORSOrigins     = "COLLEGE_CORS_ORIGINS"
	EnvTrustedProxies  = "COLLEGE_TRUSTED_PROXIES"

	// Info store
	EnvDataDir        = "COLLEGE_DATA_DIR"
	EnvDBDriver       = "COLLEGE_DB_DRIVER"
	EnvDBDSN          = "COLLEGE_DB_DSN"
	EnvDBTable        = "COLLEGE_DB_TABLE"
	EnvDBAutoMigrate  = "COLLEGE_DB_AUTO_MIGRATE"
	EnvDBMaxOpenConns = "COLLEGE_DB_MAX_OPEN_CONNS"

	// Dialogue sessions
	EnvSessionStore     = "COLLEGE_SESSION_STORE"
	EnvSessionCacheSize = "COLLEGE_SESSION_CACHE_SIZE"
	EnvSessionTTL       = "COLLEGE_SESSION_TTL"
	EnvRedisURL         = "COLLEGE_REDIS_URL"
	EnvRedisKeyPrefix   = "COLLEGE_REDIS_KEY_PREFIX"

	// Chat
	EnvChatTimeout       = "COLLEGE_CHAT_TIMEOUT"
	EnvMaxMessageLength  = "COLLEGE_MAX_MESSAGE_LENGTH"
	EnvTokenizerEncoding = "COLLEGE_TOKENIZER_ENCODING"
	EnvDialogueMaxLength = "COLLEGE_DIALOGUE_MAX_LENGTH"

	// Rate limits
	EnvChatRateBurst  = "COLLEGE_CHAT_RATE_BURST"
	EnvChatRateRefill = "COLLEGE_CHAT_RATE_REFILL"
	EnvChatRateDaily  = "COLLEGE_CHAT_RATE_DAILY"

	// LLM
	EnvLLMProviders       = "COLLEGE_LLM_PROVIDERS"
	EnvLLMMaxOutputTokens = "COLLEGE_LLM_MAX_OUTPUT_TOKENS"
	EnvLLMSystemPrompt    = "COLLEGE_LLM_SYSTEM_PROMPT"
	EnvGeminiAPIKey       = "COLLEGE_GEMINI_API_KEY"
	EnvGroqAPIKey         = "COLLEGE_GROQ_API_KEY"
	EnvCerebrasAPIKey     = "COLLEGE_CEREBRAS_API_KEY"
	EnvGeminiModels       = "COLLEGE_GEMINI_MODELS"
	EnvGroqModels         = "COLLEGE_GROQ_MODELS"
	EnvCerebrasModels     = "COLLEGE_CEREBRAS_MODELS"

	// Seed data
	EnvSeedPath          = "COLLEGE_SEED_PATH"
	EnvR2AccountID       = "COLLEGE_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "COLLEGE_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "COLLEGE_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "COLLEGE_R2_BUCKET_NAME"
	EnvR2SeedKey         = "COLLEGE_R2_SEED_KEY"

	// Sentry
	EnvSentryDSN        = "COLLEGE_SENTRY_DSN"
	EnvSentryToken      = "COLLEGE_SENTRY_TOKEN"
	EnvSentryHost       = "COLLEGE_SENTRY_HOST"
	EnvSentrySampleRate = "COLLEGE_SENTRY_SAMPLE_RATE"

	// Better Stack
	EnvBetterStackToken    = "COLLEGE_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "COLLEGE_BETTERSTACK_ENDPOINT"

	// Metrics
	EnvMetricsAuthEnabled = "COLLEGE_METRICS_AUTH_ENABLED"
	EnvMetricsUsername    = "COLLEGE_METRICS_USERNAME"
	EnvMetricsPassword    = "COLLEGE_METRICS_PASSWORD"
)

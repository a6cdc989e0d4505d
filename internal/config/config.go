package config

import (
	"os"
	"strconv"
	"time"
)

// Suggestion modes
const (
	SuggestModeStub   = "stub"
	SuggestModeLLM    = "llm"
	SuggestModeRemote = "remote"
)

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string
	CORSOrigin  string

	// Suggestions
	SuggestMode     string // "stub", "llm" or "remote"
	SuggestEndpoint string // remote /api/llama3 URL when SuggestMode is "remote"

	// LLM
	LLMProvider    string // "llama", "openai" or "gemini"; empty infers from the model
	LLMBaseURL     string // OpenAI-compatible server, e.g. http://localhost:11434/v1
	LLMAPIKey      string
	LLMModel       string
	LLMStructured  bool // send a JSON schema instead of plain JSON mode
	GeminiAPIKey   string
	SuggestTimeout time.Duration

	// Editor
	MeasureCapacity string // "fixed" or "time-signature"
	ClickWindow     time.Duration
	SessionSecret   string
	SessionIdleTTL  time.Duration // idle sessions older than this are dropped; 0 keeps them

	// Playback
	MIDIOutput  string // substring of a MIDI output name; empty disables server playback
	MIDIChannel int

	// Storage
	DatabaseURL string // empty keeps saved scores in memory

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse
	MetricsNamespace  string // CloudWatch namespace, production only
}

func Load() *Config {
	return &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		Port:              getEnv("PORT", "8080"),
		CORSOrigin:        getEnv("CORS_ORIGIN", "*"),
		SuggestMode:       getEnv("SUGGEST_MODE", SuggestModeStub),
		SuggestEndpoint:   getEnv("SUGGEST_ENDPOINT", ""),
		LLMProvider:       getEnv("LLM_PROVIDER", ""),
		LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMModel:          getEnv("LLM_MODEL", "llama3"),
		LLMStructured:     getEnv("LLM_STRUCTURED_OUTPUT", "false") == "true",
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		SuggestTimeout:    time.Duration(getEnvInt("SUGGEST_TIMEOUT_SECONDS", 60)) * time.Second,
		MeasureCapacity:   getEnv("MEASURE_CAPACITY", "fixed"),
		ClickWindow:       time.Duration(getEnvInt("CLICK_WINDOW_MS", 250)) * time.Millisecond,
		SessionSecret:     getEnv("SESSION_SECRET", "lyric-mind-dev-secret"),
		SessionIdleTTL:    time.Duration(getEnvInt("SESSION_IDLE_TTL_MINUTES", 120)) * time.Minute,
		MIDIOutput:        getEnv("MIDI_OUTPUT", ""),
		MIDIChannel:       getEnvInt("MIDI_CHANNEL", 0),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		LangfusePublicKey: getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey: getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:      getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:   getEnv("LANGFUSE_ENABLED", "false") == "true",
		MetricsNamespace:  getEnv("METRICS_NAMESPACE", "LyricMind"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// IsProduction reports whether production-only integrations should run
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

package config

import (
	"os"
	"strconv"
)

// Config centralizes runtime settings for the API and workers.
type Config struct {
	Port string

	AuthToken string

	ResultsDir string
	UploadsDir string

	DatabaseURL string

	OpenRouterAPIKey         string
	OpenRouterBaseURL        string
	OpenRouterTimeoutMS      int
	OpenRouterMaxRetries     int
	OpenRouterSiteURL        string
	OpenRouterAppName        string
	ModelContentPrimary      string
	ModelContentFallback     string
	ModelActionItemsPrimary  string
	ModelActionItemsFallback string
	ModelInsightsPrimary     string
	ModelInsightsFallback    string
	AnalysisCacheTTLSeconds  int
	AnalysisCacheMaxEntries  int

	SpeechAPIKey    string
	SpeechBaseURL   string
	SpeechTimeoutMS int
	SpeechLanguage  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
	RedisDLQ      string
	RedisGroup    string
	RedisConsumer string

	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string

	WorkerEnabled     bool
	WorkerConcurrency int
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthToken: getEnv("API_AUTH_TOKEN", ""),

		ResultsDir: getEnv("RESULTS_DIR", "results"),
		UploadsDir: getEnv("UPLOADS_DIR", "temp_uploads"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		OpenRouterAPIKey:         getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL:        getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterTimeoutMS:      getEnvInt("OPENROUTER_TIMEOUT_MS", 20000),
		OpenRouterMaxRetries:     getEnvInt("OPENROUTER_MAX_RETRIES", 2),
		OpenRouterSiteURL:        getEnv("OPENROUTER_SITE_URL", ""),
		OpenRouterAppName:        getEnv("OPENROUTER_APP_NAME", "AudioInsight"),
		ModelContentPrimary:      getEnv("MODEL_CONTENT_PRIMARY", "anthropic/claude-3.5-sonnet"),
		ModelContentFallback:     getEnv("MODEL_CONTENT_FALLBACK", "anthropic/claude-3-haiku"),
		ModelActionItemsPrimary:  getEnv("MODEL_ACTION_ITEMS_PRIMARY", "anthropic/claude-3-haiku"),
		ModelActionItemsFallback: getEnv("MODEL_ACTION_ITEMS_FALLBACK", "openai/gpt-4.1-mini"),
		ModelInsightsPrimary:     getEnv("MODEL_INSIGHTS_PRIMARY", "anthropic/claude-3.5-sonnet"),
		ModelInsightsFallback:    getEnv("MODEL_INSIGHTS_FALLBACK", "anthropic/claude-3-haiku"),
		AnalysisCacheTTLSeconds:  getEnvInt("ANALYSIS_CACHE_TTL_SECONDS", 900),
		AnalysisCacheMaxEntries:  getEnvInt("ANALYSIS_CACHE_MAX_ENTRIES", 500),

		SpeechAPIKey:    getEnv("SPEECH_API_KEY", ""),
		SpeechBaseURL:   getEnv("SPEECH_BASE_URL", "https://speech.googleapis.com/v1"),
		SpeechTimeoutMS: getEnvInt("SPEECH_TIMEOUT_MS", 90000),
		SpeechLanguage:  getEnv("SPEECH_LANGUAGE", "en-US"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisStream:   getEnv("REDIS_STREAM", "ai_meetings"),
		RedisDLQ:      getEnv("REDIS_DLQ_STREAM", "ai_meetings_dlq"),
		RedisGroup:    getEnv("REDIS_GROUP", "ai_workers"),
		RedisConsumer: getEnv("REDIS_CONSUMER", "api-1"),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		CORSAllowedOrigins: []string{getEnv("CORS_ALLOWED_ORIGINS", "*")},

		WorkerEnabled:     getEnvBool("WORKER_ENABLED", true),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

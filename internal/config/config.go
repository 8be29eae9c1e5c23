package config

import (
	"os"
	"strconv"
	"strings"
)

// Config centralizes runtime settings for the API and workers.
type Config struct {
	Port string

	AuthToken          string
	CORSAllowedOrigins []string

	DatabaseURL string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAITimeoutMS  int
	OpenAIMaxRetries int

	OpenRouterAPIKey     string
	OpenRouterBaseURL    string
	OpenRouterTimeoutMS  int
	OpenRouterMaxRetries int
	OpenRouterSiteURL    string
	OpenRouterAppName    string

	ModelArticleFallback  string
	ModelResearchPrimary  string
	ModelResearchFallback string

	ListCacheTTLSeconds int
	ListCacheMaxEntries int
	PromptsDir          string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
	RedisDLQ      string
	RedisGroup    string
	RedisConsumer string

	RateLimitRPS   float64
	RateLimitBurst int

	WorkerEnabled     bool
	WorkerConcurrency int

	SessionPollMS    int
	NotificationCap  int
	WorkspaceIdleMin int
	BillingURL       string
	DefaultBrandName string

	CredentialsIdentity string
	WordPressTimeoutMS  int
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthToken:          getEnv("API_AUTH_TOKEN", ""),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAITimeoutMS:  getEnvInt("OPENAI_TIMEOUT_MS", 60000),
		OpenAIMaxRetries: getEnvInt("OPENAI_MAX_RETRIES", 2),

		OpenRouterAPIKey:     getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL:    getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterTimeoutMS:  getEnvInt("OPENROUTER_TIMEOUT_MS", 60000),
		OpenRouterMaxRetries: getEnvInt("OPENROUTER_MAX_RETRIES", 2),
		OpenRouterSiteURL:    getEnv("OPENROUTER_SITE_URL", ""),
		OpenRouterAppName:    getEnv("OPENROUTER_APP_NAME", "content-orchestrator"),

		ModelArticleFallback:  getEnv("MODEL_ARTICLE_FALLBACK", "gpt-4.1-nano"),
		ModelResearchPrimary:  getEnv("MODEL_RESEARCH_PRIMARY", "gpt-4.1-mini"),
		ModelResearchFallback: getEnv("MODEL_RESEARCH_FALLBACK", "gpt-4.1-nano"),

		ListCacheTTLSeconds: getEnvInt("LIST_CACHE_TTL_SECONDS", 120),
		ListCacheMaxEntries: getEnvInt("LIST_CACHE_MAX_ENTRIES", 1000),
		PromptsDir:          getEnv("PROMPTS_DIR", "prompts"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisStream:   getEnv("REDIS_STREAM", "generation_jobs"),
		RedisDLQ:      getEnv("REDIS_DLQ_STREAM", "generation_jobs_dlq"),
		RedisGroup:    getEnv("REDIS_GROUP", "article_workers"),
		RedisConsumer: getEnv("REDIS_CONSUMER", "api-1"),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		WorkerEnabled:     getEnvBool("WORKER_ENABLED", true),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 3),

		SessionPollMS:    getEnvInt("SESSION_POLL_MS", 2000),
		NotificationCap:  getEnvInt("NOTIFICATION_CAP", 50),
		WorkspaceIdleMin: getEnvInt("WORKSPACE_IDLE_TTL_MINUTES", 30),
		BillingURL:       getEnv("BILLING_URL", "/settings/billing"),
		DefaultBrandName: getEnv("DEFAULT_BRAND_NAME", ""),

		CredentialsIdentity: getEnv("CREDENTIALS_AGE_IDENTITY", ""),
		WordPressTimeoutMS:  getEnvInt("WORDPRESS_TIMEOUT_MS", 10000),
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

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

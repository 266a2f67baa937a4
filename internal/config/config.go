package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	UseMemoryQueue bool
	WorkerCount    int
	DatabaseURL    string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	BotQueueURL         string
	BedrockModelID      string
	GeminiAPIKey        string
	GeminiModel         string

	// Bot tuning. Thresholds are confidences in [0,1].
	BotRuleConfidence      float64
	BotMLMargin            float64
	BotMLWordThreshold     int
	BotStateTimeout        time.Duration
	BotStateTTL            time.Duration
	BotHistorySize         int
	BotLowConfidenceFloor  float64
	BotLowConfidenceStreak int
	BotFollowUpThreshold   float64

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// SES fallback sender
	SESFromEmail string

	// Single-tenant provider identity used for catalog lookups and
	// handoff alerts.
	ProviderID    string
	ProviderName  string
	ProviderEmail string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BotQueueURL:         getEnv("BOT_QUEUE_URL", ""),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		BotRuleConfidence:      getEnvAsFloat("BOT_RULE_CONFIDENCE", 0.8),
		BotMLMargin:            getEnvAsFloat("BOT_ML_MARGIN", 0.15),
		BotMLWordThreshold:     getEnvAsInt("BOT_ML_WORD_THRESHOLD", 3),
		BotStateTimeout:        getEnvAsDuration("BOT_STATE_TIMEOUT", 300*time.Second),
		BotStateTTL:            getEnvAsDuration("BOT_STATE_TTL", 24*time.Hour),
		BotHistorySize:         getEnvAsInt("BOT_HISTORY_SIZE", 10),
		BotLowConfidenceFloor:  getEnvAsFloat("BOT_LOW_CONFIDENCE_FLOOR", 0.3),
		BotLowConfidenceStreak: getEnvAsInt("BOT_LOW_CONFIDENCE_STREAK", 3),
		BotFollowUpThreshold:   getEnvAsFloat("BOT_FOLLOW_UP_THRESHOLD", 0.8),

		// SendGrid Email Configuration
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "AgendaZap"),

		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),

		ProviderID:    getEnv("PROVIDER_ID", "default"),
		ProviderName:  getEnv("PROVIDER_NAME", ""),
		ProviderEmail: getEnv("PROVIDER_EMAIL", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

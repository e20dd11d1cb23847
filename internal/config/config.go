package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Session store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
	StoreSupabase = "supabase"
)

// LLM providers.
const (
	LLMProviderNone    = "none"
	LLMProviderBedrock = "bedrock"
	LLMProviderGemini  = "gemini"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// WhatsApp Cloud API
	WhatsAppVerifyToken   string
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppAppSecret     string
	WhatsAppGraphAPIBase  string
	WhatsAppSendTimeout   time.Duration
	AdminWhatsAppID       string

	// Identity canonicalization (long national mobile form -> short form)
	LongNationalPrefix  string
	ShortNationalPrefix string
	SubscriberDigits    int

	BusinessContentPath string

	// Session persistence
	SessionStore          string
	RedisAddr             string
	RedisPassword         string
	RedisTLS              bool
	SessionTTL            time.Duration
	DatabaseURL           string
	SessionsTable         string
	SupabaseURL           string
	SupabaseKey           string
	SupabaseSessionsTable string
	DedupeTTL             time.Duration

	// Language model
	LLMProvider      string
	BedrockModelID   string
	GeminiAPIKey     string
	GeminiModelID    string
	FallbackProvider string
	AITimeout        time.Duration
	AIMaxTokens      int

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	BookingQueueURL     string

	// Admin notifications by email
	AdminEmail        string
	SESFromEmail      string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	AdminJWTSecret string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "3000"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppAppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),
		WhatsAppGraphAPIBase:  getEnv("WHATSAPP_GRAPH_API_BASE", "https://graph.facebook.com/v21.0"),
		WhatsAppSendTimeout:   getEnvAsDuration("WHATSAPP_SEND_TIMEOUT", 10*time.Second),
		AdminWhatsAppID:       getEnv("ADMIN_WHATSAPP_ID", ""),

		LongNationalPrefix:  getEnv("LONG_NATIONAL_PREFIX", "521"),
		ShortNationalPrefix: getEnv("SHORT_NATIONAL_PREFIX", "52"),
		SubscriberDigits:    getEnvAsInt("SUBSCRIBER_DIGITS", 10),

		BusinessContentPath: getEnv("BUSINESS_CONTENT_PATH", "datos.json"),

		SessionStore:          strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", StoreMemory))),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisTLS:              getEnvAsBool("REDIS_TLS", false),
		SessionTTL:            getEnvAsDuration("SESSION_TTL", 0),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		SessionsTable:         getEnv("SESSIONS_TABLE", "user_sessions"),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseKey:           getEnv("SUPABASE_KEY", ""),
		SupabaseSessionsTable: getEnv("SUPABASE_SESSIONS_TABLE", "user_sessions"),
		DedupeTTL:             getEnvAsDuration("DEDUPE_TTL", 24*time.Hour),

		LLMProvider:      strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", LLMProviderNone))),
		BedrockModelID:   getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:    getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		FallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("LLM_FALLBACK_PROVIDER", LLMProviderNone))),
		AITimeout:        getEnvAsDuration("AI_TIMEOUT", 12*time.Second),
		AIMaxTokens:      getEnvAsInt("AI_MAX_TOKENS", 400),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BookingQueueURL:     getEnv("BOOKING_QUEUE_URL", ""),

		AdminEmail:        getEnv("ADMIN_EMAIL", ""),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "WhatsApp Concierge"),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 40),
	}
}

// AIEnabled reports whether a language model provider is configured.
func (c *Config) AIEnabled() bool {
	switch c.LLMProvider {
	case LLMProviderBedrock:
		return strings.TrimSpace(c.BedrockModelID) != ""
	case LLMProviderGemini:
		return strings.TrimSpace(c.GeminiAPIKey) != ""
	default:
		return false
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

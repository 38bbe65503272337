package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	LogFormat   string
	CORSOrigins []string

	// Dialogue
	DefaultLanguage   string
	ChatCooldown      time.Duration
	QualifyConfigFile string
	SessionTTL        time.Duration

	// Remote completion service
	LLMProvider    string
	LLMTimeout     time.Duration
	LLMTemperature float32
	LLMMaxTokens   int
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	BedrockModelID string
	GeminiAPIKey   string
	GeminiModel    string

	// Storage
	LeadStore         string
	LeadStoreCapacity int
	DatabaseURL       string
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
	LeadsDynamoTable  string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	LeadsQueueURL       string
	ExportBucket        string

	// Hot-lead email
	EmailProvider     string // sendgrid, ses or log
	EmailFrom         string
	EmailFromName     string
	SendGridAPIKey    string
	HotLeadRecipients []string
	HotLeadMaxTier    int

	// HTTP
	AdminJWTSecret string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		CORSOrigins: getEnvAsList("CORS_ORIGINS", nil),

		DefaultLanguage:   strings.ToLower(getEnv("DEFAULT_LANGUAGE", "es")),
		ChatCooldown:      getEnvAsDuration("CHAT_COOLDOWN", 2*time.Second),
		QualifyConfigFile: getEnv("QUALIFY_CONFIG_FILE", ""),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", ""))),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		LLMTemperature: float32(getEnvAsFloat("LLM_TEMPERATURE", 0.7)),
		LLMMaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 1024),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		LeadStore:         strings.ToLower(getEnv("LEAD_STORE", "memory")),
		LeadStoreCapacity: getEnvAsInt("LEAD_STORE_CAPACITY", 100),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		LeadsDynamoTable:  getEnv("LEADS_DYNAMO_TABLE", "qualified_leads"),

		AWSRegion:           getEnv("AWS_REGION", "eu-west-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		LeadsQueueURL:       getEnv("LEADS_QUEUE_URL", ""),
		ExportBucket:        getEnv("EXPORT_BUCKET", ""),

		EmailProvider:     strings.ToLower(getEnv("EMAIL_PROVIDER", "sendgrid")),
		EmailFrom:         getEnv("EMAIL_FROM", ""),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "Lead Qualifier"),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		HotLeadRecipients: getEnvAsList("HOT_LEAD_RECIPIENTS", nil),
		HotLeadMaxTier:    getEnvAsInt("HOT_LEAD_MAX_TIER", 2),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 10),
	}
}

// RemoteEnabled reports whether a remote completion provider is configured.
// Without one the local deterministic backend is used.
func (c *Config) RemoteEnabled() bool {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey != ""
	case "bedrock":
		return c.BedrockModelID != ""
	case "gemini":
		return c.GeminiAPIKey != ""
	case "local":
		return false
	default:
		return c.OpenAIAPIKey != ""
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

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

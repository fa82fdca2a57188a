package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	DatabaseURL    string
	StoreTimeout   time.Duration
	EHRBaseURL     string
	EHRTimeout     time.Duration
	PatientID      string
	PromptTimezone string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	// Model call service
	LLMProvider         string
	LLMFallbackProvider string
	LLMTimeout          time.Duration
	LLMMaxTokens        int
	OpenAIAPIKey        string
	OpenAIModel         string
	OpenAIBaseURL       string
	BedrockModelID      string
	BedrockEndpoint     string
	GeminiAPIKey        string
	GeminiModel         string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string

	// HTTP surface
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
	DebugRoutes        bool

	// Chat client
	MLURL string
}

// Load reads configuration from environment variables
func Load() *Config {
	env := getEnv("ENV", "development")
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            env,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		StoreTimeout:   getEnvAsDuration("STORE_TIMEOUT", 10*time.Second),
		EHRBaseURL:     strings.TrimSuffix(getEnv("EHR_BASE_URL", getEnv("API_URL", "")), "/"),
		EHRTimeout:     getEnvAsDuration("EHR_TIMEOUT", 30*time.Second),
		PatientID:      getEnv("PATIENT_ID", "1"),
		PromptTimezone: getEnv("PROMPT_TIMEZONE", "America/New_York"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		LLMProvider:         strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "openai"))),
		LLMFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("LLM_FALLBACK_PROVIDER", ""))),
		LLMTimeout:          getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		LLMMaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", 500),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),
		BedrockEndpoint:     getEnv("BEDROCK_ENDPOINT_URL", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),

		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		DebugRoutes:        getEnvAsBool("DEBUG_ROUTES", env != "production"),

		MLURL: strings.TrimSuffix(getEnv("ML_URL", "http://localhost:8080"), "/"),
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

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

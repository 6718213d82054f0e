// Package config holds global settings for the PhishGuard service.
// All settings can be configured via environment variables (PHISHGUARD_*)
// or programmatically; a .env file in the working directory is honored.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// OracleProvider defines which backend the AI oracle talks to.
type OracleProvider string

const (
	ProviderNone   OracleProvider = "none"   // Oracle disabled, heuristics only
	ProviderGemini OracleProvider = "gemini" // Google Gemini generateContent API
	ProviderOpenAI OracleProvider = "openai" // Any OpenAI-compatible chat/completions endpoint
	ProviderOllama OracleProvider = "ollama" // Local Ollama (OpenAI-compatible, no key needed)
)

// Config holds all runtime settings for the gateway and the analysis engine.
type Config struct {
	// === Server ===
	Host           string
	Port           int
	AllowedOrigins []string

	// === Input limits ===
	MaxTextLength int // Max characters in message text (default: 100000)

	// === Rate limiting ===
	RateLimitEnabled bool
	RateLimitMax     int           // Max requests per window per client (default: 30)
	RateLimitWindow  time.Duration // Window size (default: 1m)
	RedisAddr        string        // When set, the limiter is Redis-backed
	RedisPassword    string
	RedisDB          int

	// === AI oracle ===
	OracleProvider OracleProvider
	OracleAPIKey   string
	OracleModel    string
	OracleBaseURL  string        // Custom base URL for self-hosted endpoints
	OracleTimeout  time.Duration // Single-attempt timeout (default: 30s)

	// === Detection ===
	RulesPath string // Optional YAML file with site-local keyword rules

	// === Logging ===
	LogLevel  string
	LogFormat string // "console" or "json"
}

// Load builds a Config from the environment. A .env file, if present, is
// loaded first so local development matches deployed behavior.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Host:           GetEnv("PHISHGUARD_HOST", "0.0.0.0"),
		Port:           GetEnvInt("PHISHGUARD_PORT", 5000),
		AllowedOrigins: GetEnvSlice("PHISHGUARD_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),

		MaxTextLength: GetEnvInt("PHISHGUARD_MAX_TEXT_LENGTH", 100_000),

		RateLimitEnabled: GetEnvBool("PHISHGUARD_RATE_LIMIT_ENABLED", true),
		RateLimitMax:     GetEnvInt("PHISHGUARD_RATE_LIMIT", 30),
		RateLimitWindow:  time.Duration(GetEnvInt("PHISHGUARD_RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		RedisAddr:        GetEnv("PHISHGUARD_REDIS_ADDR", ""),
		RedisPassword:    GetEnv("PHISHGUARD_REDIS_PASSWORD", ""),
		RedisDB:          GetEnvInt("PHISHGUARD_REDIS_DB", 0),

		OracleProvider: detectOracleProvider(),
		OracleAPIKey:   GetEnv("PHISHGUARD_ORACLE_API_KEY", GetEnv("GEMINI_API_KEY", os.Getenv("OPENAI_API_KEY"))),
		OracleModel:    GetEnv("PHISHGUARD_ORACLE_MODEL", "gemini-2.5-flash"),
		OracleBaseURL:  GetEnv("PHISHGUARD_ORACLE_BASE_URL", ""),
		OracleTimeout:  time.Duration(GetEnvInt("PHISHGUARD_ORACLE_TIMEOUT_MS", 30_000)) * time.Millisecond,

		RulesPath: GetEnv("PHISHGUARD_RULES_PATH", ""),

		LogLevel:  GetEnv("PHISHGUARD_LOG_LEVEL", "info"),
		LogFormat: GetEnv("PHISHGUARD_LOG_FORMAT", "console"),
	}
}

// detectOracleProvider picks a provider from an explicit setting or from
// whichever credential is present. Absence of any credential is a normal
// operating condition: the engine then runs on the deterministic fallback.
func detectOracleProvider() OracleProvider {
	if p := os.Getenv("PHISHGUARD_ORACLE_PROVIDER"); p != "" {
		return OracleProvider(strings.ToLower(p))
	}
	if os.Getenv("GEMINI_API_KEY") != "" {
		return ProviderGemini
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return ProviderOpenAI
	}
	if os.Getenv("PHISHGUARD_ORACLE_API_KEY") != "" {
		return ProviderGemini
	}
	return ProviderNone
}

// Helper functions for environment variable parsing.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

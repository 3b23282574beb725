package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

const defaultQuotaBytes = 5 << 20 // browser localStorage budget

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	LLMProvider string
	LLMBaseURL  string
	LLMModel    string
	LLMAPIKey   string

	StateStore      string
	StateQuotaBytes int64
	LocalStoreDir   string
	SQLitePath      string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	provider := normalizeProvider(getEnv("LLM_PROVIDER", "deepseek"))
	stateStore := normalizeStateStore(getEnv("STATE_STORE", "memory"))
	dbURL := os.Getenv("DATABASE_URL")

	if stateStore == "postgres" && dbURL == "" {
		log.Printf("STATE_STORE=postgres requires DATABASE_URL")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		LLMProvider:     provider,
		LLMBaseURL:      getEnv("LLM_BASE_URL", defaultBaseURL(provider)),
		LLMModel:        getEnv("LLM_MODEL", defaultModel(provider)),
		LLMAPIKey:       getEnv("LLM_API_KEY", providerAPIKey(provider)),
		StateStore:      stateStore,
		StateQuotaBytes: getEnvInt64("STATE_QUOTA_BYTES", defaultQuotaBytes),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		SQLitePath:      getEnv("SQLITE_PATH", "./data/state.db"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:     dbURL,
		RateLimitRPS:    getEnvFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst:  int(getEnvInt64("RATE_LIMIT_BURST", 5)),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("config env %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config env %s invalid float: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "gemini", "google":
		return "gemini"
	default:
		return "deepseek"
	}
}

func normalizeStateStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "local", "file":
		return "local"
	case "s3":
		return "s3"
	case "postgres", "pg":
		return "postgres"
	case "sqlite":
		return "sqlite"
	default:
		return "memory"
	}
}

func defaultBaseURL(provider string) string {
	switch provider {
	case "openai":
		return "https://api.openai.com/v1"
	case "gemini":
		return ""
	default:
		return "https://api.deepseek.com"
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "gemini":
		return "gemini-2.5-flash"
	default:
		return "deepseek-chat"
	}
}

func providerAPIKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	default:
		return os.Getenv("DEEPSEEK_API_KEY")
	}
}

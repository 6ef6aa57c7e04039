package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"casa-backend/internal/shared/telemetry"
)

// Config holds application configuration. It is loaded once at startup and
// passed to every component that needs it.
type Config struct {
	Port            string `env:"PORT" envDefault:"8080"`
	Env             string `env:"ENV" envDefault:"dev"`
	RawCORSOrigins  string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:5173"`
	CORSAllowOrigin []string
	DatabaseURL     string `env:"DATABASE_URL"`

	ObjectStoreType string `env:"OBJECT_STORE" envDefault:"local"`
	LocalStoreDir   string `env:"LOCAL_STORE_DIR" envDefault:"./data"`
	PublicBaseURL   string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	MediaBucket     string `env:"MEDIA_BUCKET" envDefault:"sperm-videos"`
	AWSRegion       string `env:"AWS_REGION"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3Prefix        string `env:"S3_PREFIX"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
	SSEKMSKeyID     string `env:"SSE_KMS_KEY_ID"`
	AzureAccount    string `env:"AZURE_STORAGE_ACCOUNT"`
	AzureKey        string `env:"AZURE_STORAGE_KEY"`
	AzureContainer  string `env:"AZURE_STORAGE_CONTAINER"`
	AzurePrefix     string `env:"AZURE_STORAGE_PREFIX"`

	KoyebAPIKey       string        `env:"KOYEB_API_KEY"`
	KoyebBaseURL      string        `env:"KOYEB_BASE_URL" envDefault:"https://app.koyeb.com"`
	KoyebPollInterval time.Duration `env:"KOYEB_POLL_INTERVAL" envDefault:"15s"`
	KoyebMaxWait      time.Duration `env:"KOYEB_MAX_WAIT" envDefault:"10m"`
	KoyebTimeout      time.Duration `env:"KOYEB_TIMEOUT" envDefault:"60s"`
	ProbeTimeout      time.Duration `env:"MEDIA_PROBE_TIMEOUT" envDefault:"15s"`

	LLMProvider   string        `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMModel      string        `env:"LLM_MODEL" envDefault:"gpt-3.5-turbo"`
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAITimeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"60s"`
	ChatLanguage  string        `env:"CHAT_LANGUAGE" envDefault:"Arabic"`

	SQSQueueURL          string        `env:"REPORT_EVENTS_QUEUE_URL"`
	SQSVisibilityTimeout time.Duration `env:"REPORT_EVENTS_VISIBILITY_TIMEOUT" envDefault:"5m"`
	WorkerConcurrency    int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
	UIRedirectURL      string `env:"UI_REDIRECT_URL"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		telemetry.Error("config.parse_failed", map[string]any{"error": err.Error()})
	}
	return normalize(cfg)
}

func normalize(cfg Config) Config {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.CORSAllowOrigin = splitAndTrim(cfg.RawCORSOrigins)
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	cfg.KoyebBaseURL = strings.TrimRight(strings.TrimSpace(cfg.KoyebBaseURL), "/")

	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "DATABASE_URL", "env": cfg.Env})
	}
	return cfg
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

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "azure", "azblob":
		return "azure"
	default:
		return "local"
	}
}

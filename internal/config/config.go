package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	SMTP      SMTPConfig
	Auth      AuthConfig
	Ai        AIConfig
	Lifecycle LifecycleConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	NatsEnabled        bool
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "memory"
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type AuthConfig struct {
	JWTSecret string
}

type AIConfig struct {
	LLMProvider     string // "ollama" or "huggingface"
	LLMModel        string
	LLMBaseURL      string
	LLMAPIKey       string
	MaxContentChars int
}

type LifecycleConfig struct {
	LockDriver         string // "memory" or "redis"
	AnalysisTimeout    time.Duration
	ApplyTimeout       time.Duration
	AnalysisStaleAfter time.Duration
	SessionTTL         time.Duration
	DocumentTTL        time.Duration
	SweepInterval      time.Duration
	SweepBatchSize     int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "logs/audit.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			NatsEnabled:        getEnvAsBool("NATS_ENABLED", true),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("STORAGE_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Contract Review"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			LLMProvider:     getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:        getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:      getEnv("LLM_BASE_URL", "http://localhost:11434"),
			LLMAPIKey:       getEnv("LLM_API_KEY", ""),
			MaxContentChars: getEnvAsInt("ANALYSIS_MAX_CONTENT_CHARS", 200000),
		},
		Lifecycle: LifecycleConfig{
			LockDriver:         getEnv("LOCK_DRIVER", "memory"),
			AnalysisTimeout:    getEnvAsDuration("ANALYSIS_TIMEOUT", 2*time.Minute),
			ApplyTimeout:       getEnvAsDuration("APPLY_TIMEOUT", 10*time.Second),
			AnalysisStaleAfter: getEnvAsDuration("ANALYSIS_STALE_AFTER", 10*time.Minute),
			SessionTTL:         getEnvAsDuration("SESSION_TTL", 72*time.Hour),
			DocumentTTL:        getEnvAsDuration("DOCUMENT_TTL", 30*24*time.Hour),
			SweepInterval:      getEnvAsDuration("SWEEP_INTERVAL", time.Minute),
			SweepBatchSize:     getEnvAsInt("SWEEP_BATCH_SIZE", 100),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s", "72h").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

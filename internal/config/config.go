package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the hosting configuration. LLM settings are read separately
// by llm.ConfigFromEnv.
type Config struct {
	ServerAddr string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// DBDriver is "sqlite" or "postgres". DatabaseURL is a file path for
	// SQLite (empty selects the default data dir) or a DSN for Postgres.
	DBDriver    string
	DatabaseURL string

	// SessionBackend selects where the live session is kept:
	// "sql" (default), "redis" or "memory".
	SessionBackend string
	RedisURL       string
	SessionPrefix  string
	SessionTTL     time.Duration

	// BlobBackend archives uploaded documents: "" (off), "fs" or "s3".
	BlobBackend string
	UploadDir   string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	// AMQPURL enables lifecycle event publishing when set.
	AMQPURL   string
	AMQPQueue string

	MaxUploadBytes int64
	RateLimit      int
	RateInterval   time.Duration

	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty means all origins are permitted.
	AllowedOrigins []string
}

// Load reads configuration from environment variables with defaults.
// A .env file is loaded if present.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		ServerAddr:     getEnv("DOCQUIZ_ADDR", ":8080"),
		GinMode:        getEnv("GIN_MODE", "release"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "pretty"),
		DBDriver:       getEnv("DOCQUIZ_DB_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SessionBackend: getEnv("DOCQUIZ_SESSION_BACKEND", "sql"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionPrefix:  getEnv("DOCQUIZ_SESSION_PREFIX", "docquiz:session:"),
		SessionTTL:     time.Duration(getEnvInt("DOCQUIZ_SESSION_TTL_HOURS", 24)) * time.Hour,
		BlobBackend:    getEnv("DOCQUIZ_BLOB_BACKEND", ""),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		S3Endpoint:     getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
		S3Bucket:       getEnv("S3_BUCKET", "docquiz-documents"),
		S3UseSSL:       getEnvBool("S3_USE_SSL", false),
		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPQueue:      getEnv("AMQP_QUEUE", "docquiz.events"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 20)) * 1024 * 1024,
		RateLimit:      getEnvInt("RATE_LIMIT", 10),
		RateInterval:   time.Duration(getEnvInt("RATE_INTERVAL_SECONDS", 60)) * time.Second,
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr     string
	LogLevel string

	// DatabaseURL selects postgres stores; empty runs on in-memory stores.
	DatabaseURL string

	JWT       JWTConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Retry     RetryConfig
	RateLimit RateLimitConfig

	AllowResubmissionAfterRejection bool
}

// JWTConfig describes the session provider's tokens.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// RedisConfig configures the shared rate-limit counters. Empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit outbox relay. No brokers disables it.
type KafkaConfig struct {
	Brokers      []string
	AuditTopic   string
	PollInterval time.Duration
	BatchSize    int
}

// RetryConfig bounds retries of transient store failures.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

// RateLimitConfig holds per-principal limits for self-service writes.
type RateLimitConfig struct {
	HandlePerMinute int
	ApplyPerHour    int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        getEnv("KUDOSE_ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWT: JWTConfig{
			// Development default; must be overridden in production.
			SigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     getEnv("JWT_ISSUER", "kudose-auth"),
			Audience:   getEnv("JWT_AUDIENCE", "kudose-api"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:      splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:   getEnv("AUDIT_TOPIC", "kudose.audit"),
			PollInterval: getDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:    getInt("OUTBOX_BATCH_SIZE", 100),
		},
		Retry: RetryConfig{
			MaxAttempts:     getInt("STORE_RETRY_MAX_ATTEMPTS", 3),
			InitialInterval: getDuration("STORE_RETRY_INITIAL_INTERVAL", 50*time.Millisecond),
		},
		RateLimit: RateLimitConfig{
			HandlePerMinute: getInt("RATE_LIMIT_HANDLE_PER_MINUTE", 5),
			ApplyPerHour:    getInt("RATE_LIMIT_APPLY_PER_HOUR", 3),
		},
		AllowResubmissionAfterRejection: getBool("SELLER_ALLOW_RESUBMISSION_AFTER_REJECTION", true),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return def
}

func getBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package config builds runtime configuration from the environment so main
// stays lean. Defaults suit local development; production overrides every
// secret-bearing value.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config aggregates per-subsystem configuration.
type Config struct {
	HTTP     HTTPConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Keys     KeyConfig
	Alerts   AlertConfig
	Index    IndexConfig
}

// HTTPConfig captures HTTP server level configuration.
type HTTPConfig struct {
	Addr            string
	JWTSigningKey   string
	ShutdownTimeout time.Duration
}

// PostgresConfig holds the audit/key/alert store connection settings.
type PostgresConfig struct {
	URL          string
	MaxOpenConns int
}

// RedisConfig holds connection settings for the index store and rolling
// counters. An empty URL disables Redis-backed implementations.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig drives the optional SIEM export publisher. Empty brokers
// disable export entirely.
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

// KeyConfig controls encryption key lifecycle.
type KeyConfig struct {
	RotationInterval time.Duration
	MasterKeyBase64  string
}

// AlertConfig holds the alert engine thresholds. Values mirror the
// compliance rubric; change them only with counsel sign-off.
type AlertConfig struct {
	AnomalousRiskScore  int
	FailedAuthWindow    time.Duration
	FailedAuthThreshold int
	MassExportThreshold int
}

// IndexConfig bounds the asynchronous projection pipeline.
type IndexConfig struct {
	QueueSize    int
	Workers      int
	RetryBackoff time.Duration
	MaxRetries   int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            envOr("LEXGATE_ADDR", ":8080"),
			JWTSigningKey:   envOr("LEXGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			ShutdownTimeout: envDuration("LEXGATE_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("LEXGATE_POSTGRES_URL"),
			MaxOpenConns: envInt("LEXGATE_POSTGRES_MAX_CONNS", 20),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("LEXGATE_REDIS_URL"),
			PoolSize:     envInt("LEXGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("LEXGATE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("LEXGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("LEXGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("LEXGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     splitNonEmpty(os.Getenv("LEXGATE_KAFKA_BROKERS")),
			TopicPrefix: envOr("LEXGATE_KAFKA_TOPIC_PREFIX", "lexgate.audit"),
		},
		Keys: KeyConfig{
			RotationInterval: envDuration("LEXGATE_KEY_ROTATION_INTERVAL", 90*24*time.Hour),
			MasterKeyBase64:  os.Getenv("LEXGATE_MASTER_KEY"),
		},
		Alerts: AlertConfig{
			AnomalousRiskScore:  envInt("LEXGATE_ALERT_RISK_THRESHOLD", 80),
			FailedAuthWindow:    envDuration("LEXGATE_ALERT_FAILED_AUTH_WINDOW", 15*time.Minute),
			FailedAuthThreshold: envInt("LEXGATE_ALERT_FAILED_AUTH_THRESHOLD", 5),
			MassExportThreshold: envInt("LEXGATE_ALERT_MASS_EXPORT_THRESHOLD", 50),
		},
		Index: IndexConfig{
			QueueSize:    envInt("LEXGATE_INDEX_QUEUE_SIZE", 1024),
			Workers:      envInt("LEXGATE_INDEX_WORKERS", 4),
			RetryBackoff: envDuration("LEXGATE_INDEX_RETRY_BACKOFF", 2*time.Second),
			MaxRetries:   envInt("LEXGATE_INDEX_MAX_RETRIES", 5),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}

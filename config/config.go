package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port       string
	GinMode    string
	LogLevel   string
	JWTSecret  string
	JWTTTL     time.Duration
	CORSOrigin string
	InstanceID string
	// PublicURL is the customer-facing origin encoded in table QR codes.
	PublicURL string
	Database   DatabaseConfig
	Realtime   RealtimeConfig
	RateLimit  RateLimitConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
}

type DatabaseConfig struct {
	Driver   string
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// RealtimeConfig tunes the websocket hub and the change-feed bridge.
type RealtimeConfig struct {
	PingInterval       time.Duration
	ChangeFeedInterval time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// RedisConfig enables the cross-instance relay when Addr is set.
type RedisConfig struct {
	Addr    string
	Channel string
}

// KafkaConfig enables the event sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		GinMode:    getEnv("GIN_MODE", "debug"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),
		InstanceID: getEnv("INSTANCE_ID", uuid.NewString()),
		PublicURL:  strings.TrimRight(os.Getenv("PUBLIC_URL"), "/"),
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "mysql"),
			DSN:      os.Getenv("DB_DSN"),
			Host:     getEnv("DB_HOST", "127.0.0.1"),
			Port:     os.Getenv("DB_PORT"),
			User:     getEnv("DB_USER", "root"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "restaurant"),
		},
		Redis: RedisConfig{
			Addr:    os.Getenv("REDIS_ADDR"),
			Channel: getEnv("REDIS_CHANNEL", "tableorder:realtime"),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "tableorder.events"),
		},
	}

	var err error
	if cfg.Realtime.PingInterval, err = getDuration("WS_PING_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Realtime.ChangeFeedInterval, err = getDuration("CHANGE_FEED_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = getDuration("JWT_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimit.RPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "10"), 64); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimit.Burst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
	}

	if cfg.JWTSecret == "" {
		if cfg.GinMode != "test" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
		cfg.JWTSecret = "test-secret"
	}

	switch cfg.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

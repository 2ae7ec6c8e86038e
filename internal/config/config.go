// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// History backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	History     HistoryConfig
	Assistant   AssistantConfig
	RateLimit   RateLimitConfig
}

// HistoryConfig selects and bounds the conversation history store.
type HistoryConfig struct {
	Backend          string
	DBPath           string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	MaxConversations int
	MaxMessages      int
	MaxEvents        int
	QueueSize        int
}

// AssistantConfig tunes the conversational engine.
type AssistantConfig struct {
	ThinkDelay    time.Duration
	ActionTimeout time.Duration
	IdleTTL       time.Duration
}

// RateLimitConfig bounds turns per user.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		History: HistoryConfig{
			Backend:          strings.ToLower(strings.TrimSpace(getEnv("HISTORY_BACKEND", BackendSQLite))),
			DBPath:           getEnv("DB_PATH", "./data/assistant.db"),
			RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:    getEnv("REDIS_PASSWORD", ""),
			RedisDB:          getEnvInt("REDIS_DB", 0),
			MaxConversations: getEnvInt("HISTORY_MAX_CONVERSATIONS", 20),
			MaxMessages:      getEnvInt("HISTORY_MAX_MESSAGES", 100),
			MaxEvents:        getEnvInt("HISTORY_MAX_EVENTS", 1000),
			QueueSize:        getEnvInt("HISTORY_QUEUE_SIZE", 256),
		},
		Assistant: AssistantConfig{
			ThinkDelay:    getEnvDuration("ASSISTANT_THINK_DELAY", 0),
			ActionTimeout: getEnvDuration("ASSISTANT_ACTION_TIMEOUT", 5*time.Second),
			IdleTTL:       getEnvDuration("ASSISTANT_SESSION_IDLE_TTL", 30*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 30),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.History.Backend {
	case BackendSQLite:
		if c.History.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case BackendRedis:
		if c.History.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR cannot be empty")
		}
		if c.History.RedisDB < 0 {
			return fmt.Errorf("REDIS_DB must be >= 0")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("HISTORY_BACKEND must be one of %s, %s, %s; got %q",
			BackendSQLite, BackendRedis, BackendMemory, c.History.Backend)
	}
	if c.History.MaxConversations <= 0 {
		return fmt.Errorf("HISTORY_MAX_CONVERSATIONS must be > 0")
	}
	if c.History.MaxMessages <= 0 {
		return fmt.Errorf("HISTORY_MAX_MESSAGES must be > 0")
	}
	if c.History.MaxEvents <= 0 {
		return fmt.Errorf("HISTORY_MAX_EVENTS must be > 0")
	}
	if c.History.QueueSize <= 0 {
		return fmt.Errorf("HISTORY_QUEUE_SIZE must be > 0")
	}
	if c.Assistant.ThinkDelay < 0 {
		return fmt.Errorf("ASSISTANT_THINK_DELAY cannot be negative")
	}
	if c.Assistant.ActionTimeout <= 0 {
		return fmt.Errorf("ASSISTANT_ACTION_TIMEOUT must be > 0")
	}
	if c.Assistant.IdleTTL <= 0 {
		return fmt.Errorf("ASSISTANT_SESSION_IDLE_TTL must be > 0")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("750ms", "5m") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

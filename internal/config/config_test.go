package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "FRONTEND_URL", "HISTORY_BACKEND", "DB_PATH", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"HISTORY_MAX_CONVERSATIONS", "HISTORY_MAX_MESSAGES", "HISTORY_MAX_EVENTS", "HISTORY_QUEUE_SIZE",
		"ASSISTANT_THINK_DELAY", "ASSISTANT_ACTION_TIMEOUT", "ASSISTANT_SESSION_IDLE_TTL",
		"RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW",
	} {
		t.Setenv(key, "") // registers the restore
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.History.Backend)
	assert.Equal(t, 20, cfg.History.MaxConversations)
	assert.Equal(t, 100, cfg.History.MaxMessages)
	assert.Equal(t, 5*time.Second, cfg.Assistant.ActionTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Assistant.IdleTTL)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HISTORY_BACKEND", " Redis ")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("HISTORY_MAX_CONVERSATIONS", "5")
	t.Setenv("ASSISTANT_THINK_DELAY", "750ms")
	t.Setenv("ASSISTANT_ACTION_TIMEOUT", "3")
	t.Setenv("FRONTEND_URL", "https://hub.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.History.Backend)
	assert.Equal(t, "cache:6380", cfg.History.RedisAddr)
	assert.Equal(t, 2, cfg.History.RedisDB)
	assert.Equal(t, 5, cfg.History.MaxConversations)
	assert.Equal(t, 750*time.Millisecond, cfg.Assistant.ThinkDelay)
	assert.Equal(t, 3*time.Second, cfg.Assistant.ActionTimeout)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("HISTORY_BACKEND", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HISTORY_BACKEND")
}

func TestValidate(t *testing.T) {
	t.Parallel()
	valid := func() Config {
		return Config{
			Port: "8080",
			History: HistoryConfig{
				Backend:          BackendMemory,
				MaxConversations: 20,
				MaxMessages:      100,
				MaxEvents:        1000,
				QueueSize:        256,
			},
			Assistant: AssistantConfig{ActionTimeout: time.Second, IdleTTL: time.Minute},
			RateLimit: RateLimitConfig{Requests: 30, Window: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty port", func(c *Config) { c.Port = "" }, "PORT"},
		{"sqlite without path", func(c *Config) { c.History.Backend = BackendSQLite }, "DB_PATH"},
		{"redis without addr", func(c *Config) { c.History.Backend = BackendRedis }, "REDIS_ADDR"},
		{"zero conversations", func(c *Config) { c.History.MaxConversations = 0 }, "HISTORY_MAX_CONVERSATIONS"},
		{"zero messages", func(c *Config) { c.History.MaxMessages = 0 }, "HISTORY_MAX_MESSAGES"},
		{"negative delay", func(c *Config) { c.Assistant.ThinkDelay = -time.Second }, "ASSISTANT_THINK_DELAY"},
		{"zero rate limit", func(c *Config) { c.RateLimit.Requests = 0 }, "RATE_LIMIT_REQUESTS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

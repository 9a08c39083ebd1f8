package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Multilingual Mandi Gateway", cfg.AppName)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow())
	assert.Equal(t, "gemini", cfg.AIProvider)
	assert.True(t, cfg.EnableRateLimiting)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("AI_PROVIDER", "FALLBACK")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RATE_LIMIT_WINDOW", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "production", cfg.Environment, "environment is normalized to lowercase")
	assert.Equal(t, "fallback", cfg.AIProvider)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow())
	assert.True(t, cfg.IsProduction())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port too low", "PORT", "0"},
		{"port too high", "PORT", "70000"},
		{"unknown environment", "ENVIRONMENT", "quality-assurance"},
		{"unknown log level", "LOG_LEVEL", "TRACE"},
		{"unknown provider", "AI_PROVIDER", "openai"},
		{"temperature out of range", "GEMINI_TEMPERATURE", "1.5"},
		{"zero rate limit", "RATE_LIMIT_REQUESTS", "0"},
		{"zero window", "RATE_LIMIT_WINDOW", "0"},
		{"zero send buffer", "WS_SEND_BUFFER", "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestCORSOriginList(t *testing.T) {
	s := &Settings{CORSOrigins: "http://localhost:3000, https://mandi.example.com ,"}
	assert.Equal(t, []string{"http://localhost:3000", "https://mandi.example.com"}, s.CORSOriginList())

	s.CORSOrigins = " , "
	assert.Empty(t, s.CORSOriginList())
}

func TestNewLogger_Levels(t *testing.T) {
	for _, level := range []string{"DEBUG", "INFO", "WARNING", "ERROR"} {
		s := &Settings{AppName: "test", LogLevel: level, LogFormat: "json"}
		assert.NotNil(t, s.NewLogger())
	}

	s := &Settings{AppName: "test", LogLevel: "INFO", LogFormat: "text"}
	assert.NotNil(t, s.NewLogger())
}

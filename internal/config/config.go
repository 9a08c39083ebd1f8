package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
)

// Settings holds all process configuration. It is populated from the
// environment once at startup and treated as read-only afterwards.
type Settings struct {
	AppName     string `env:"APP_NAME,default=Multilingual Mandi Gateway"`
	AppVersion  string `env:"APP_VERSION,default=1.0.0"`
	Host        string `env:"HOST,default=0.0.0.0"`
	Port        int    `env:"PORT,default=8000"`
	Environment string `env:"ENVIRONMENT,default=development"`

	// CORS origins as a comma-separated list.
	CORSOrigins string `env:"CORS_ORIGINS,default=http://localhost:3000"`

	// Fixed-window rate limiting, applied per client to every /api route.
	RateLimitRequests  int  `env:"RATE_LIMIT_REQUESTS,default=100"`
	RateLimitWindowSec int  `env:"RATE_LIMIT_WINDOW,default=60"`
	EnableRateLimiting bool `env:"ENABLE_RATE_LIMITING,default=true"`

	// Input bounds enforced before any request reaches a handler.
	MaxInputLength        int `env:"MAX_INPUT_LENGTH,default=1000"`
	MaxTranslationLength  int `env:"MAX_TRANSLATION_LENGTH,default=500"`
	MaxNegotiationHistory int `env:"MAX_NEGOTIATION_HISTORY,default=10"`

	// AI collaborator. With an empty API key or AI_PROVIDER=fallback the
	// gateway runs entirely on deterministic fallback data.
	AIProvider        string  `env:"AI_PROVIDER,default=gemini"`
	GeminiAPIKey      string  `env:"GEMINI_API_KEY"`
	GeminiModel       string  `env:"GEMINI_MODEL,default=gemini-pro"`
	GeminiTemperature float64 `env:"GEMINI_TEMPERATURE,default=0.7"`
	GeminiMaxTokens   int     `env:"GEMINI_MAX_TOKENS,default=1000"`
	GeminiTimeoutSec  int     `env:"GEMINI_TIMEOUT,default=10"`

	// Optional Redis response cache for translate and price-suggest.
	RedisURL               string `env:"REDIS_URL"`
	EnableCaching          bool   `env:"ENABLE_CACHING,default=true"`
	TranslationCacheTTLSec int    `env:"TRANSLATION_CACHE_TTL,default=3600"`
	PriceCacheTTLSec       int    `env:"PRICE_CACHE_TTL,default=1800"`

	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	HTTPReadTimeoutSec  int `env:"HTTP_READ_TIMEOUT,default=30"`
	HTTPWriteTimeoutSec int `env:"HTTP_WRITE_TIMEOUT,default=30"`

	// WebSocket tuning.
	WSPingIntervalSec int `env:"WS_PING_INTERVAL,default=30"`
	WSReadTimeoutSec  int `env:"WS_READ_TIMEOUT,default=60"`
	WSWriteTimeoutSec int `env:"WS_WRITE_TIMEOUT,default=10"`
	WSSendBuffer      int `env:"WS_SEND_BUFFER,default=100"`
	WSMessagesPerSec  int `env:"WS_MESSAGES_PER_SEC,default=10"`
	WSMessageBurst    int `env:"WS_MESSAGE_BURST,default=20"`
}

// Load reads Settings from the environment and validates them.
func Load() (*Settings, error) {
	var s Settings
	if _, err := env.UnmarshalFromEnviron(&s); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects configurations that would fail at runtime.
func (s *Settings) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", s.Port)
	}

	switch strings.ToLower(s.Environment) {
	case "development", "staging", "production", "testing":
		s.Environment = strings.ToLower(s.Environment)
	default:
		return fmt.Errorf("ENVIRONMENT must be one of development, staging, production, testing: %q", s.Environment)
	}

	switch strings.ToUpper(s.LogLevel) {
	case "DEBUG", "INFO", "WARNING", "ERROR":
		s.LogLevel = strings.ToUpper(s.LogLevel)
	default:
		return fmt.Errorf("LOG_LEVEL must be one of DEBUG, INFO, WARNING, ERROR: %q", s.LogLevel)
	}

	switch strings.ToLower(s.AIProvider) {
	case "gemini", "fallback":
		s.AIProvider = strings.ToLower(s.AIProvider)
	default:
		return fmt.Errorf("AI_PROVIDER must be gemini or fallback: %q", s.AIProvider)
	}

	if s.GeminiTemperature < 0 || s.GeminiTemperature > 1 {
		return fmt.Errorf("GEMINI_TEMPERATURE must be between 0.0 and 1.0, got %g", s.GeminiTemperature)
	}

	if s.RateLimitRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", s.RateLimitRequests)
	}
	if s.RateLimitWindowSec <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %d", s.RateLimitWindowSec)
	}

	if len(s.CORSOriginList()) == 0 {
		return fmt.Errorf("at least one CORS origin must be configured")
	}

	if s.WSSendBuffer <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive, got %d", s.WSSendBuffer)
	}

	return nil
}

// CORSOriginList splits the configured origins, dropping empty entries.
func (s *Settings) CORSOriginList() []string {
	var origins []string
	for _, o := range strings.Split(s.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// IsProduction reports whether the gateway runs with production error
// redaction (raw error detail hidden from clients).
func (s *Settings) IsProduction() bool {
	return s.Environment == "production"
}

func (s *Settings) RateLimitWindow() time.Duration {
	return time.Duration(s.RateLimitWindowSec) * time.Second
}

func (s *Settings) GeminiTimeout() time.Duration {
	return time.Duration(s.GeminiTimeoutSec) * time.Second
}

func (s *Settings) TranslationCacheTTL() time.Duration {
	return time.Duration(s.TranslationCacheTTLSec) * time.Second
}

func (s *Settings) PriceCacheTTL() time.Duration {
	return time.Duration(s.PriceCacheTTLSec) * time.Second
}

func (s *Settings) HTTPReadTimeout() time.Duration {
	return time.Duration(s.HTTPReadTimeoutSec) * time.Second
}

func (s *Settings) HTTPWriteTimeout() time.Duration {
	return time.Duration(s.HTTPWriteTimeoutSec) * time.Second
}

func (s *Settings) WSPingInterval() time.Duration {
	return time.Duration(s.WSPingIntervalSec) * time.Second
}

func (s *Settings) WSReadTimeout() time.Duration {
	return time.Duration(s.WSReadTimeoutSec) * time.Second
}

func (s *Settings) WSWriteTimeout() time.Duration {
	return time.Duration(s.WSWriteTimeoutSec) * time.Second
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"mandi-gateway/internal/ai"
	"mandi-gateway/internal/api"
	"mandi-gateway/internal/broadcast"
	"mandi-gateway/internal/cache"
	"mandi-gateway/internal/config"
	"mandi-gateway/internal/ratelimit"
	"mandi-gateway/internal/room"
	"mandi-gateway/internal/websocket"
)

// Application coordinates all gateway components. Construction follows
// strict dependency order:
// Settings → Limiter → Registry → Rooms → Broadcaster → Provider → Cache → WS → API → HTTP
type Application struct {
	cfg         *config.Settings
	log         *slog.Logger
	limiter     *ratelimit.Limiter
	registry    *websocket.Registry
	rooms       *room.Directory
	broadcaster *broadcast.Broadcaster
	respCache   *cache.Cache
	apiServer   *api.Server
	httpServer  *http.Server

	janitorCancel context.CancelFunc
}

// NewApplication builds a fully wired gateway from cfg. A nil cfg is
// loaded from the environment.
func NewApplication(cfg *config.Settings, log *slog.Logger) (*Application, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}
	if log == nil {
		log = cfg.NewLogger()
	}

	var limiter *ratelimit.Limiter
	if cfg.EnableRateLimiting {
		limiter = ratelimit.NewLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow())
	}

	registry := websocket.NewRegistry(log)
	rooms := room.NewDirectory()
	broadcaster := broadcast.NewBroadcaster(registry, rooms, log)

	provider := selectProvider(cfg, log)

	respCache, err := buildCache(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize response cache: %w", err)
	}

	wsHandler := websocket.NewHandler(registry, rooms, broadcaster, websocket.HandlerConfig{
		AllowedOrigins: cfg.CORSOriginList(),
		PingInterval:   cfg.WSPingInterval(),
		ReadTimeout:    cfg.WSReadTimeout(),
		WriteTimeout:   cfg.WSWriteTimeout(),
		SendBuffer:     cfg.WSSendBuffer,
		MessagesPerSec: cfg.WSMessagesPerSec,
		MessageBurst:   cfg.WSMessageBurst,
	}, log)

	apiServer := api.NewServer(cfg, provider, respCache, registry, rooms, limiter, wsHandler, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      apiServer,
		ReadTimeout:  cfg.HTTPReadTimeout(),
		WriteTimeout: cfg.HTTPWriteTimeout(),
	}

	return &Application{
		cfg:         cfg,
		log:         log,
		limiter:     limiter,
		registry:    registry,
		rooms:       rooms,
		broadcaster: broadcaster,
		respCache:   respCache,
		apiServer:   apiServer,
		httpServer:  httpServer,
	}, nil
}

// selectProvider picks the AI collaborator. Without an API key the
// gateway runs entirely on deterministic fallback data.
func selectProvider(cfg *config.Settings, log *slog.Logger) ai.Provider {
	if cfg.AIProvider == "gemini" && cfg.GeminiAPIKey != "" {
		log.Info("using Gemini AI provider", "model", cfg.GeminiModel)
		return ai.NewGemini(ai.GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.GeminiTemperature,
			MaxTokens:   cfg.GeminiMaxTokens,
			Timeout:     cfg.GeminiTimeout(),
		})
	}

	log.Info("using deterministic fallback provider")
	return ai.NewFallback()
}

func buildCache(cfg *config.Settings, log *slog.Logger) (*cache.Cache, error) {
	if !cfg.EnableCaching || cfg.RedisURL == "" {
		return nil, nil
	}
	return cache.New(cfg.RedisURL, log)
}

// Start launches background workers and the HTTP server. It returns
// once the server is accepting connections or startup failed.
func (app *Application) Start(ctx context.Context) error {
	app.log.Info("starting gateway", "addr", app.httpServer.Addr, "environment", app.cfg.Environment)

	if app.limiter != nil {
		janitorCtx, cancel := context.WithCancel(context.Background())
		app.janitorCancel = cancel
		app.limiter.StartJanitor(janitorCtx)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		app.stopWorkers()
		return err
	case <-time.After(100 * time.Millisecond):
		app.log.Info("gateway started")
		return nil
	case <-ctx.Done():
		app.stopWorkers()
		return ctx.Err()
	}
}

// Stop shuts the gateway down in reverse dependency order:
// HTTP → workers → cache.
func (app *Application) Stop(ctx context.Context) error {
	app.log.Info("shutting down gateway")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		app.log.Error("HTTP server shutdown error", "error", err)
	}

	app.stopWorkers()

	if err := app.respCache.Close(); err != nil {
		app.log.Error("cache shutdown error", "error", err)
	}

	app.log.Info("gateway shutdown complete")
	return nil
}

func (app *Application) stopWorkers() {
	if app.janitorCancel != nil {
		app.janitorCancel()
		app.janitorCancel = nil
	}
}

// Addr returns the server address for external connections.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}

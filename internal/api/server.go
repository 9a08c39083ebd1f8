package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"

	"mandi-gateway/internal/ai"
	"mandi-gateway/internal/cache"
	"mandi-gateway/internal/config"
	"mandi-gateway/internal/ratelimit"
	"mandi-gateway/internal/room"
	"mandi-gateway/internal/websocket"
)

// Server is the HTTP surface of the gateway: the three assistant
// endpoints, the informational endpoints, and the WebSocket upgrade
// path. It holds no business state of its own.
type Server struct {
	cfg       *config.Settings
	provider  ai.Provider
	fallback  ai.Provider
	respCache *cache.Cache
	registry  *websocket.Registry
	rooms     *room.Directory
	limiter   *ratelimit.Limiter
	wsHandler http.Handler
	log       *slog.Logger

	mux       *http.ServeMux
	handler   http.Handler
	startedAt time.Time
}

// NewServer wires the HTTP surface. limiter may be nil when rate
// limiting is disabled; respCache may be nil when caching is disabled.
func NewServer(
	cfg *config.Settings,
	provider ai.Provider,
	respCache *cache.Cache,
	registry *websocket.Registry,
	rooms *room.Directory,
	limiter *ratelimit.Limiter,
	wsHandler http.Handler,
	log *slog.Logger,
) *Server {
	s := &Server{
		cfg:       cfg,
		provider:  provider,
		fallback:  ai.NewFallback(),
		respCache: respCache,
		registry:  registry,
		rooms:     rooms,
		limiter:   limiter,
		wsHandler: wsHandler,
		log:       log,
		mux:       http.NewServeMux(),
		startedAt: time.Now(),
	}

	s.setupRoutes()
	s.handler = s.recoveryMiddleware(s.corsMiddleware(s.rateLimitMiddleware(s.mux)))
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/translate", s.methodGuard(http.MethodPost, s.handleTranslate))
	s.mux.HandleFunc("/api/price-suggest", s.methodGuard(http.MethodPost, s.handlePriceSuggest))
	s.mux.HandleFunc("/api/negotiate", s.methodGuard(http.MethodPost, s.handleNegotiate))
	s.mux.HandleFunc("/health", s.methodGuard(http.MethodGet, s.handleHealth))
	s.mux.HandleFunc("/version", s.methodGuard(http.MethodGet, s.handleVersion))
	s.mux.HandleFunc("/", s.handleRoot)
	if s.wsHandler != nil {
		s.mux.Handle("/ws/", s.wsHandler)
	}
}

// Handler returns the full middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// methodGuard rejects requests with the wrong method; OPTIONS is left
// to the CORS middleware.
func (s *Server) methodGuard(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed,
				"method "+r.Method+" not allowed", "")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, CodeNotFound, "resource not found", "")
		return
	}

	writeSuccess(w, map[string]any{
		"message": s.cfg.AppName + " - Empowering Local Trade with AI",
		"status":  "running",
		"version": s.cfg.AppVersion,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, HealthResponse{
		Status:      "healthy",
		Service:     s.cfg.AppName,
		Version:     s.cfg.AppVersion,
		Environment: s.cfg.Environment,
		Timestamp:   time.Now().UTC(),
		Features: map[string]bool{
			"rate_limiting": s.limiter != nil,
			"caching":       s.respCache != nil,
			"ai_provider":   s.cfg.AIProvider == "gemini" && s.cfg.GeminiAPIKey != "",
		},
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Connections: map[string]int{
			"active_connections": s.registry.Count(),
			"active_rooms":       s.rooms.Count(),
		},
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, VersionResponse{
		AppName:     s.cfg.AppName,
		Version:     s.cfg.AppVersion,
		Environment: s.cfg.Environment,
	})
}

// corsMiddleware restricts cross-origin access to the configured
// origins and answers preflight requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	origins := s.cfg.CORSOriginList()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (lo.Contains(origins, "*") || lo.Contains(origins, origin)) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Client-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware admits every request through the fixed-window
// limiter before any handler executes. A nil limiter disables it.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}

	return ratelimit.Middleware(ratelimit.Options{
		Limiter:            s.limiter,
		KeyHeader:          "X-Client-ID",
		TrustXForwardedFor: true,
		OnReject: func(w http.ResponseWriter, r *http.Request, d ratelimit.Decision) {
			writeError(w, http.StatusTooManyRequests, CodeRateLimitExceeded,
				"rate limit exceeded, retry after "+d.ResetAt.UTC().Format(time.RFC3339), "")
		},
	})(next)
}

// recoveryMiddleware converts panics into a 500 envelope. The raw
// detail is exposed only outside production.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic in request handler", "path", r.URL.Path, "panic", rec)

				message := "internal server error"
				if !s.cfg.IsProduction() {
					message = fmt.Sprintf("internal server error: %v", rec)
				}
				writeError(w, http.StatusInternalServerError, CodeInternalError, message, "")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"mandi-gateway/internal/room"
)

// ChatRouter fans an inbound negotiation message out to its room.
// Implemented by the broadcaster; the indirection keeps this package
// free of a dependency on the delivery layer.
type ChatRouter interface {
	RouteChat(senderID, negotiationID string, payload map[string]any)
}

// HandlerConfig carries the tunables for client connections.
type HandlerConfig struct {
	AllowedOrigins []string
	PingInterval   time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int
	MessagesPerSec int
	MessageBurst   int
}

// Handler upgrades /ws/{client_id} requests and runs the per-client
// read loop: join requests update the room directory, anything else is
// routed as negotiation chat.
type Handler struct {
	registry *Registry
	rooms    *room.Directory
	chat     ChatRouter
	cfg      HandlerConfig
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(registry *Registry, rooms *room.Directory, chat ChatRouter, cfg HandlerConfig, log *slog.Logger) *Handler {
	h := &Handler{
		registry: registry,
		rooms:    rooms,
		chat:     chat,
		cfg:      cfg,
		log:      log,
	}

	h.upgrader = websocket.Upgrader{
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return lo.Contains(cfg.AllowedOrigins, "*") || lo.Contains(cfg.AllowedOrigins, origin)
		},
	}

	return h
}

// inboundMessage is the subset of client frames the gateway acts on.
type inboundMessage struct {
	Action        string `json:"action"`
	NegotiationID string `json:"negotiation_id"`
}

// ServeHTTP handles GET /ws/{client_id}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ws"), "/")
	if clientID == "" || strings.Contains(clientID, "/") {
		http.Error(w, "client_id required in path", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "client_id", clientID, "error", err)
		return
	}

	wsConn := NewConnection(conn, clientID, h.cfg.SendBuffer, h.cfg.WriteTimeout)

	if err := h.registry.Register(wsConn); err != nil {
		h.log.Error("failed to register connection", "client_id", clientID, "error", err)
		_ = wsConn.Close()
		return
	}

	h.log.Info("client connected", "client_id", clientID)

	go h.readLoop(wsConn)
}

// readLoop reads client frames until the connection dies, then removes
// the session and its room memberships.
func (h *Handler) readLoop(conn *Connection) {
	clientID := conn.ClientID()

	defer func() {
		h.registry.Remove(conn)
		h.rooms.Leave(clientID)
		_ = conn.Close()
		h.log.Info("client disconnected", "client_id", clientID)
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
					return
				}
			case <-conn.Done():
				return
			}
		}
	}()

	// Token bucket keeps one flooding client from saturating the fan-out
	// path; the fixed-window HTTP limiter does not see WS frames.
	flood := rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSec), h.cfg.MessageBurst)

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read error", "client_id", clientID, "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		if !flood.Allow() {
			h.sendSystem(conn, "error", map[string]any{"message": "too many messages, slow down"})
			continue
		}

		h.handleFrame(conn, data)
	}
}

func (h *Handler) handleFrame(conn *Connection, data []byte) {
	clientID := conn.ClientID()

	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendSystem(conn, "error", map[string]any{"message": "invalid JSON message"})
		return
	}

	if msg.NegotiationID == "" {
		h.sendSystem(conn, "error", map[string]any{"message": "negotiation_id is required"})
		return
	}

	if msg.Action == "join" {
		h.rooms.Join(clientID, msg.NegotiationID)
		h.log.Info("client joined negotiation", "client_id", clientID, "negotiation_id", msg.NegotiationID)
		h.sendSystem(conn, "joined", map[string]any{"negotiation_id": msg.NegotiationID})
		return
	}

	// Anything that is not a control action is negotiation chat. The raw
	// payload is preserved so clients can attach their own fields.
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendSystem(conn, "error", map[string]any{"message": "invalid JSON message"})
		return
	}

	h.chat.RouteChat(clientID, msg.NegotiationID, payload)
}

func (h *Handler) sendSystem(conn *Connection, event string, content map[string]any) {
	frame := map[string]any{
		"type":      "system",
		"event":     event,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range content {
		frame[k] = v
	}

	if err := conn.WriteJSON(frame); err != nil {
		h.log.Warn("failed to send system frame", "client_id", conn.ClientID(), "event", event, "error", err)
	}
}

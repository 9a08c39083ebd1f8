// Package broadcast delivers messages to negotiation rooms through the
// connection registry. Delivery failures are treated as disconnects and
// cascade into registry and room cleanup immediately.
package broadcast

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mandi-gateway/internal/room"
	"mandi-gateway/internal/websocket"
)

// Result reports the outcome of a room broadcast. Partial failure is
// not an error: callers only ever see counts.
type Result struct {
	Delivered int
	Failed    int
}

// Broadcaster resolves room membership and delivers payloads through
// the handles held by the registry.
type Broadcaster struct {
	registry *websocket.Registry
	rooms    *room.Directory
	log      *slog.Logger
}

// NewBroadcaster creates a broadcaster over the given registry and
// room directory.
func NewBroadcaster(registry *websocket.Registry, rooms *room.Directory, log *slog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		rooms:    rooms,
		log:      log,
	}
}

// Broadcast delivers payload to every live member of negotiationID.
// Members without a registered connection are skipped; members whose
// delivery fails are disconnected and removed from all rooms.
func (b *Broadcaster) Broadcast(negotiationID string, payload any) Result {
	var res Result

	for _, clientID := range b.rooms.Members(negotiationID) {
		conn, ok := b.registry.Lookup(clientID)
		if !ok {
			// Already disconnected, membership cleanup is in flight.
			continue
		}

		if err := conn.WriteJSON(payload); err != nil {
			b.log.Warn("delivery failed, disconnecting client",
				"client_id", clientID, "negotiation_id", negotiationID, "error", err)
			b.disconnect(conn)
			res.Failed++
			continue
		}
		res.Delivered++
	}

	return res
}

// SendDirect delivers payload to a single client, with the same
// failure-driven cleanup as a room broadcast.
func (b *Broadcaster) SendDirect(clientID string, payload any) error {
	conn, ok := b.registry.Lookup(clientID)
	if !ok {
		return ErrClientNotConnected
	}

	if err := conn.WriteJSON(payload); err != nil {
		b.log.Warn("direct delivery failed, disconnecting client", "client_id", clientID, "error", err)
		b.disconnect(conn)
		return err
	}

	return nil
}

// RouteChat wraps an inbound client frame in a chat envelope and fans
// it out to the negotiation room. Implements websocket.ChatRouter.
func (b *Broadcaster) RouteChat(senderID, negotiationID string, payload map[string]any) {
	msg := map[string]any{
		"type":           "chat",
		"message_id":     uuid.NewString(),
		"negotiation_id": negotiationID,
		"sender":         senderID,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range payload {
		if _, reserved := msg[k]; !reserved {
			msg[k] = v
		}
	}

	res := b.Broadcast(negotiationID, msg)
	b.log.Debug("chat routed",
		"negotiation_id", negotiationID, "sender", senderID,
		"delivered", res.Delivered, "failed", res.Failed)
}

// disconnect closes a failed handle and removes every trace of the
// client. Each step is idempotent, so racing with the read loop's own
// cleanup is harmless.
func (b *Broadcaster) disconnect(conn *websocket.Connection) {
	_ = conn.Close()
	b.registry.Remove(conn)
	b.rooms.Leave(conn.ClientID())
}

package websocket

import (
	"log/slog"
	"sync"
)

// Registry tracks live client connections by identifier. It owns the
// connection handles; room membership lives elsewhere and refers back
// into the registry by client id only.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Connection
	log     *slog.Logger
}

// NewRegistry creates an empty connection registry.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		clients: make(map[string]*Connection),
		log:     log,
	}
}

// Register stores conn under its client id, replacing any existing
// handle (last write wins). The replaced handle is closed outside the
// lock so a stalled socket cannot block registration.
func (r *Registry) Register(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}
	if conn.ClientID() == "" {
		return ErrEmptyClientID
	}

	clientID := conn.ClientID()

	r.mu.Lock()
	prev := r.clients[clientID]
	r.clients[clientID] = conn
	r.mu.Unlock()

	if prev != nil && prev != conn {
		go func() {
			if err := prev.Close(); err != nil {
				r.log.Warn("failed to close replaced connection", "client_id", clientID, "error", err)
			}
		}()
	}

	return nil
}

// Remove deletes the registration for conn. It is idempotent and only
// removes the entry when conn is the handle currently registered, so a
// stale connection's cleanup can never evict a reconnected client.
func (r *Registry) Remove(conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if registered, ok := r.clients[conn.ClientID()]; ok && registered == conn {
		delete(r.clients, conn.ClientID())
	}
}

// Lookup returns the live connection for clientID, if any.
func (r *Registry) Lookup(clientID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.clients[clientID]
	return conn, ok
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Connection wraps a WebSocket connection with a single writer
// goroutine. All sends go through writeCh, which gives each client
// FIFO delivery and keeps concurrent broadcasters off the socket.
type Connection struct {
	conn         *websocket.Conn
	clientID     string
	writeCh      chan []byte
	writeTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	closeOnce    sync.Once
}

// NewConnection creates a connection wrapper for clientID and starts
// its writer goroutine. bufferSize bounds the pending send queue.
func NewConnection(conn *websocket.Conn, clientID string, bufferSize int, writeTimeout time.Duration) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:         conn,
		clientID:     clientID,
		writeCh:      make(chan []byte, bufferSize),
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}

	go c.writeLoop()

	return c
}

// ClientID returns the identifier this connection was registered under.
func (c *Connection) ClientID() string { return c.clientID }

// writeLoop is the only goroutine touching the socket for data frames.
// writeCh is never closed: senders blocked on it are released by
// ctx.Done, and the channel is collected with the Connection.
func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON queues v for delivery. It fails once the connection is
// closed or when the send queue stays full past the write timeout,
// which broadcasters treat as a dead client.
func (c *Connection) WriteJSON(v any) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(c.writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close tears down the connection. Safe to call multiple times and
// from any goroutine; in-flight deliveries to other clients are not
// affected.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// Done is closed when the connection has been shut down.
func (c *Connection) Done() <-chan struct{} { return c.ctx.Done() }

package websocket

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	registry := newTestRegistry()
	conn := newTestConnection(t, "vendor-1")

	require.NoError(t, registry.Register(conn))

	got, ok := registry.Lookup("vendor-1")
	require.True(t, ok)
	assert.Same(t, conn, got)
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_RegisterValidation(t *testing.T) {
	registry := newTestRegistry()

	assert.ErrorIs(t, registry.Register(nil), ErrNilConnection)

	conn := newTestConnection(t, "")
	assert.ErrorIs(t, registry.Register(conn), ErrEmptyClientID)
}

func TestRegistry_ReconnectReplacesPriorHandle(t *testing.T) {
	registry := newTestRegistry()

	first := newTestConnection(t, "vendor-1")
	second := newTestConnection(t, "vendor-1")

	require.NoError(t, registry.Register(first))
	require.NoError(t, registry.Register(second))

	got, ok := registry.Lookup("vendor-1")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, registry.Count())

	// The replaced handle is closed asynchronously.
	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatal("replaced connection was not closed")
	}
}

func TestRegistry_StaleRemoveCannotEvictReconnect(t *testing.T) {
	registry := newTestRegistry()

	stale := newTestConnection(t, "vendor-1")
	fresh := newTestConnection(t, "vendor-1")

	require.NoError(t, registry.Register(stale))
	require.NoError(t, registry.Register(fresh))

	// The stale connection's deferred cleanup fires after the client
	// already reconnected; the fresh registration must survive it.
	registry.Remove(stale)

	got, ok := registry.Lookup("vendor-1")
	require.True(t, ok)
	assert.Same(t, fresh, got)
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	registry := newTestRegistry()
	conn := newTestConnection(t, "vendor-1")

	require.NoError(t, registry.Register(conn))

	registry.Remove(conn)
	registry.Remove(conn)
	registry.Remove(nil)

	_, ok := registry.Lookup("vendor-1")
	assert.False(t, ok)
	assert.Equal(t, 0, registry.Count())
}

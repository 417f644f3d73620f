package ws_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/LeonanFr/FindTheBug/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	c.messages = append(c.messages, buf)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestBroadcastScopedToSession(t *testing.T) {
	hub := ws.NewHub()
	a1, a2, b1 := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Register("AAAAAA", a1)
	hub.Register("AAAAAA", a2)
	hub.Register("BBBBBB", b1)

	hub.Broadcast("AAAAAA", ws.Message{Type: "LOBBY_UPDATE"})

	assert.Len(t, a1.received(), 1)
	assert.Len(t, a2.received(), 1)
	assert.Empty(t, b1.received(), "other sessions must not receive the message")

	var msg ws.Message
	require.NoError(t, json.Unmarshal(a1.received()[0], &msg))
	assert.Equal(t, "LOBBY_UPDATE", msg.Type)
}

func TestSendTo(t *testing.T) {
	hub := ws.NewHub()
	conn, other := &fakeConn{}, &fakeConn{}
	hub.Register("AAAAAA", conn)
	hub.Register("AAAAAA", other)

	hub.SendTo(conn, ws.Message{Type: "ERROR", Data: map[string]string{"message": "nope"}})

	assert.Len(t, conn.received(), 1)
	assert.Empty(t, other.received())
}

func TestSessionFor(t *testing.T) {
	hub := ws.NewHub()
	conn := &fakeConn{}

	_, ok := hub.SessionFor(conn)
	assert.False(t, ok)

	hub.Register("AAAAAA", conn)
	sessionID, ok := hub.SessionFor(conn)
	require.True(t, ok)
	assert.Equal(t, "AAAAAA", sessionID)
}

func TestRegisterMovesConnectionBetweenSessions(t *testing.T) {
	hub := ws.NewHub()
	conn := &fakeConn{}
	hub.Register("AAAAAA", conn)
	hub.Register("BBBBBB", conn)

	sessionID, ok := hub.SessionFor(conn)
	require.True(t, ok)
	assert.Equal(t, "BBBBBB", sessionID)

	hub.Broadcast("AAAAAA", ws.Message{Type: "STALE"})
	assert.Empty(t, conn.received(), "connection must leave its previous session")
}

func TestUnregister(t *testing.T) {
	hub := ws.NewHub()
	conn := &fakeConn{}
	hub.Register("AAAAAA", conn)
	hub.Unregister(conn)

	_, ok := hub.SessionFor(conn)
	assert.False(t, ok)

	hub.Broadcast("AAAAAA", ws.Message{Type: "AFTER"})
	assert.Empty(t, conn.received())
	assert.False(t, conn.isClosed(), "unregister must not close the connection")
}

func TestCloseSession(t *testing.T) {
	hub := ws.NewHub()
	a1, a2, b1 := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Register("AAAAAA", a1)
	hub.Register("AAAAAA", a2)
	hub.Register("BBBBBB", b1)

	hub.CloseSession("AAAAAA")

	assert.True(t, a1.isClosed())
	assert.True(t, a2.isClosed())
	assert.False(t, b1.isClosed())

	_, ok := hub.SessionFor(a1)
	assert.False(t, ok)

	hub.Broadcast("AAAAAA", ws.Message{Type: "AFTER"})
	assert.Empty(t, a1.received())
}

func TestConcurrentBroadcast(t *testing.T) {
	hub := ws.NewHub()
	conn := &fakeConn{}
	hub.Register("AAAAAA", conn)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast("AAAAAA", ws.Message{Type: "GAME_STATE_UPDATE"})
		}()
	}
	wg.Wait()

	assert.Len(t, conn.received(), 10)
}

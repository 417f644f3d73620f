package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is the slice of *websocket.Conn the hub needs. The hub treats it as
// an opaque handle and never owns a connection's lifetime beyond CloseSession.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub maps session ids to their live connections, plus the reverse map from
// connection to session, under a single mutex. Writes to connections are
// serialized by a dedicated send mutex so concurrent broadcasts never
// interleave partial frames.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[Conn]bool
	conns    map[Conn]string

	sendMu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[Conn]bool),
		conns:    make(map[Conn]string),
	}
}

func (h *Hub) Register(sessionID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.conns[conn]; ok && prev != sessionID {
		h.removeLocked(prev, conn)
	}

	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[Conn]bool)
	}
	h.sessions[sessionID][conn] = true
	h.conns[conn] = sessionID
	log.Printf("ws: client joined session %s (total: %d)", sessionID, len(h.sessions[sessionID]))
}

// Unregister detaches a connection without closing it.
func (h *Hub) Unregister(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionID, ok := h.conns[conn]
	if !ok {
		return
	}
	h.removeLocked(sessionID, conn)
	log.Printf("ws: client left session %s", sessionID)
}

// SessionFor returns the session a connection is attached to, if any.
func (h *Hub) SessionFor(conn Conn) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessionID, ok := h.conns[conn]
	return sessionID, ok
}

// Broadcast sends a message to every connection in a session. The target set
// is snapshotted under the lock and written outside it.
func (h *Hub) Broadcast(sessionID string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}

	h.mu.RLock()
	targets := make([]Conn, 0, len(h.sessions[sessionID]))
	for conn := range h.sessions[sessionID] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		h.write(conn, data)
	}
}

// SendTo sends a message to a single connection.
func (h *Hub) SendTo(conn Conn, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}
	h.write(conn, data)
}

// CloseSession evicts and closes every connection of a session, used when a
// game reaches a terminal outcome.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	targets := make([]Conn, 0, len(h.sessions[sessionID]))
	for conn := range h.sessions[sessionID] {
		targets = append(targets, conn)
		delete(h.conns, conn)
	}
	delete(h.sessions, sessionID)
	h.mu.Unlock()

	for _, conn := range targets {
		conn.Close()
	}
	log.Printf("ws: session %s closed (%d connections evicted)", sessionID, len(targets))
}

func (h *Hub) write(conn Conn, data []byte) {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("ws: write error: %v", err)
	}
}

func (h *Hub) removeLocked(sessionID string, conn Conn) {
	if conns, ok := h.sessions[sessionID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.sessions, sessionID)
		}
	}
	delete(h.conns, conn)
}

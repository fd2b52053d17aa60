package diagnostics

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const maxDiagnosticsConnections = 200

// WebSocketSink broadcasts every Snapshot to connected dashboard
// clients, matching control_plane/ws_hub.go's client-map-plus-broadcast
// shape: a registered-clients map guarded by a mutex, a write deadline
// per send so one dead connection can't stall the rest, and a
// connection cap.
type WebSocketSink struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

// NewWebSocketSink returns an empty hub; call ServeHTTP to accept
// connections on whatever mux the caller wires it to.
func NewWebSocketSink() *WebSocketSink {
	return &WebSocketSink{clients: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades the request to a websocket connection and
// registers it, rejecting new connections once at capacity.
func (s *WebSocketSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("diagnostics: websocket upgrade failed: %v", err)
		return
	}

	s.mu.Lock()
	if len(s.clients) >= maxDiagnosticsConnections {
		s.mu.Unlock()
		conn.Close()
		log.Printf("diagnostics: websocket connection rejected: max connections (%d) reached", maxDiagnosticsConnections)
		return
	}
	s.clients[conn] = struct{}{}
	s.mu.Unlock()
}

// Publish sends s as JSON to every connected client, unregistering any
// that fail to accept it within a short deadline.
func (s *WebSocketSink) Publish(ctx context.Context, snap Snapshot) error {
	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	var dead []*websocket.Conn
	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteJSON(snap); err != nil {
			dead = append(dead, c)
		}
	}

	if len(dead) > 0 {
		s.mu.Lock()
		for _, c := range dead {
			delete(s.clients, c)
			c.Close()
		}
		s.mu.Unlock()
	}
	return nil
}

// ClientCount reports the number of currently connected clients.
func (s *WebSocketSink) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

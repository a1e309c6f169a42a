package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"audite/internal/metrics"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans session events out to the live clients watching each session
type Hub struct {
	// Session -> connections; one respondent may have several tabs open
	sessions map[string]map[*Connection]bool

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	quit       chan struct{}
	done       chan struct{}

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Connection represents a WebSocket connection
type Connection struct {
	SessionID string
	Send      chan []byte
	Hub       *Hub
}

// BroadcastMessage is a message for every connection of a session.
// Close disconnects them once the messages queued before it are written.
type BroadcastMessage struct {
	SessionID string
	Data      []byte
	Close     bool
}

// NewHub creates a new WebSocket hub
func NewHub(m *metrics.Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		sessions:   make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		metrics:    m,
		logger:     logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.sessions[conn.SessionID] == nil {
				h.sessions[conn.SessionID] = make(map[*Connection]bool)
			}
			h.sessions[conn.SessionID][conn] = true
			h.mu.Unlock()
			h.gauge(1)
			h.logger.Debug("live client connected", "session_id", conn.SessionID)

		case conn := <-h.unregister:
			h.mu.Lock()
			removed := h.remove(conn)
			h.mu.Unlock()
			if removed {
				h.logger.Debug("live client disconnected", "session_id", conn.SessionID)
			}

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.sessions[msg.SessionID] {
				if msg.Close {
					h.remove(conn)
					continue
				}
				select {
				case conn.Send <- msg.Data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for _, conns := range h.sessions {
				for conn := range conns {
					h.remove(conn)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove closes conn if it is still registered; callers hold mu
func (h *Hub) remove(conn *Connection) bool {
	conns, ok := h.sessions[conn.SessionID]
	if !ok || !conns[conn] {
		return false
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.sessions, conn.SessionID)
	}
	close(conn.Send)
	h.gauge(-1)
	return true
}

func (h *Hub) gauge(delta float64) {
	if h.metrics != nil {
		h.metrics.LiveClients.Add(delta)
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Clients returns the number of live connections of a session
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// BroadcastToSession sends a message to every client of a session (implements service.Broadcaster)
func (h *Hub) BroadcastToSession(sessionID string, msgType string, payload interface{}) {
	data, err := Encode(msgType, payload)
	if err != nil {
		h.logger.Error("failed to encode live message", "type", msgType, "error", err)
		return
	}
	h.send(&BroadcastMessage{SessionID: sessionID, Data: data})
}

// DisconnectSession closes every client of a session after its pending messages (implements service.Broadcaster)
func (h *Hub) DisconnectSession(sessionID string) {
	h.send(&BroadcastMessage{SessionID: sessionID, Close: true})
}

// Shutdown disconnects every client and stops the hub
func (h *Hub) Shutdown() {
	select {
	case <-h.quit:
	default:
		close(h.quit)
	}
	<-h.done
}

func (h *Hub) send(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Encode wraps a payload in the message envelope
func Encode(msgType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Message{Type: msgType, Payload: data})
}

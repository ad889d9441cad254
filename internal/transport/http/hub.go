package http

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// pushMessage is the wire envelope for every event on the socket.
type pushMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Hub is the broadcast gateway: it keeps a per-session set of subscriber
// connections and fans state-change events out to them. Delivery is
// best-effort with no retry or ack; a client that misses an event recovers
// current truth through the pull endpoints.
type Hub struct {
	log *logrus.Logger

	mu       sync.RWMutex
	sessions map[string]map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		log:      log,
		sessions: make(map[string]map[*hubClient]struct{}),
	}
}

// Subscribe registers a connection under a session channel and starts its
// write pump. The returned client must be passed back to Unsubscribe when
// the connection closes.
func (h *Hub) Subscribe(sessionID string, conn *websocket.Conn) *hubClient {
	client := &hubClient{
		conn: conn,
		send: make(chan []byte, 16),
	}
	go client.writePump()

	h.mu.Lock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*hubClient]struct{})
	}
	h.sessions[sessionID][client] = struct{}{}
	n := len(h.sessions[sessionID])
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"session": sessionID, "subscribers": n}).Debug("ws subscribed")
	return client
}

// Unsubscribe detaches a connection from its session channel.
func (h *Hub) Unsubscribe(sessionID string, client *hubClient) {
	h.mu.Lock()
	if clients, ok := h.sessions[sessionID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.sessions, sessionID)
		}
	}
	h.mu.Unlock()
	client.close()
}

// Publish delivers an event to every current subscriber of the session.
// A subscriber with a full send buffer just misses the event; the slow
// client must not stall the mutating path or its peers.
func (h *Hub) Publish(sessionID, event string, payload any) {
	data, err := json.Marshal(pushMessage{Type: event, Payload: payload})
	if err != nil {
		h.log.WithError(err).WithField("event", event).Warn("ws marshal failed")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.sessions[sessionID] {
		select {
		case client.send <- data:
		default:
			h.log.WithFields(logrus.Fields{"session": sessionID, "event": event}).
				Warn("ws subscriber buffer full, event dropped")
		}
	}
}

// DropSession closes every subscriber of an ended session and removes the
// channel.
func (h *Hub) DropSession(sessionID string) {
	h.mu.Lock()
	clients := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()

	for client := range clients {
		client.close()
	}
}

func (c *hubClient) writePump() {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.Close()
}

func (c *hubClient) close() {
	c.once.Do(func() { close(c.send) })
}

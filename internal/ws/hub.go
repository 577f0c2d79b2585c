// Package ws carries the socket side of the chat gateway. Clients exchange
// JSON envelopes {"event": ..., "data": ...} over a gorilla/websocket
// connection; replies go to the originating user's connections only.
package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/wuwenbin0122/vishai/internal/models"
)

const (
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type SendMessagePayload struct {
	Token string `json:"token"`
	Text  string `json:"text"`
}

type ReceiveMessagePayload struct {
	Sender models.Sender `json:"sender"`
	Text   string        `json:"text"`
}

// Hub is the connection registry, keyed by user id.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	closed  bool
	logger  *zap.SugaredLogger
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hub{clients: make(map[string]map[*Client]struct{}), logger: logger}
}

func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.logger.Debugw("socket registered", "user_id", c.userID, "conn_id", c.id, "user_conns", len(set))
	return true
}

// Unregister removes c and closes its send queue. Safe to call repeatedly.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}

	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	h.logger.Debugw("socket unregistered", "user_id", c.userID, "conn_id", c.id)
}

// SendToUser queues an event on every connection of userID and returns how
// many accepted it. Connections whose queue is full are dropped.
func (h *Hub) SendToUser(userID, event string, payload any) int {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Errorw("marshal socket payload", "event", event, "error", err)
		return 0
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Errorw("marshal socket envelope", "event", event, "error", err)
		return 0
	}

	var slow []*Client
	delivered := 0

	h.mu.RLock()
	for c := range h.clients[userID] {
		select {
		case c.send <- frame:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warnw("dropping slow socket", "user_id", userID, "conn_id", c.id)
		h.Unregister(c)
	}

	return delivered
}

// Count returns the number of live connections for userID.
func (h *Hub) Count(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Close disconnects every client and refuses new registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, set := range h.clients {
		for c := range set {
			h.removeLocked(c)
		}
	}
}

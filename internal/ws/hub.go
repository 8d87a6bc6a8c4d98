package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Message is the envelope for every frame pushed to a client.
type Message struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Hub tracks connected clients keyed by user id and fans messages out to
// them. Delivery is best-effort: a client whose send buffer is full is
// dropped rather than ever blocking a sender.
type Hub struct {
	register   chan *Client
	unregister chan *Client

	mutex sync.RWMutex
	users map[string]map[*Client]bool
	log   *logrus.Logger
}

// NewHub creates a Hub. Call Run in its own goroutine before serving
// connections.
func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		users:      make(map[string]map[*Client]bool),
		log:        log,
	}
}

// Run processes register/unregister events until the channels are drained.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.users[client.userID] == nil {
		h.users[client.userID] = make(map[*Client]bool)
	}
	h.users[client.userID][client] = true

	h.log.WithField("user_id", client.userID).Debug("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients, ok := h.users[client.userID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.users, client.userID)
	}
	close(client.send)

	h.log.WithField("user_id", client.userID).Debug("websocket client disconnected")
}

// SendToUser pushes a message to every connection the user has. Unknown
// users and full buffers are silently skipped.
func (h *Hub) SendToUser(userID string, msgType string, data interface{}) {
	payload, err := json.Marshal(Message{
		Type:      msgType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
	if err != nil {
		h.log.WithError(err).Warn("failed to encode websocket message")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.users[userID] {
		select {
		case client.send <- payload:
		default:
			// Slow consumer: drop the connection, not the sender.
			delete(h.users[userID], client)
			close(client.send)
		}
	}
	if len(h.users[userID]) == 0 {
		delete(h.users, userID)
	}
}

// Broadcast pushes a message to every connected client.
func (h *Hub) Broadcast(msgType string, data interface{}) {
	payload, err := json.Marshal(Message{
		Type:      msgType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
	if err != nil {
		h.log.WithError(err).Warn("failed to encode websocket message")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for userID, clients := range h.users {
		for client := range clients {
			select {
			case client.send <- payload:
			default:
				delete(clients, client)
				close(client.send)
			}
		}
		if len(clients) == 0 {
			delete(h.users, userID)
		}
	}
}

package relay

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

type client struct {
	userID string
	send   chan []byte
}

// Hub tracks the websocket clients of every user. Each client owns a bounded
// send queue; a full queue drops the message rather than stalling the others.
type Hub struct {
	buffer int
	logger log.FieldLogger

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

func NewHub(buffer int, logger log.FieldLogger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Hub{buffer: buffer, logger: logger, clients: make(map[string]map[*client]struct{})}
}

// add registers a client whose queue already holds greeting.
func (h *Hub) add(userID string, greeting []byte) *client {
	c := &client{userID: userID, send: make(chan []byte, h.buffer)}
	if greeting != nil {
		c.send <- greeting
	}
	h.mu.Lock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// remove unregisters c and closes its queue. It is safe to call twice.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.userID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
}

// Broadcast queues data for every client of userID, or for every client
// when userID is empty. It returns the number of clients that accepted it.
func (h *Hub) Broadcast(userID string, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for uid, set := range h.clients {
		if userID != "" && uid != userID {
			continue
		}
		for c := range set {
			select {
			case c.send <- data:
				delivered++
			default:
				h.logger.WithField("user_id", uid).Warn("relay.client.queue_full")
			}
		}
	}
	return delivered
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

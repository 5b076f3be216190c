package ws

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	RoomDashboard = "dashboard"

	EventDashboardUpdate  = "dashboard_update"
	EventProductAnalytics = "product_analytics"
	EventOrderUpdate      = "order_update"
	EventInventoryAlert   = "inventory_alert"
)

// Event is the wire format for every server-pushed message.
type Event struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub tracks connected clients and their room subscriptions. Push delivery is
// best-effort: a client with a full send buffer is dropped rather than
// blocking the broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
		logger:  logger,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	c.closeSend()
}

// Join subscribes a client to a room.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
}

// RoomSize returns the number of subscribers in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Rooms returns the names of all non-empty rooms.
func (h *Hub) Rooms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.rooms))
	for room := range h.rooms {
		names = append(names, room)
	}
	return names
}

// BroadcastToRoom sends an event to every subscriber of a room.
func (h *Hub) BroadcastToRoom(room, event string, data interface{}) {
	payload, err := json.Marshal(Event{Event: event, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		h.logger.Error("Failed to marshal ws event", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.enqueue(h, payload)
	}
}

// PublishOrderUpdate pushes an order lifecycle change to dashboard viewers.
func (h *Hub) PublishOrderUpdate(data interface{}) {
	h.BroadcastToRoom(RoomDashboard, EventOrderUpdate, data)
}

// PublishInventoryAlert pushes a low-stock warning to dashboard viewers.
func (h *Hub) PublishInventoryAlert(data interface{}) {
	h.BroadcastToRoom(RoomDashboard, EventInventoryAlert, data)
}

// BroadcastAll sends an event to every connected client.
func (h *Hub) BroadcastAll(event string, data interface{}) {
	payload, err := json.Marshal(Event{Event: event, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		h.logger.Error("Failed to marshal ws event", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.enqueue(h, payload)
	}
}

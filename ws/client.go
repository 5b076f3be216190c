package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard data is not user-scoped; cross-origin reads are acceptable.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Client struct {
	conn *websocket.Conn

	// mu guards send and closed: broadcasters may race the unregister path,
	// and a send on a closed channel panics.
	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// clientMessage is what browsers send to subscribe to feeds.
type clientMessage struct {
	Type      string `json:"type"`
	ProductID uint   `json:"product_id,omitempty"`
}

func (c *Client) enqueue(h *Hub, payload []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- payload:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		// Slow consumer; drop it.
		h.unregister(c)
		_ = c.conn.Close()
	}
}

// closeSend closes the send channel exactly once. Safe to call from both the
// read pump teardown and the slow-consumer path.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ProductRoom names the room carrying one product's analytics feed.
func ProductRoom(productID uint) string {
	return fmt.Sprintf("product_%d", productID)
}

// Handler upgrades the connection and serves the subscribe protocol.
// onSubscribe is invoked with the joined room so the caller can push an
// initial snapshot.
func Handler(hub *Hub, logger *zap.Logger, onSubscribe func(c *Client, room string)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			logger.Warn("WebSocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{conn: conn, send: make(chan []byte, sendBuffer)}
		hub.register(client)

		go client.writePump(hub)
		go client.readPump(hub, logger, onSubscribe)
	}
}

func (c *Client) readPump(hub *Hub, logger *zap.Logger, onSubscribe func(c *Client, room string)) {
	defer func() {
		hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "subscribe_dashboard":
			hub.Join(c, RoomDashboard)
			if onSubscribe != nil {
				onSubscribe(c, RoomDashboard)
			}
		case "subscribe_product":
			if msg.ProductID == 0 {
				continue
			}
			room := ProductRoom(msg.ProductID)
			hub.Join(c, room)
			if onSubscribe != nil {
				onSubscribe(c, room)
			}
		}
	}
}

func (c *Client) writePump(hub *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send pushes a single event to one client, bypassing rooms.
func (c *Client) Send(hub *Hub, event string, data interface{}) {
	payload, err := json.Marshal(Event{Event: event, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		return
	}
	c.enqueue(hub, payload)
}

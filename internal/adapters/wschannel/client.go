package wschannel

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// client is the middleman between one websocket connection and the hub.
type client struct {
	hub       *Hub
	channelID string
	conn      *websocket.Conn
	send      chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(h *Hub, channelID string, conn *websocket.Conn) *client {
	return &client{
		hub:       h,
		channelID: channelID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
}

// enqueue queues a payload for the write pump. Returns false when the buffer
// is full or the client is shut down.
func (c *client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump discards inbound frames and keeps the read deadline fresh via
// pong handling. The channel is outbound only.
func (c *client) readPump() {
	defer c.hub.drop(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.obs.LogWarn("channel read error",
					ports.Field{Key: "channel", Value: c.channelID},
					ports.Field{Key: "error", Value: err.Error()})
			}
			return
		}
	}
}

// writePump pumps queued payloads to the peer and keeps it alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.drop(c)
	}()
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

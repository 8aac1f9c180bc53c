// Package wschannel serves the web channels that stream model events to
// browser clients over websockets.
package wschannel

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// Hub tracks open channels by id and delivers payloads to them. A channel is
// opened for exactly one model; the hub reports opens and closes through the
// OnOpen and OnClose hooks so the caller can subscribe the channel to that
// model.
type Hub struct {
	obs    ports.Observability
	msgLog ports.MessageLog

	// OnOpen is called with the model id and the new channel id after the
	// websocket upgrade succeeds. OnClose is called when the peer goes away.
	OnOpen  func(modelID, channelID string)
	OnClose func(channelID string)

	upgrader websocket.Upgrader

	mu       sync.RWMutex
	channels map[string]*client
	closed   bool
}

func NewHub(obs ports.Observability, msgLog ports.MessageLog) *Hub {
	return &Hub{
		obs:    obs,
		msgLog: msgLog,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		channels: make(map[string]*client),
	}
}

// ServeHTTP upgrades the request to a websocket channel. The model id comes
// from the "mid" query parameter; a reconnecting client passes its previous
// channel id as "channel" to resume it and receive the missed envelopes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	modelID := r.URL.Query().Get("mid")
	if modelID == "" {
		http.Error(w, "missing mid parameter", http.StatusBadRequest)
		return
	}

	channelID := r.URL.Query().Get("channel")
	resumed := channelID != ""
	if !resumed {
		channelID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.obs.LogError("websocket upgrade failed", err,
			ports.Field{Key: "model", Value: modelID})
		return
	}

	c := newClient(h, channelID, conn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	if prev, ok := h.channels[channelID]; ok {
		prev.shutdown()
	}
	h.channels[channelID] = c
	n := len(h.channels)
	h.mu.Unlock()

	h.obs.SetGauge("streamstory_channels_connected", float64(n))
	h.obs.LogInfo("channel opened",
		ports.Field{Key: "channel", Value: channelID},
		ports.Field{Key: "model", Value: modelID},
		ports.Field{Key: "resumed", Value: resumed})

	go c.writePump()
	go c.readPump()

	if resumed {
		h.replay(c, modelID)
	}
	if h.OnOpen != nil {
		h.OnOpen(modelID, channelID)
	}
}

// replay queues the model's recent envelopes so a resumed channel catches up
// on what the router logged while it was disconnected.
func (h *Hub) replay(c *client, modelID string) {
	if h.msgLog == nil {
		return
	}
	envs, err := h.msgLog.Latest(modelID, 0)
	if err != nil {
		h.obs.LogWarn("channel catch-up failed",
			ports.Field{Key: "channel", Value: c.channelID},
			ports.Field{Key: "model", Value: modelID},
			ports.Field{Key: "error", Value: err.Error()})
		return
	}
	for _, env := range envs {
		payload, err := json.Marshal(env)
		if err != nil {
			continue
		}
		c.enqueue(payload)
	}
}

// Send delivers a payload to one channel. A full send buffer drops the
// channel rather than block the distribution path.
func (h *Hub) Send(channelID string, payload []byte) error {
	h.mu.RLock()
	c, ok := h.channels[channelID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("channel %s is not open", channelID)
	}
	if !c.enqueue(payload) {
		h.drop(c)
		return fmt.Errorf("channel %s send buffer full", channelID)
	}
	return nil
}

// Channels returns the ids of the open channels.
func (h *Hub) Channels() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.channels))
	for id := range h.channels {
		ids = append(ids, id)
	}
	return ids
}

// drop removes a channel and notifies the close hook. Called from the client
// pumps on connection errors and from Send on a stalled peer.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	cur, ok := h.channels[c.channelID]
	if !ok || cur != c {
		h.mu.Unlock()
		return
	}
	delete(h.channels, c.channelID)
	n := len(h.channels)
	h.mu.Unlock()

	c.shutdown()

	h.obs.SetGauge("streamstory_channels_connected", float64(n))
	h.obs.LogInfo("channel closed",
		ports.Field{Key: "channel", Value: c.channelID})
	if h.OnClose != nil {
		h.OnClose(c.channelID)
	}
}

// Close shuts down every open channel. Close hooks are not called.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	channels := h.channels
	h.channels = make(map[string]*client)
	h.mu.Unlock()

	for _, c := range channels {
		c.shutdown()
	}
	h.obs.SetGauge("streamstory_channels_connected", 0)
	return nil
}

var _ ports.PushSender = (*Hub)(nil)

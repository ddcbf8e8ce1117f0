package relay

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub owns the relay channels and serves their websocket endpoints.
type Hub struct {
	origin   string
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	channels map[string]*Channel
}

// NewHub creates a Hub that only accepts browser connections from
// publicOrigin.
func NewHub(publicOrigin string, logger *slog.Logger) *Hub {
	h := &Hub{
		origin:   strings.TrimRight(publicOrigin, "/"),
		logger:   logger,
		channels: map[string]*Channel{},
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return r.Header.Get("Origin") == h.origin
		},
	}
	return h
}

// Origin returns the origin frames are targeted at.
func (h *Hub) Origin() string { return h.origin }

// Open creates a channel with a fresh ID.
func (h *Hub) Open(opts ...ChannelOption) *Channel {
	id := uuid.NewString()
	ch := newChannel(id, func() { h.remove(id) }, opts...)

	h.mu.Lock()
	h.channels[id] = ch
	h.mu.Unlock()
	return ch
}

// Channel looks up an open channel.
func (h *Hub) Channel(id string) (*Channel, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ch, ok := h.channels[id]
	return ch, ok
}

// Len returns the number of open channels.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.channels, id)
	h.mu.Unlock()
}

// ServeWS upgrades the request and subscribes the connection to the
// channel until either side goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, channelID string) {
	ch, ok := h.Channel(channelID)
	if !ok {
		http.Error(w, ErrChannelNotFound.Error(), http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log().Warn("relay upgrade failed", "channel", channelID, "error", err)
		return
	}

	sub, err := ch.Subscribe(r.Header.Get("Origin"))
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.log().Debug("relay subscriber attached", "channel", channelID, "subscribers", ch.Subscribers())

	go h.readPump(conn, sub, channelID)
	h.writePump(conn, sub)
}

// readPump discards inbound messages and detaches the subscription when the
// peer goes away.
func (h *Hub) readPump(conn *websocket.Conn, sub *Subscription, channelID string) {
	defer func() {
		sub.Close()
		_ = conn.Close()
		h.log().Debug("relay subscriber detached", "channel", channelID)
	}()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, sub *Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case data, ok := <-sub.Frames():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				sub.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sub.Close()
				return
			}
		}
	}
}

func (h *Hub) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.New(slog.DiscardHandler)
}

package officeaddin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const rpcWriteWait = 10 * time.Second

// RemoteHost implements Host for a task pane connected over a websocket.
// The server sends JSON-RPC requests and the pane answers with the result
// of the matching Office.js call. Only one pane is attached at a time.
type RemoteHost struct {
	origin   string
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu           sync.Mutex
	conn         *websocket.Conn
	pending      map[int64]chan Response
	nextID       int64
	onConnect    func()
	onDisconnect func()

	writeMu sync.Mutex
}

// NewRemoteHost creates a RemoteHost accepting panes served from
// publicOrigin.
func NewRemoteHost(publicOrigin string, logger *slog.Logger) *RemoteHost {
	h := &RemoteHost{
		origin:  strings.TrimRight(publicOrigin, "/"),
		logger:  logger,
		pending: map[int64]chan Response{},
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return r.Header.Get("Origin") == h.origin
		},
	}
	return h
}

// Notify registers hooks run after a pane attaches and after it detaches.
func (h *RemoteHost) Notify(onConnect, onDisconnect func()) {
	h.mu.Lock()
	h.onConnect = onConnect
	h.onDisconnect = onDisconnect
	h.mu.Unlock()
}

// Connected reports whether a pane is attached.
func (h *RemoteHost) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

// ServeWS attaches the requesting task pane, replacing any earlier one,
// and serves it until it disconnects.
func (h *RemoteHost) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log().Warn("add-in upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	previous := h.conn
	h.conn = conn
	onConnect := h.onConnect
	h.mu.Unlock()
	if previous != nil {
		_ = previous.Close()
	}
	h.log().Info("office add-in attached", "remote", r.RemoteAddr)
	if onConnect != nil {
		go onConnect()
	}

	h.readLoop(conn)
}

func (h *RemoteHost) readLoop(conn *websocket.Conn) {
	defer h.detach(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		resp, err := ParseResponse(data)
		if err != nil {
			h.log().Debug("ignoring malformed add-in frame", "error", err)
			continue
		}

		h.mu.Lock()
		ch, ok := h.pending[resp.ID]
		delete(h.pending, resp.ID)
		h.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (h *RemoteHost) detach(conn *websocket.Conn) {
	_ = conn.Close()

	h.mu.Lock()
	if h.conn != conn {
		h.mu.Unlock()
		return
	}
	h.conn = nil
	pending := h.pending
	h.pending = map[int64]chan Response{}
	onDisconnect := h.onDisconnect
	h.mu.Unlock()

	for id, ch := range pending {
		ch <- Response{JSONRPC: "2.0", ID: id, Error: &Error{Code: ErrInternal, Message: "office add-in disconnected"}}
	}
	h.log().Info("office add-in detached")
	if onDisconnect != nil {
		onDisconnect()
	}
}

// call sends method to the pane and waits for its response.
func (h *RemoteHost) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	h.mu.Lock()
	conn := h.conn
	if conn == nil {
		h.mu.Unlock()
		return nil, ErrHostUnavailable
	}
	h.nextID++
	id := h.nextID
	ch := make(chan Response, 1)
	h.pending[id] = ch
	h.mu.Unlock()

	req, err := NewRequest(id, method, params)
	if err != nil {
		h.forget(id)
		return nil, err
	}

	h.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(rpcWriteWait))
	err = conn.WriteJSON(req)
	h.writeMu.Unlock()
	if err != nil {
		h.forget(id)
		return nil, fmt.Errorf("%w: %v", ErrHostUnavailable, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		h.forget(id)
		return nil, ctx.Err()
	}
}

func (h *RemoteHost) forget(id int64) {
	h.mu.Lock()
	delete(h.pending, id)
	h.mu.Unlock()
}

// OnReady implements Host.
func (h *RemoteHost) OnReady(ctx context.Context) (HostInfo, error) {
	raw, err := h.call(ctx, "office.onReady", nil)
	if err != nil {
		return HostInfo{}, err
	}
	var info HostInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return HostInfo{}, fmt.Errorf("decoding host info: %w", err)
	}
	return info, nil
}

// GetSelectedDataAsync implements Host.
func (h *RemoteHost) GetSelectedDataAsync(ctx context.Context, coercion CoercionType, cb Callback) {
	h.async(ctx, "document.getSelectedDataAsync", map[string]any{
		"coercionType": coercion,
		"valueFormat":  "unformatted",
	}, cb)
}

// GoToByIDAsync implements Host.
func (h *RemoteHost) GoToByIDAsync(ctx context.Context, id string, goTo GoToType, cb Callback) {
	h.async(ctx, "document.goToByIdAsync", map[string]any{"id": id, "goToType": goTo}, cb)
}

// StartPresentationAsync implements Host.
func (h *RemoteHost) StartPresentationAsync(ctx context.Context, cb Callback) {
	h.async(ctx, "document.startPresentationAsync", nil, cb)
}

// StopPresentationAsync implements Host.
func (h *RemoteHost) StopPresentationAsync(ctx context.Context, cb Callback) {
	h.async(ctx, "document.stopPresentationAsync", nil, cb)
}

// async runs call in the background and reports through cb. Transport
// failures are reported as a failed result.
func (h *RemoteHost) async(ctx context.Context, method string, params any, cb Callback) {
	go func() {
		raw, err := h.call(ctx, method, params)
		if err != nil {
			cb(AsyncResult{Status: StatusFailed, Error: err.Error()})
			return
		}
		var res AsyncResult
		if err := json.Unmarshal(raw, &res); err != nil {
			cb(AsyncResult{Status: StatusFailed, Error: fmt.Sprintf("decoding result: %v", err)})
			return
		}
		cb(res)
	}()
}

func (h *RemoteHost) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.New(slog.DiscardHandler)
}

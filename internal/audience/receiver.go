package audience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// Receiver feeds relay frames from a websocket into a View.
type Receiver struct {
	conn   *websocket.Conn
	view   *View
	sender string
	logger *slog.Logger
}

// Dial connects to a relay channel. The request carries the view's origin,
// and frames are attributed to the origin of wsURL.
func Dial(ctx context.Context, wsURL string, view *View, logger *slog.Logger) (*Receiver, error) {
	sender, err := httpOrigin(wsURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Origin", view.origin)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialing relay: %w", err)
	}
	return &Receiver{conn: conn, view: view, sender: sender, logger: logger}, nil
}

// Run applies frames until the connection closes or ctx is cancelled.
// Undecodable frames are skipped.
func (r *Receiver) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = r.conn.Close() })
	defer stop()

	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading relay frame: %w", err)
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			if r.logger != nil {
				r.logger.Debug("ignoring undecodable frame", "error", err)
			}
			continue
		}
		r.view.HandleMessage(r.sender, msg)
	}
}

// Close disconnects from the relay.
func (r *Receiver) Close() error {
	return r.conn.Close()
}

func httpOrigin(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", fmt.Errorf("parsing relay url: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", errors.New("relay url must use ws or wss")
	}
	return u.Scheme + "://" + u.Host, nil
}

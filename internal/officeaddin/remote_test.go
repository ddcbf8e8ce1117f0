package officeaddin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// fakePane answers requests the way the task pane script does.
type fakePane struct {
	conn    *websocket.Conn
	methods chan Request
}

func dialPane(t *testing.T, srv *httptest.Server, origin string) (*fakePane, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	header.Set("Origin", origin)
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, resp, err
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &fakePane{conn: conn, methods: make(chan Request, 16)}, resp, nil
}

func (p *fakePane) serve(answer func(Request) Response) {
	for {
		var req Request
		if err := p.conn.ReadJSON(&req); err != nil {
			return
		}
		p.methods <- req
		if err := p.conn.WriteJSON(answer(req)); err != nil {
			return
		}
	}
}

func officeAnswers(req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}
	switch req.Method {
	case "office.onReady":
		resp.Result = json.RawMessage(`{"host":"PowerPoint","platform":"Office"}`)
	case "document.getSelectedDataAsync":
		resp.Result = json.RawMessage(`{"status":"succeeded","value":{"slides":[{"title":"A"},{"title":"B"}],"slideIndex":1}}`)
	case "document.goToByIdAsync":
		resp.Result = json.RawMessage(`{"status":"succeeded"}`)
	default:
		resp.Error = &Error{Code: ErrMethodNotFound, Message: "method not found"}
	}
	return resp
}

func newRemote(t *testing.T) (*RemoteHost, *httptest.Server) {
	t.Helper()
	host := NewRemoteHost("http://conf.test", nil)
	srv := httptest.NewServer(http.HandlerFunc(host.ServeWS))
	t.Cleanup(srv.Close)
	return host, srv
}

func TestRemoteHost_UnavailableWithoutPane(t *testing.T) {
	host := NewRemoteHost("http://conf.test", nil)
	require.False(t, host.Connected())

	_, err := host.OnReady(context.Background())
	require.ErrorIs(t, err, ErrHostUnavailable)

	b := NewBridge(host, "")
	require.ErrorIs(t, b.Initialize(context.Background()), ErrHostUnavailable)
}

func TestRemoteHost_RejectsForeignOrigin(t *testing.T) {
	_, srv := newRemote(t)

	_, resp, err := dialPane(t, srv, "http://evil.test")
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRemoteHost_BridgeRoundTrip(t *testing.T) {
	host, srv := newRemote(t)

	var connects atomic.Int32
	host.Notify(func() { connects.Add(1) }, nil)

	pane, _, err := dialPane(t, srv, "http://conf.test")
	require.NoError(t, err)
	go pane.serve(officeAnswers)

	require.Eventually(t, host.Connected, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return connects.Load() == 1 }, time.Second, 10*time.Millisecond)

	ctx := context.Background()
	b := NewBridge(host, "")
	require.NoError(t, b.Initialize(ctx))
	require.Equal(t, "office.onReady", (<-pane.methods).Method)

	info, err := b.PresentationInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, info.TotalSlides)
	require.Equal(t, "B", info.Slides[1].Title)

	req := <-pane.methods
	require.Equal(t, "document.getSelectedDataAsync", req.Method)
	require.JSONEq(t, `{"coercionType":"slideRange","valueFormat":"unformatted"}`, string(req.Params))

	require.NoError(t, b.GoToSlide(ctx, 2))
	req = <-pane.methods
	require.Equal(t, "document.goToByIdAsync", req.Method)
	require.JSONEq(t, `{"id":"slide-2","goToType":"slide"}`, string(req.Params))

	// The pane does not implement start; the rpc error becomes a failed result.
	err = b.StartPresentation(ctx)
	require.ErrorIs(t, err, ErrStartPresentation)
	require.ErrorContains(t, err, "method not found")
}

func TestRemoteHost_DisconnectFailsPendingCalls(t *testing.T) {
	host, srv := newRemote(t)

	var disconnects atomic.Int32
	host.Notify(nil, func() { disconnects.Add(1) })

	pane, _, err := dialPane(t, srv, "http://conf.test")
	require.NoError(t, err)
	require.Eventually(t, host.Connected, time.Second, 10*time.Millisecond)

	errs := make(chan error, 1)
	go func() {
		_, err := host.OnReady(context.Background())
		errs <- err
	}()

	var req Request
	require.NoError(t, pane.conn.ReadJSON(&req))
	require.NoError(t, pane.conn.Close())

	select {
	case err := <-errs:
		var rpcErr *Error
		require.ErrorAs(t, err, &rpcErr)
		require.Equal(t, ErrInternal, rpcErr.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("pending call was not failed on disconnect")
	}
	require.Eventually(t, func() bool { return disconnects.Load() == 1 }, time.Second, 10*time.Millisecond)
	require.False(t, host.Connected())
}

func TestRemoteHost_ContextCancelsCall(t *testing.T) {
	host, srv := newRemote(t)

	_, _, err := dialPane(t, srv, "http://conf.test")
	require.NoError(t, err)
	require.Eventually(t, host.Connected, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = host.OnReady(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRenderTaskPane(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, RenderTaskPane(&sb, "/addin/ws"))
	require.Contains(t, sb.String(), "var socketPath = ")
	require.Contains(t, sb.String(), "document.goToByIdAsync")
}

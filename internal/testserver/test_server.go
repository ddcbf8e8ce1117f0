package testserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/rpggio/lectern/internal/domain/presentation"
	"github.com/rpggio/lectern/internal/domain/schedule"
	"github.com/rpggio/lectern/internal/graph"
	"github.com/rpggio/lectern/internal/identity"
	"github.com/rpggio/lectern/internal/mcp"
	"github.com/rpggio/lectern/internal/presenter"
	"github.com/rpggio/lectern/internal/relay"
	"github.com/rpggio/lectern/internal/sqlite"
	"github.com/rpggio/lectern/internal/transport"
	"github.com/rpggio/lectern/internal/viewer"
	"github.com/stretchr/testify/require"
)

// ViewerEndpoint is the embed endpoint the viewer resolver builds URLs on.
const ViewerEndpoint = "https://viewer.test/op/embed.aspx"

type TestServer struct {
	Server *httptest.Server
	// Origin is the server's own origin, which the relay accepts.
	Origin    string
	DB        *sqlite.DB
	Drive     *FakeDrive
	Presenter *presenter.Manager
	Hub       *relay.Hub
	Token     string
	Actor     string
}

// New starts the full HTTP stack over an in-memory database and a fake
// drive. Requests need "Authorization: Bearer <token>" to reach /api and
// /mcp; the token resolves to actor.
func New(t *testing.T, token, actor string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	drive := NewFakeDrive()
	driveServer := httptest.NewServer(drive)

	auditSvc := audit.NewService(sqlite.NewAuditRepository(db), "Admin", nil)
	presentationSvc := presentation.NewService(sqlite.NewPresentationRepository(db), auditSvc, nil)
	scheduleSvc := schedule.NewService(sqlite.NewScheduleRepository(db), presentationSvc, auditSvc, nil)

	graphClient := graph.NewClient(driveServer.URL, identity.StaticProvider("drive-token"), driveServer.Client(), nil)
	resolver := viewer.NewResolver(graphClient, ViewerEndpoint, nil)
	// The listener exists before the server starts, so the relay can be
	// bound to the server's real origin.
	server := httptest.NewUnstartedServer(nil)
	origin := "http://" + server.Listener.Addr().String()
	hub := relay.NewHub(origin, nil)

	manager := presenter.NewManager(presentationSvc, resolver, graphClient, hub, nil, auditSvc,
		presenter.ManagerConfig{
			TargetOrigin:       origin,
			DefaultTotalSlides: 10,
			PollInterval:       20 * time.Millisecond,
		}, nil)

	apiKeys := sqlite.NewAPIKeyRepository(db)
	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Presentations: presentationSvc,
			Presenter:     manager,
			Audit:         auditSvc,
		},
		Resolver:      apiKeys,
		AuthEnabled:   true,
		TransportMode: "http",
	})

	server.Config.Handler = transport.NewServer(transport.Deps{
		Presentations: presentationSvc,
		Schedule:      scheduleSvc,
		Audit:         auditSvc,
		Files:         graphClient,
		UploadFolder:  graph.DefaultFolder,
		Viewer:        resolver,
		Locator:       graphClient,
		Presenter:     manager,
		Relay:         hub,
		MCP:           mcp.NewHTTPHandler(mcpServer),
		Auth:          transport.AuthMiddleware(apiKeys, nil),
	})
	server.Start()

	ts := &TestServer{
		Server:    server,
		Origin:    origin,
		DB:        db,
		Drive:     drive,
		Presenter: manager,
		Hub:       hub,
		Token:     token,
		Actor:     actor,
	}

	require.NoError(t, ts.AddAPIKey(token, actor))

	t.Cleanup(func() {
		server.Close()
		manager.CloseAll()
		driveServer.Close()
		_ = db.Close()
	})

	return ts
}

func (ts *TestServer) AddAPIKey(token, actor string) error {
	return sqlite.NewAPIKeyRepository(ts.DB).Add(context.Background(), token, actor, "test")
}

// FakeDrive serves the subset of the Graph drive API lectern calls. Uploaded
// items get sequential IDs and report Slides worksheets each.
type FakeDrive struct {
	mu      sync.Mutex
	folders map[string]bool
	items   map[string]string
	next    int
	Slides  int
}

func NewFakeDrive() *FakeDrive {
	return &FakeDrive{folders: map[string]bool{}, items: map[string]string{}, Slides: 3}
}

// Item returns the uploaded content of a drive item.
func (d *FakeDrive) Item(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	content, ok := d.items[id]
	return content, ok
}

// DownloadURL is the pre-authenticated URL reported for item id.
func DownloadURL(id string) string {
	return "https://download.test/" + id
}

func (d *FakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer drive-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	const root = "/me/drive/items/root:/"
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == "/me/drive":
		writeJSON(w, http.StatusOK, `{"id":"drive"}`)
	case r.Method == http.MethodPost && path == "/me/drive/items/root/children":
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r.Body, &body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		d.folders[body.Name] = true
		writeJSON(w, http.StatusCreated, fmt.Sprintf(`{"id":"folder-%s"}`, body.Name))
	case r.Method == http.MethodPut && strings.HasPrefix(path, root) && strings.HasSuffix(path, ":/content"):
		content, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		d.next++
		id := fmt.Sprintf("ITEM%d", d.next)
		d.items[id] = string(content)
		writeJSON(w, http.StatusCreated, fmt.Sprintf(`{"id":%q}`, id))
	case r.Method == http.MethodGet && strings.HasPrefix(path, root):
		if !d.folders[strings.TrimPrefix(path, root)] {
			writeJSON(w, http.StatusNotFound, `{"error":{"code":"itemNotFound"}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":"folder"}`)
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/workbook/worksheets"):
		sheets := strings.TrimSuffix(strings.Repeat(`{},`, d.Slides), ",")
		writeJSON(w, http.StatusOK, `{"value":[`+sheets+`]}`)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/me/drive/items/"):
		id := strings.TrimPrefix(path, "/me/drive/items/")
		if _, ok := d.items[id]; !ok {
			writeJSON(w, http.StatusNotFound, `{"error":{"code":"itemNotFound"}}`)
			return
		}
		writeJSON(w, http.StatusOK, fmt.Sprintf(`{"id":%q,"webUrl":"https://onedrive.test/%s","@microsoft.graph.downloadUrl":%q}`,
			id, id, DownloadURL(id)))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func decodeBody(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/rpggio/lectern/internal/domain/presentation"
	"github.com/rpggio/lectern/internal/domain/schedule"
	"github.com/rpggio/lectern/internal/presenter"
)

// PresentationService manages presentation records.
type PresentationService interface {
	Create(ctx context.Context, req presentation.CreateRequest) (*presentation.Presentation, error)
	Get(ctx context.Context, id string) (*presentation.Presentation, error)
	List(ctx context.Context, opts presentation.ListOptions) ([]presentation.Presentation, error)
	Search(ctx context.Context, query string, limit int) ([]presentation.Presentation, error)
	Reschedule(ctx context.Context, id string, newTime time.Time) (*presentation.Presentation, error)
	UpdateDetails(ctx context.Context, id string, req presentation.UpdateDetailsRequest) (*presentation.Presentation, error)
	AttachFile(ctx context.Context, id, fileRef string, provider presentation.FileProvider) (*presentation.Presentation, error)
}

// ScheduleService imports and lists the conference programme.
type ScheduleService interface {
	Import(ctx context.Context, r io.Reader) (*schedule.ImportResult, error)
	ListSessions(ctx context.Context) ([]schedule.Session, error)
}

// AuditService lists audit entries.
type AuditService interface {
	List(ctx context.Context, opts audit.ListOptions) ([]audit.Entry, error)
}

// FileUploader stores presentation files and returns their item ID.
type FileUploader interface {
	Upload(ctx context.Context, name string, content io.Reader, folder string) (string, error)
}

// FileViewer builds viewer URLs for presentation files.
type FileViewer interface {
	Resolve(ctx context.Context, fileID string) (string, error)
	ResolvePublic(publicURL string, presentationMode bool) (string, error)
}

// FileLocator returns the browser URL of a stored file.
type FileLocator interface {
	WebURL(ctx context.Context, id string) (string, error)
}

// PresenterService manages presenter sessions.
type PresenterService interface {
	Open(ctx context.Context, presentationID string, mode presenter.Mode) (*presenter.Controller, error)
	Get(presentationID string) (*presenter.Controller, error)
	Close(presentationID string) error
}

// LoginProvider runs the storage account login flow.
type LoginProvider interface {
	LoginURL(state string) (string, error)
	CompleteLogin(ctx context.Context, code string) error
}

// RelayServer serves relay channel websockets.
type RelayServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, channelID string)
}

// Deps are the collaborators served over HTTP. Files, Viewer, Locator,
// Addin, Login, MCP and Auth are optional.
type Deps struct {
	Presentations PresentationService
	Schedule      ScheduleService
	Audit         AuditService
	Files         FileUploader
	UploadFolder  string
	Viewer        FileViewer
	Locator       FileLocator
	Presenter     PresenterService
	Relay         RelayServer
	Addin         http.HandlerFunc
	Login         LoginProvider
	MCP           http.Handler
	Auth          func(http.Handler) http.Handler
	Logger        *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	deps      Deps
	responder responder
}

// NewServer creates an HTTP server router with middleware.
func NewServer(deps Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(deps.Logger))

	srv := &Server{deps: deps, responder: newResponder(deps.Logger)}

	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(deps.Auth)
		}
		if deps.MCP != nil {
			r.Handle("/mcp", deps.MCP)
		}

		r.Route("/api", func(r chi.Router) {
			r.Route("/presentations", func(r chi.Router) {
				r.Get("/", srv.handleListPresentations)
				r.Post("/", srv.handleCreatePresentation)
				r.Get("/{id}", srv.handleGetPresentation)
				r.Patch("/{id}", srv.handleUpdatePresentation)
				r.Put("/{id}/schedule", srv.handleReschedule)
				r.Post("/{id}/file", srv.handleUploadFile)
				r.Put("/{id}/file", srv.handleLinkFile)
				r.Get("/{id}/links", srv.handlePresentationLinks)
			})
			r.Post("/schedule/import", srv.handleImportSchedule)
			r.Get("/schedule/sessions", srv.handleListSessions)
			r.Get("/audit", srv.handleListAudit)

			r.Route("/presenter/{id}", func(r chi.Router) {
				r.Post("/", srv.handleOpenPresenter)
				r.Get("/", srv.handlePresenterState)
				r.Delete("/", srv.handleClosePresenter)
				r.Post("/navigate", srv.handleNavigate)
				r.Post("/audience", srv.handleOpenAudience)
			})
		})
	})

	r.Get("/presentations/{id}/audience", srv.handleAudiencePage)

	// The presenter page authenticates with its session's control key, so
	// it works in a browser that holds no API token.
	r.Route("/presentations/{id}/presenter", func(r chi.Router) {
		r.Use(srv.requireControlKey)
		r.Get("/", srv.handlePresenterPage)
		r.Get("/state", srv.handlePresenterState)
		r.Post("/navigate", srv.handleNavigate)
		r.Post("/audience", srv.handleOpenAudience)
	})
	r.Get("/ws/relay/{channel}", srv.handleRelay)
	if deps.Addin != nil {
		r.Get("/addin/ws", deps.Addin)
		r.Get("/addin/taskpane", srv.handleTaskPane)
	}
	r.Get("/auth/login", srv.handleLogin)
	r.Get("/auth/callback", srv.handleCallback)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

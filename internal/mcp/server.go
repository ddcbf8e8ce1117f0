package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/rpggio/lectern/internal/domain/presentation"
	"github.com/rpggio/lectern/internal/presenter"
)

// PresentationService defines presentation operations needed by MCP.
type PresentationService interface {
	Get(ctx context.Context, id string) (*presentation.Presentation, error)
	List(ctx context.Context, opts presentation.ListOptions) ([]presentation.Presentation, error)
	Search(ctx context.Context, query string, limit int) ([]presentation.Presentation, error)
}

// PresenterService defines presenter session operations needed by MCP.
type PresenterService interface {
	Open(ctx context.Context, presentationID string, mode presenter.Mode) (*presenter.Controller, error)
	Get(presentationID string) (*presenter.Controller, error)
	List() []presenter.Snapshot
	Close(presentationID string) error
}

// AuditService defines audit operations needed by MCP.
type AuditService interface {
	List(ctx context.Context, opts audit.ListOptions) ([]audit.Entry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Presentations PresentationService
	Presenter     PresenterService
	Audit         AuditService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      ActorResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "lectern",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio is local only; HTTP checks bearer tokens when auth is enabled.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}

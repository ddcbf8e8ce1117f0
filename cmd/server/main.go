package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/lectern/internal/config"
	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/rpggio/lectern/internal/domain/presentation"
	"github.com/rpggio/lectern/internal/domain/schedule"
	"github.com/rpggio/lectern/internal/graph"
	"github.com/rpggio/lectern/internal/identity"
	"github.com/rpggio/lectern/internal/mcp"
	"github.com/rpggio/lectern/internal/officeaddin"
	"github.com/rpggio/lectern/internal/presenter"
	"github.com/rpggio/lectern/internal/relay"
	"github.com/rpggio/lectern/internal/sqlite"
	"github.com/rpggio/lectern/internal/transport"
	"github.com/rpggio/lectern/internal/viewer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if logPath := os.Getenv("LECTERN_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	apiKeys := sqlite.NewAPIKeyRepository(db)
	if len(os.Args) > 1 && os.Args[1] == "add-api-key" {
		if err := addAPIKey(apiKeys, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "add-api-key: %v\n", err)
			os.Exit(1)
		}
		return
	}

	auditSvc := audit.NewService(sqlite.NewAuditRepository(db), cfg.Auth.Actor, logger)
	presentationSvc := presentation.NewService(sqlite.NewPresentationRepository(db), auditSvc, logger)
	scheduleSvc := schedule.NewService(sqlite.NewScheduleRepository(db), presentationSvc, auditSvc, logger)

	redirectURL := cfg.Graph.RedirectURL
	if redirectURL == "" {
		redirectURL = cfg.Server.PublicOrigin + "/auth/callback"
	}
	identityProvider := identity.NewProvider(identity.Config{
		ClientID:     cfg.Graph.ClientID,
		ClientSecret: cfg.Graph.ClientSecret,
		Tenant:       cfg.Graph.Tenant,
		RedirectURL:  redirectURL,
		Scopes:       cfg.Graph.Scopes,
	}, sqlite.NewAccountRepository(db), logger)
	graphClient := graph.NewClient(cfg.Graph.BaseURL, identityProvider, nil, logger)
	resolver := viewer.NewResolver(graphClient, cfg.Viewer.EmbedEndpoint, logger)

	hub := relay.NewHub(cfg.Server.PublicOrigin, logger)
	addinHost := officeaddin.NewRemoteHost(cfg.Server.PublicOrigin, logger)
	bridge := officeaddin.NewBridge(addinHost, cfg.Addin.ExpectedPlatform)
	addinHost.Notify(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := bridge.Initialize(ctx); err != nil {
			logger.Warn("office add-in initialize failed", "error", err)
		}
	}, bridge.Reset)

	manager := presenter.NewManager(presentationSvc, resolver, graphClient, hub, bridge, auditSvc,
		presenter.ManagerConfig{
			TargetOrigin:       cfg.Server.PublicOrigin,
			DefaultTotalSlides: cfg.Presenter.DefaultTotalSlides,
			PollInterval:       cfg.Presenter.PollInterval,
		}, logger)
	defer manager.CloseAll()

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Presentations: presentationSvc,
			Presenter:     manager,
			Audit:         auditSvc,
		},
		Resolver:      apiKeys,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		Logger:        logger,
	})

	deps := transport.Deps{
		Presentations: presentationSvc,
		Schedule:      scheduleSvc,
		Audit:         auditSvc,
		Files:         graphClient,
		UploadFolder:  cfg.Graph.DefaultFolder,
		Viewer:        resolver,
		Locator:       graphClient,
		Presenter:     manager,
		Relay:         hub,
		Addin:         addinHost.ServeWS,
		Login:         identityProvider,
		MCP:           mcp.NewHTTPHandler(mcpServer),
		Logger:        logger,
	}
	if cfg.Auth.Enabled {
		deps.Auth = transport.AuthMiddleware(apiKeys, logger)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           transport.NewServer(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr, "public_origin", cfg.Server.PublicOrigin, "auth", cfg.Auth.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	// Branch based on transport mode
	if cfg.Transport.Mode == "stdio" {
		runStdioMode(logger, mcpServer)
		shutdown(logger, httpServer)
		return
	}
	waitForShutdown(logger, httpServer)
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
	}
}

// addAPIKey creates a bearer token for the actor named in args and prints it.
func addAPIKey(repo *sqlite.APIKeyRepository, args []string) error {
	if len(args) < 1 || args[0] == "" {
		return errors.New("usage: add-api-key <actor> [description]")
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	token := uuid.NewString()
	if err := repo.Add(context.Background(), token, args[0], description); err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	shutdown(logger, server)
}

func shutdown(logger *slog.Logger, server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureLogDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		return nil, nil, err
	}
	return writer, file, nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}
	if size <= keepLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	if _, err := w.file.Seek(size-keepLogSizeBytes, io.SeekStart); err != nil {
		return err
	}
	n, err := w.file.Read(buf)
	if err != nil && err != io.EOF {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}

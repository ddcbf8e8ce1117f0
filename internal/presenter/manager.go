package presenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/rpggio/lectern/internal/domain/presentation"
	"github.com/rpggio/lectern/internal/relay"
)

// PresentationSource looks up presentations.
type PresentationSource interface {
	Get(ctx context.Context, id string) (*presentation.Presentation, error)
}

// ViewResolver builds viewer URLs for stored and legacy files.
type ViewResolver interface {
	ResolvePresentation(ctx context.Context, fileID string) (string, error)
	ResolvePublic(publicURL string, presentationMode bool) (string, error)
}

// SlideCounter counts a stored file's slides.
type SlideCounter interface {
	CountSlides(ctx context.Context, fileID string) (int, error)
}

// AuditRecorder records presenter activity.
type AuditRecorder interface {
	Record(ctx context.Context, action audit.Action, presentationID string, details any) error
}

// ManagerConfig holds session defaults.
type ManagerConfig struct {
	TargetOrigin       string
	DefaultTotalSlides int
	PollInterval       time.Duration
}

// Manager keeps at most one presenter session per presentation.
type Manager struct {
	presentations PresentationSource
	resolver      ViewResolver
	counter       SlideCounter
	hub           *relay.Hub
	opener        WindowOpener
	addin         AddinBridge
	audit         AuditRecorder
	cfg           ManagerConfig
	logger        *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Controller
}

// NewManager creates a Manager. counter, addin and audit may be nil.
func NewManager(
	presentations PresentationSource,
	resolver ViewResolver,
	counter SlideCounter,
	hub *relay.Hub,
	addin AddinBridge,
	audit AuditRecorder,
	cfg ManagerConfig,
	logger *slog.Logger,
) *Manager {
	if cfg.TargetOrigin == "" {
		cfg.TargetOrigin = hub.Origin()
	}
	return &Manager{
		presentations: presentations,
		resolver:      resolver,
		counter:       counter,
		hub:           hub,
		opener:        NewRelayOpener(hub),
		addin:         addin,
		audit:         audit,
		cfg:           cfg,
		logger:        logger,
		sessions:      map[string]*Controller{},
	}
}

// Open starts a presenter session, replacing any open one for the same
// presentation. When loading fails the session is still registered in the
// error state and returned together with the error.
func (m *Manager) Open(ctx context.Context, presentationID string, mode Mode) (*Controller, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	if mode == ModeAddin && m.addin == nil {
		return nil, ErrAddinUnavailable
	}

	p, err := m.presentations.Get(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	if !p.HasFile() {
		return nil, ErrNoFile
	}

	opts := Options{
		PresentationID:     p.ID,
		Mode:               mode,
		Opener:             m.opener,
		TargetOrigin:       m.cfg.TargetOrigin,
		DefaultTotalSlides: m.cfg.DefaultTotalSlides,
		PollInterval:       m.cfg.PollInterval,
		Logger:             m.logger,
	}

	fileRef := *p.FileRef
	if p.IsLegacyFile() {
		opts.ResolveView = func(context.Context) (string, error) {
			return m.resolver.ResolvePublic(fileRef, true)
		}
	} else {
		opts.ResolveView = func(ctx context.Context) (string, error) {
			return m.resolver.ResolvePresentation(ctx, fileRef)
		}
		if m.counter != nil {
			opts.CountSlides = func(ctx context.Context) (int, error) {
				return m.counter.CountSlides(ctx, fileRef)
			}
		}
	}

	switch mode {
	case ModeAddin:
		bridge := m.addin
		opts.Navigator = NewAddinNavigator(bridge)
		opts.Slideshow = bridge
		opts.CountSlides = func(ctx context.Context) (int, error) {
			info, err := bridge.PresentationInfo(ctx)
			if err != nil {
				return 0, err
			}
			return info.TotalSlides, nil
		}
	default:
		surface := m.hub.Open(relay.WithoutReplay())
		opts.Navigator = NewKeyNavigator(surface, m.cfg.TargetOrigin)
		opts.SurfaceURL = "/ws/relay/" + surface.ID()
		opts.OnClose = func() { _ = surface.Close() }
	}

	c := NewController(opts)
	loadErr := c.Load(ctx)

	m.mu.Lock()
	previous := m.sessions[p.ID]
	m.sessions[p.ID] = c
	m.mu.Unlock()
	if previous != nil {
		previous.Close()
	}

	if m.audit != nil {
		details := map[string]string{"mode": string(mode), "state": string(c.Snapshot().State)}
		if err := m.audit.Record(ctx, audit.ActionPresenterOpened, p.ID, details); err != nil && m.logger != nil {
			m.logger.WarnContext(ctx, "audit record failed", "action", audit.ActionPresenterOpened, "error", err)
		}
	}
	if m.logger != nil {
		m.logger.InfoContext(ctx, "presenter session opened", "presentation_id", p.ID, "mode", mode, "error", loadErr)
	}
	return c, loadErr
}

// Get returns the open session for a presentation.
func (m *Manager) Get(presentationID string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[presentationID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// List returns snapshots of every open session ordered by presentation ID.
func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	controllers := make([]*Controller, 0, len(m.sessions))
	for _, c := range m.sessions {
		controllers = append(controllers, c)
	}
	m.mu.Unlock()

	snaps := make([]Snapshot, 0, len(controllers))
	for _, c := range controllers {
		snaps = append(snaps, c.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].PresentationID < snaps[j].PresentationID })
	return snaps
}

// Close ends the session for a presentation.
func (m *Manager) Close(presentationID string) error {
	m.mu.Lock()
	c, ok := m.sessions[presentationID]
	delete(m.sessions, presentationID)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	c.Close()
	return nil
}

// CloseAll ends every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*Controller{}
	m.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
}

// IsNotFound reports whether err means the presentation or session is
// unknown.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, presentation.ErrNotFound)
}

// Describe formats a snapshot for logs and tool output.
func Describe(s Snapshot) string {
	return fmt.Sprintf("%s: %s slide %d/%d audience=%t", s.PresentationID, s.State, s.CurrentSlide, s.TotalSlides, s.AudienceOpen)
}

package transport

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rpggio/lectern/internal/audience"
	"github.com/rpggio/lectern/internal/identity"
	"github.com/rpggio/lectern/internal/officeaddin"
)

const (
	oauthStateCookie = "lectern_oauth_state"
	controlKeyHeader = "X-Presenter-Key"
)

// handleAudiencePage renders the audience view for ?viewUrl=, following
// relay ?channel= when given.
func (s *Server) handleAudiencePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	data := audience.PageData{
		PresentationID: id,
		ViewURL:        q.Get("viewUrl"),
	}
	if channel := q.Get("channel"); channel != "" {
		data.RelayURL = "/ws/relay/" + url.PathEscape(channel)
	}
	if p, err := s.deps.Presentations.Get(r.Context(), id); err == nil {
		data.Title = p.Title
	}

	s.renderPage(w, r, func(w http.ResponseWriter) error { return audience.RenderAudience(w, data) })
}

// requireControlKey admits requests carrying the open session's control
// key in the X-Presenter-Key header or the key query parameter.
func (s *Server) requireControlKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := s.deps.Presenter.Get(chi.URLParam(r, "id"))
		if err != nil {
			s.responder.handleServiceError(r.Context(), w, err)
			return
		}

		key := r.Header.Get(controlKeyHeader)
		if key == "" {
			key = r.URL.Query().Get("key")
		}
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(c.ControlKey())) != 1 {
			s.responder.writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHORIZED", errControlKey)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handlePresenterPage renders the controls for an open presenter session.
func (s *Server) handlePresenterPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.deps.Presenter.Get(id)
	if err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}

	snap := c.Snapshot()
	data := audience.PageData{
		PresentationID: id,
		ViewURL:        snap.ViewURL,
		RelayURL:       snap.SurfaceURL,
		ControlKey:     c.ControlKey(),
		CurrentSlide:   snap.CurrentSlide,
		TotalSlides:    snap.TotalSlides,
	}
	if p, err := s.deps.Presentations.Get(r.Context(), id); err == nil {
		data.Title = p.Title
	}

	s.renderPage(w, r, func(w http.ResponseWriter) error { return audience.RenderPresenter(w, data) })
}

func (s *Server) handleTaskPane(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, func(w http.ResponseWriter) error { return officeaddin.RenderTaskPane(w, "/addin/ws") })
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, render func(http.ResponseWriter) error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render(w); err != nil {
		s.responder.loggerFor(r.Context()).ErrorContext(r.Context(), "failed to render page", "error", err)
	}
}

func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	s.deps.Relay.ServeWS(w, r, chi.URLParam(r, "channel"))
}

// handleLogin redirects to the identity provider's consent page.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.Login == nil {
		s.responder.handleServiceError(r.Context(), w, identity.ErrNotConfigured)
		return
	}

	state := uuid.NewString()
	loginURL, err := s.deps.Login.LoginURL(state)
	if err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	http.Redirect(w, r, loginURL, http.StatusFound)
}

// handleCallback exchanges the authorization code and stores the account.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.deps.Login == nil {
		s.responder.handleServiceError(ctx, w, identity.ErrNotConfigured)
		return
	}

	q := r.URL.Query()
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != q.Get("state") {
		s.responder.writeError(ctx, w, http.StatusBadRequest, "INVALID_STATE", errOAuthState)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/auth", MaxAge: -1})

	if msg := q.Get("error"); msg != "" {
		s.responder.writeError(ctx, w, http.StatusUnauthorized, "AUTH_REQUIRED", fmt.Errorf("%w: %s", identity.ErrAuthRequired, msg))
		return
	}
	if err := s.deps.Login.CompleteLogin(ctx, q.Get("code")); err != nil {
		s.responder.handleServiceError(ctx, w, err)
		return
	}
	s.responder.writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "connected"})
}

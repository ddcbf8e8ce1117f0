package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/lectern/internal/presenter"
)

type openPresenterRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=embed addin"`
}

type navigateRequest struct {
	Direction string `json:"direction" validate:"required,oneof=next prev"`
}

// handleOpenPresenter starts a session. A session whose file could not be
// loaded is still returned, with the status of the load failure.
func (s *Server) handleOpenPresenter(w http.ResponseWriter, r *http.Request) {
	var req openPresenterRequest
	if !s.decode(w, r, &req) {
		return
	}

	c, err := s.deps.Presenter.Open(r.Context(), chi.URLParam(r, "id"), presenter.Mode(req.Mode))
	if err != nil {
		if c == nil {
			s.responder.handleServiceError(r.Context(), w, err)
			return
		}
		status, _ := classify(err)
		s.responder.loggerFor(r.Context()).WarnContext(r.Context(), "presenter load failed", "status", status, "error", err)
		s.responder.writeJSON(r.Context(), w, status, c.Snapshot())
		return
	}
	s.responder.writeJSON(r.Context(), w, http.StatusCreated, c.Snapshot())
}

func (s *Server) handlePresenterState(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Presenter.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	s.responder.writeJSON(r.Context(), w, http.StatusOK, c.HostSnapshot(r.Context()))
}

func (s *Server) handleClosePresenter(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Presenter.Close(chi.URLParam(r, "id")); err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	s.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !s.decode(w, r, &req) {
		return
	}

	c, err := s.deps.Presenter.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if _, err := c.Navigate(r.Context(), presenter.Direction(req.Direction)); err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	s.responder.writeJSON(r.Context(), w, http.StatusOK, c.Snapshot())
}

func (s *Server) handleOpenAudience(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Presenter.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if _, err := c.OpenAudienceView(r.Context()); err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	s.responder.writeJSON(r.Context(), w, http.StatusOK, c.Snapshot())
}

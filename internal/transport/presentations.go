package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/rpggio/lectern/internal/domain/presentation"
	"github.com/rpggio/lectern/internal/presenter"
)

const maxUploadMemory = 32 << 20

type createPresentationRequest struct {
	ID               string     `json:"id" validate:"omitempty,max=64"`
	Title            string     `json:"title" validate:"required,notblank,max=300"`
	Description      string     `json:"description"`
	SpeakerName      string     `json:"speaker_name"`
	SpeakerEmail     string     `json:"speaker_email" validate:"omitempty,email"`
	CoSpeakers       string     `json:"co_speakers"`
	PresentationType string     `json:"presentation_type"`
	AudienceLevel    string     `json:"audience_level"`
	Tags             []string   `json:"tags"`
	ScheduledTime    *time.Time `json:"scheduled_time"`
	LengthMinutes    int        `json:"length_minutes" validate:"gte=0"`
	Room             string     `json:"room"`
	SessionID        *string    `json:"session_id"`
}

type updatePresentationRequest struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=300"`
	Description *string `json:"description"`
	SpeakerName *string `json:"speaker_name"`
	Room        *string `json:"room"`
}

type rescheduleRequest struct {
	ScheduledTime time.Time `json:"scheduled_time" validate:"required"`
}

type presentationLinks struct {
	ViewURL string `json:"view_url"`
	WebURL  string `json:"web_url,omitempty"`
}

type linkFileRequest struct {
	URL string `json:"url" validate:"required,url"`
}

func (s *Server) handleListPresentations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := pageParams(q.Get("limit"), q.Get("offset"))
	if err != nil {
		s.responder.writeError(r.Context(), w, http.StatusBadRequest, "INVALID_INPUT", err)
		return
	}

	if query := strings.TrimSpace(q.Get("q")); query != "" {
		results, err := s.deps.Presentations.Search(r.Context(), query, limit)
		if err != nil {
			s.responder.handleServiceError(r.Context(), w, err)
			return
		}
		s.responder.writeJSON(r.Context(), w, http.StatusOK, nonNil(results))
		return
	}

	opts := presentation.ListOptions{
		Room:             q.Get("room"),
		PresentationType: q.Get("type"),
		SessionID:        q.Get("session_id"),
		Limit:            limit,
		Offset:           offset,
	}
	if v := q.Get("has_file"); v != "" {
		hasFile, err := strconv.ParseBool(v)
		if err != nil {
			s.responder.writeError(r.Context(), w, http.StatusBadRequest, "INVALID_INPUT", errInvalidQuery)
			return
		}
		opts.HasFile = &hasFile
	}

	results, err := s.deps.Presentations.List(r.Context(), opts)
	if err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	s.responder.writeJSON(r.Context(), w, http.StatusOK, nonNil(results))
}

func (s *Server) handleCreatePresentation(w http.ResponseWriter, r *http.Request) {
	var req createPresentationRequest
	if !s.decode(w, r, &req) {
		return
	}

	p, err := s.deps.Presentations.Create(r.Context(), presentation.CreateRequest{
		ID:               req.ID,
		Title:            req.Title,
		Description:      req.Description,
		SpeakerName:      req.SpeakerName,
		SpeakerEmail:     req.SpeakerEmail,
		CoSpeakers:       req.CoSpeakers,
		PresentationType: req.PresentationType,
		AudienceLevel:    req.AudienceLevel,
		Tags:             req.Tags,
		ScheduledTime:    req.ScheduledTime,
		LengthMinutes:    req.LengthMinutes,
		Room:             req.Room,
		SessionID:        req.SessionID,
	})
	if err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	s.responder.writeJSON(r.Context(), w, http.StatusCreated, p)
}

func (s *Server) handleGetPresentation(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Presentations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	s.responder.writeJSON(r.Context(), w, http.StatusOK, p)
}

func (s *Server) handleUpdatePresentation(w http.ResponseWriter, r *http.Request) {
	var req updatePresentationRequest
	if !s.decode(w, r, &req) {
		return
	}

	p, err := s.deps.Presentations.UpdateDetails(r.Context(), chi.URLParam(r, "id"), presentation.UpdateDetailsRequest{
		Title:       req.Title,
		Description: req.Description,
		SpeakerName: req.SpeakerName,
		Room:        req.Room,
	})
	if err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	s.responder.writeJSON(r.Context(), w, http.StatusOK, p)
}

func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if !s.decode(w, r, &req) {
		return
	}

	p, err := s.deps.Presentations.Reschedule(r.Context(), chi.URLParam(r, "id"), req.ScheduledTime)
	if err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	s.responder.writeJSON(r.Context(), w, http.StatusOK, p)
}

// handleUploadFile stores the multipart "file" field in the drive and
// attaches the resulting item to the presentation.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if s.deps.Files == nil {
		s.responder.writeError(ctx, w, http.StatusServiceUnavailable, "NOT_CONFIGURED", errors.New("file storage is not configured"))
		return
	}
	if _, err := s.deps.Presentations.Get(ctx, id); err != nil {
		s.responder.handleServiceError(ctx, w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.responder.writeError(ctx, w, http.StatusBadRequest, "INVALID_INPUT", errBadRequestBody)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.responder.writeError(ctx, w, http.StatusBadRequest, "INVALID_INPUT", errMissingFile)
		return
	}
	defer file.Close()

	folder := r.FormValue("folder")
	if folder == "" {
		folder = s.deps.UploadFolder
	}
	itemID, err := s.deps.Files.Upload(ctx, header.Filename, file, folder)
	if err != nil {
		s.responder.handleServiceError(ctx, w, err)
		return
	}

	p, err := s.deps.Presentations.AttachFile(ctx, id, itemID, presentation.ProviderOneDrive)
	if err != nil {
		s.responder.handleServiceError(ctx, w, err)
		return
	}
	s.responder.writeJSON(ctx, w, http.StatusCreated, p)
}

// handleLinkFile attaches a public file URL without uploading it.
func (s *Server) handleLinkFile(w http.ResponseWriter, r *http.Request) {
	var req linkFileRequest
	if !s.decode(w, r, &req) {
		return
	}

	p, err := s.deps.Presentations.AttachFile(r.Context(), chi.URLParam(r, "id"), req.URL, "")
	if err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	s.responder.writeJSON(r.Context(), w, http.StatusOK, p)
}

// handleImportSchedule accepts the CSV either as the multipart "file"
// field or as the raw request body.
func (s *Server) handleImportSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			s.responder.writeError(ctx, w, http.StatusBadRequest, "INVALID_INPUT", errBadRequestBody)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			s.responder.writeError(ctx, w, http.StatusBadRequest, "INVALID_INPUT", errMissingFile)
			return
		}
		defer file.Close()
		body = file
	}

	result, err := s.deps.Schedule.Import(ctx, body)
	if err != nil {
		s.responder.handleServiceError(ctx, w, err)
		return
	}
	s.responder.writeJSON(ctx, w, http.StatusCreated, result)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.deps.Schedule.ListSessions(r.Context())
	if err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	s.responder.writeJSON(r.Context(), w, http.StatusOK, nonNil(sessions))
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := pageParams(q.Get("limit"), q.Get("offset"))
	if err != nil {
		s.responder.writeError(r.Context(), w, http.StatusBadRequest, "INVALID_INPUT", err)
		return
	}

	opts := audit.ListOptions{Limit: limit, Offset: offset}
	if id := q.Get("presentation_id"); id != "" {
		opts.PresentationID = &id
	}
	if action := q.Get("action"); action != "" {
		a := audit.Action(action)
		opts.Action = &a
	}

	entries, err := s.deps.Audit.List(r.Context(), opts)
	if err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return
	}
	s.responder.writeJSON(r.Context(), w, http.StatusOK, nonNil(entries))
}

// decode reads a JSON body into dst and validates it. It writes the error
// response and returns false on failure. An empty body decodes as {}.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.responder.writeError(r.Context(), w, http.StatusBadRequest, "INVALID_INPUT", errBadRequestBody)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		s.responder.handleServiceError(r.Context(), w, err)
		return false
	}
	return true
}

func pageParams(limitStr, offsetStr string) (int, int, error) {
	var limit, offset int
	var err error
	if limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil || limit < 0 {
			return 0, 0, errInvalidQuery
		}
	}
	if offsetStr != "" {
		if offset, err = strconv.Atoi(offsetStr); err != nil || offset < 0 {
			return 0, 0, errInvalidQuery
		}
	}
	return limit, offset, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// handlePresentationLinks returns a plain viewer URL for previewing the
// attached file and, when known, its storage page.
func (s *Server) handlePresentationLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.deps.Viewer == nil {
		s.responder.writeError(ctx, w, http.StatusServiceUnavailable, "NOT_CONFIGURED", errors.New("viewer is not configured"))
		return
	}

	p, err := s.deps.Presentations.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.responder.handleServiceError(ctx, w, err)
		return
	}
	if !p.HasFile() {
		s.responder.handleServiceError(ctx, w, presenter.ErrNoFile)
		return
	}

	var links presentationLinks
	ref := *p.FileRef
	if p.IsLegacyFile() {
		links.WebURL = ref
		links.ViewURL, err = s.deps.Viewer.ResolvePublic(ref, false)
	} else {
		links.ViewURL, err = s.deps.Viewer.Resolve(ctx, ref)
		if err == nil && s.deps.Locator != nil {
			links.WebURL, err = s.deps.Locator.WebURL(ctx, ref)
		}
	}
	if err != nil {
		s.responder.handleServiceError(ctx, w, err)
		return
	}
	s.responder.writeJSON(ctx, w, http.StatusOK, links)
}

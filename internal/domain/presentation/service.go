package presentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/rpggio/lectern/internal/repository"
)

// Service handles presentation operations.
type Service struct {
	repo   Repository
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService creates a new presentation service.
func NewService(repo Repository, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// CreateRequest defines presentation creation inputs.
type CreateRequest struct {
	ID               string
	Title            string
	Description      string
	SpeakerName      string
	SpeakerEmail     string
	CoSpeakers       string
	PresentationType string
	AudienceLevel    string
	Tags             []string
	ScheduledTime    *time.Time
	LengthMinutes    int
	Room             string
	SessionID        *string
}

// UpdateDetailsRequest carries the editable presentation fields. Nil fields
// are left unchanged.
type UpdateDetailsRequest struct {
	Title       *string
	Description *string
	SpeakerName *string
	Room        *string
}

// Create creates a new presentation.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Presentation, error) {
	if strings.TrimSpace(req.Title) == "" || req.LengthMinutes < 0 {
		return nil, ErrInvalidInput
	}

	id := req.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	p := &Presentation{
		ID:               id,
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
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return nil, fmt.Errorf("%w: unknown session", ErrInvalidInput)
		}
		return nil, fmt.Errorf("creating presentation: %w", err)
	}
	return p, nil
}

// Get fetches a presentation by ID.
func (s *Service) Get(ctx context.Context, id string) (*Presentation, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting presentation: %w", err)
	}
	return p, nil
}

// List returns presentations ordered by scheduled time.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Presentation, error) {
	return s.repo.List(ctx, opts)
}

// Search finds presentations by title, description, speaker or tag.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Presentation, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.Search(ctx, query, limit)
}

// Reschedule moves a presentation to a new time and records the move.
func (s *Service) Reschedule(ctx context.Context, id string, newTime time.Time) (*Presentation, error) {
	if newTime.IsZero() {
		return nil, ErrInvalidInput
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var oldTime string
	if p.ScheduledTime != nil {
		oldTime = p.ScheduledTime.Format(time.RFC3339)
	}
	p.ScheduledTime = &newTime
	p.UpdatedAt = time.Now()

	if err := s.update(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionMoveTime, p.ID, map[string]string{
		"oldTime": oldTime,
		"newTime": newTime.Format(time.RFC3339),
	})
	return p, nil
}

// UpdateDetails changes descriptive fields and records the old and new title.
func (s *Service) UpdateDetails(ctx context.Context, id string, req UpdateDetailsRequest) (*Presentation, error) {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, ErrInvalidInput
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	oldTitle := p.Title
	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.SpeakerName != nil {
		p.SpeakerName = *req.SpeakerName
	}
	if req.Room != nil {
		p.Room = *req.Room
	}
	p.UpdatedAt = time.Now()

	if err := s.update(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionUpdateDetails, p.ID, map[string]string{
		"oldTitle": oldTitle,
		"newTitle": p.Title,
	})
	return p, nil
}

// AttachFile points the presentation at a stored file. An empty provider
// marks fileRef as a legacy public URL.
func (s *Service) AttachFile(ctx context.Context, id, fileRef string, provider FileProvider) (*Presentation, error) {
	if strings.TrimSpace(fileRef) == "" {
		return nil, ErrInvalidInput
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p.FileRef = &fileRef
	if provider != "" {
		p.FileProvider = &provider
	} else {
		p.FileProvider = nil
	}
	p.UpdatedAt = time.Now()

	if err := s.update(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionAttachFile, p.ID, map[string]string{
		"fileRef":  fileRef,
		"provider": string(provider),
	})
	return p, nil
}

func (s *Service) update(ctx context.Context, p *Presentation) error {
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("updating presentation: %w", err)
	}
	return nil
}

// record logs audit failures instead of failing a change that already
// committed.
func (s *Service) record(ctx context.Context, action audit.Action, id string, details any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, action, id, details); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit record failed", "action", action, "presentation_id", id, "error", err)
	}
}

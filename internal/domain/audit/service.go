package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Service handles audit log operations.
type Service struct {
	repo   Repository
	actor  string
	logger *slog.Logger
}

// NewService creates a new audit service. Entries without a user name are
// attributed to actor.
func NewService(repo Repository, actor string, logger *slog.Logger) *Service {
	return &Service{repo: repo, actor: actor, logger: logger}
}

// Record marshals details and appends an entry for the given presentation.
// An empty presentationID logs an entry that is not tied to one presentation.
func (s *Service) Record(ctx context.Context, action Action, presentationID string, details any) error {
	entry := &Entry{Action: action}
	if presentationID != "" {
		entry.PresentationID = &presentationID
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encoding audit details: %w", err)
		}
		entry.Details = raw
	}
	return s.Log(ctx, entry)
}

// Log appends an entry, filling in the timestamp and actor if missing. The
// actor comes from ctx when set, else the service default.
func (s *Service) Log(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.Action == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.UserName == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			entry.UserName = actor
		} else {
			entry.UserName = s.actor
		}
	}
	if err := s.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("logging audit entry: %w", err)
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "audit entry logged", "action", entry.Action, "id", entry.ID)
	}
	return nil
}

// List returns audit entries, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	return s.repo.List(ctx, opts)
}

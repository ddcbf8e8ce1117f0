package schedule

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/rpggio/lectern/internal/domain/presentation"
)

// Service imports and lists the conference schedule.
type Service struct {
	sessions      Repository
	presentations PresentationCreator
	audit         AuditRecorder
	logger        *slog.Logger
}

// NewService creates a new schedule service.
func NewService(sessions Repository, presentations PresentationCreator, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{sessions: sessions, presentations: presentations, audit: audit, logger: logger}
}

// ListSessions returns all conference sessions ordered by start time.
func (s *Service) ListSessions(ctx context.Context) ([]Session, error) {
	return s.sessions.List(ctx)
}

// Import parses a schedule CSV, upserts one session per distinct
// name|start|room and creates a presentation per row linked to its session.
// Rows already written stay written when a later row fails.
func (s *Service) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	rows, err := ParseCSV(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptySchedule
	}

	result := &ImportResult{Rows: len(rows)}
	sessionIDs := map[string]string{}

	for i, row := range rows {
		key := row.SessionKey()
		if _, seen := sessionIDs[key]; seen || row["session_name"] == "" {
			continue
		}
		sess, err := sessionFromRow(row)
		if err != nil {
			return result, fmt.Errorf("%w: row %d: %v", ErrInvalidCSV, i+2, err)
		}
		if err := s.sessions.Upsert(ctx, sess); err != nil {
			return result, fmt.Errorf("upserting session %q: %w", sess.Name, err)
		}
		sessionIDs[key] = sess.ID
		result.SessionIDs = append(result.SessionIDs, sess.ID)
		result.SessionsUpserted++
	}

	for i, row := range rows {
		req, err := presentationFromRow(row)
		if err != nil {
			return result, fmt.Errorf("%w: row %d: %v", ErrInvalidCSV, i+2, err)
		}
		if id, ok := sessionIDs[row.SessionKey()]; ok {
			req.SessionID = &id
		}
		if _, err := s.presentations.Create(ctx, req); err != nil {
			return result, fmt.Errorf("importing row %d: %w", i+2, err)
		}
		result.PresentationsCreated++
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, audit.ActionImportSchedule, "", result); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "audit record failed", "action", audit.ActionImportSchedule, "error", err)
		}
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "schedule imported",
			"rows", result.Rows,
			"sessions", result.SessionsUpserted,
			"presentations", result.PresentationsCreated)
	}
	return result, nil
}

func sessionFromRow(row Row) (*Session, error) {
	start, err := ParseTime(row["session_start_time"])
	if err != nil {
		return nil, fmt.Errorf("session_start_time: %w", err)
	}
	length, err := parseMinutes(row["session_length_minutes"])
	if err != nil {
		return nil, fmt.Errorf("session_length_minutes: %w", err)
	}
	sess := &Session{
		ID:            uuid.NewString(),
		Name:          row["session_name"],
		Description:   row["session_description"],
		LengthMinutes: length,
		Room:          row["session_room"],
		CreatedAt:     time.Now(),
	}
	if start != nil {
		sess.StartTime = *start
	}
	return sess, nil
}

func presentationFromRow(row Row) (presentation.CreateRequest, error) {
	scheduled, err := ParseTime(row["scheduled_time"])
	if err != nil {
		return presentation.CreateRequest{}, fmt.Errorf("scheduled_time: %w", err)
	}
	length, err := parseMinutes(row["length_minutes"])
	if err != nil {
		return presentation.CreateRequest{}, fmt.Errorf("length_minutes: %w", err)
	}
	return presentation.CreateRequest{
		Title:            row["title"],
		Description:      row["description"],
		SpeakerName:      row["speaker_name"],
		SpeakerEmail:     row["speaker_email"],
		CoSpeakers:       row["co_speakers"],
		PresentationType: row["presentation_type"],
		AudienceLevel:    row["audience_level"],
		Tags:             row.Tags(),
		ScheduledTime:    scheduled,
		LengthMinutes:    length,
		Room:             row["room"],
	}, nil
}

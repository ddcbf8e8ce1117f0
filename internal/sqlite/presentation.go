package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/lectern/internal/domain/presentation"
	"github.com/rpggio/lectern/internal/repository"
)

// PresentationRepository implements presentation.Repository for SQLite
type PresentationRepository struct {
	db *DB
}

// NewPresentationRepository creates a new PresentationRepository
func NewPresentationRepository(db *DB) *PresentationRepository {
	return &PresentationRepository{db: db}
}

const presentationColumns = `
	p.id, p.title, p.description, p.speaker_name, p.speaker_email, p.co_speakers,
	p.presentation_type, p.audience_level, p.tags, p.scheduled_time, p.length_minutes,
	p.room, p.session_id, p.file_ref, p.file_provider, p.created_at, p.updated_at`

// Create inserts a new presentation
func (r *PresentationRepository) Create(ctx context.Context, p *presentation.Presentation) error {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO presentations (
			id, title, description, speaker_name, speaker_email, co_speakers,
			presentation_type, audience_level, tags, scheduled_time, length_minutes,
			room, session_id, file_ref, file_provider, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.Title,
		p.Description,
		p.SpeakerName,
		p.SpeakerEmail,
		p.CoSpeakers,
		p.PresentationType,
		p.AudienceLevel,
		tags,
		nullTime(p.ScheduledTime),
		p.LengthMinutes,
		p.Room,
		p.SessionID,
		p.FileRef,
		providerValue(p.FileProvider),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create presentation: %w", err)
	}

	return nil
}

// Get retrieves a presentation by ID
func (r *PresentationRepository) Get(ctx context.Context, id string) (*presentation.Presentation, error) {
	query := `SELECT ` + presentationColumns + ` FROM presentations p WHERE p.id = ?`

	p, err := scanPresentation(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presentation: %w", err)
	}
	return p, nil
}

// List returns presentations matching the filters, earliest first. Unscheduled
// presentations sort last.
func (r *PresentationRepository) List(ctx context.Context, opts presentation.ListOptions) ([]presentation.Presentation, error) {
	query := `SELECT ` + presentationColumns + ` FROM presentations p`

	args := []interface{}{}
	conditions := []string{}

	if opts.Room != "" {
		conditions = append(conditions, "p.room = ?")
		args = append(args, opts.Room)
	}
	if opts.PresentationType != "" {
		conditions = append(conditions, "p.presentation_type = ?")
		args = append(args, opts.PresentationType)
	}
	if opts.SessionID != "" {
		conditions = append(conditions, "p.session_id = ?")
		args = append(args, opts.SessionID)
	}
	if opts.HasFile != nil {
		if *opts.HasFile {
			conditions = append(conditions, "p.file_ref IS NOT NULL AND p.file_ref != ''")
		} else {
			conditions = append(conditions, "(p.file_ref IS NULL OR p.file_ref = '')")
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY p.scheduled_time IS NULL, p.scheduled_time, p.title"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	return r.query(ctx, query, args...)
}

// Update overwrites the mutable fields of a presentation. Last writer wins.
func (r *PresentationRepository) Update(ctx context.Context, p *presentation.Presentation) error {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE presentations
		SET title = ?, description = ?, speaker_name = ?, speaker_email = ?,
			co_speakers = ?, presentation_type = ?, audience_level = ?, tags = ?,
			scheduled_time = ?, length_minutes = ?, room = ?, session_id = ?,
			file_ref = ?, file_provider = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		p.Title,
		p.Description,
		p.SpeakerName,
		p.SpeakerEmail,
		p.CoSpeakers,
		p.PresentationType,
		p.AudienceLevel,
		tags,
		nullTime(p.ScheduledTime),
		p.LengthMinutes,
		p.Room,
		p.SessionID,
		p.FileRef,
		providerValue(p.FileProvider),
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to update presentation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *PresentationRepository) query(ctx context.Context, query string, args ...interface{}) ([]presentation.Presentation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list presentations: %w", err)
	}
	defer rows.Close()

	var list []presentation.Presentation
	for rows.Next() {
		p, err := scanPresentation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan presentation: %w", err)
		}
		list = append(list, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating presentation rows: %w", err)
	}

	return list, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPresentation(row rowScanner) (*presentation.Presentation, error) {
	var p presentation.Presentation
	var tags string
	var scheduled sql.NullTime
	var sessionID, fileRef, fileProvider sql.NullString

	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.SpeakerName,
		&p.SpeakerEmail,
		&p.CoSpeakers,
		&p.PresentationType,
		&p.AudienceLevel,
		&tags,
		&scheduled,
		&p.LengthMinutes,
		&p.Room,
		&sessionID,
		&fileRef,
		&fileProvider,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	if scheduled.Valid {
		t := scheduled.Time
		p.ScheduledTime = &t
	}
	if sessionID.Valid {
		p.SessionID = &sessionID.String
	}
	if fileRef.Valid {
		p.FileRef = &fileRef.String
	}
	if fileProvider.Valid && fileProvider.String != "" {
		provider := presentation.FileProvider(fileProvider.String)
		p.FileProvider = &provider
	}

	return &p, nil
}

func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(data), nil
}

func providerValue(provider *presentation.FileProvider) interface{} {
	if provider == nil || *provider == "" {
		return nil
	}
	return string(*provider)
}

// nullTime stores times in UTC so equal instants compare equal in SQL.
func nullTime(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

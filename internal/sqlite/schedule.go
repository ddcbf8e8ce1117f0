package sqlite

import (
	"context"
	"fmt"

	"github.com/rpggio/lectern/internal/domain/schedule"
)

// ScheduleRepository implements schedule.Repository for SQLite
type ScheduleRepository struct {
	db *DB
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(db *DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Upsert inserts a session or updates the existing one with the same
// name, start time and room. sess.ID is replaced by the stored ID.
func (r *ScheduleRepository) Upsert(ctx context.Context, sess *schedule.Session) error {
	query := `
		INSERT INTO conference_sessions (id, name, description, start_time, length_minutes, room, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name, start_time, room) DO UPDATE SET
			description = excluded.description,
			length_minutes = excluded.length_minutes
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		sess.ID,
		sess.Name,
		sess.Description,
		sess.StartTime.UTC(),
		sess.LengthMinutes,
		sess.Room,
		sess.CreatedAt,
	).Scan(&sess.ID, &sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

// List returns all sessions ordered by start time
func (r *ScheduleRepository) List(ctx context.Context) ([]schedule.Session, error) {
	query := `
		SELECT id, name, description, start_time, length_minutes, room, created_at
		FROM conference_sessions
		ORDER BY start_time, room, name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []schedule.Session
	for rows.Next() {
		var sess schedule.Session
		if err := rows.Scan(
			&sess.ID,
			&sess.Name,
			&sess.Description,
			&sess.StartTime,
			&sess.LengthMinutes,
			&sess.Room,
			&sess.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return sessions, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/lectern/internal/domain/audit"
)

// AuditRepository implements audit.Repository for SQLite
type AuditRepository struct {
	db *DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Log inserts a new audit entry
func (r *AuditRepository) Log(ctx context.Context, entry *audit.Entry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var details interface{}
	if len(entry.Details) > 0 {
		details = string(entry.Details)
	}

	query := `
		INSERT INTO audit_log (action, presentation_id, user_name, details, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.Action,
		entry.PresentationID,
		entry.UserName,
		details,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		entry.ID = id
	}
	entry.CreatedAt = createdAt

	return nil
}

// List returns audit entries matching the given filters, newest first
func (r *AuditRepository) List(ctx context.Context, opts audit.ListOptions) ([]audit.Entry, error) {
	query := `
		SELECT id, action, presentation_id, user_name, details, created_at
		FROM audit_log
	`

	args := []interface{}{}
	conditions := []string{}

	if opts.PresentationID != nil {
		conditions = append(conditions, "presentation_id = ?")
		args = append(args, *opts.PresentationID)
	}
	if opts.Action != nil {
		conditions = append(conditions, "action = ?")
		args = append(args, *opts.Action)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"

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

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var entry audit.Entry
		var presentationID sql.NullString
		var details sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&presentationID,
			&entry.UserName,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if presentationID.Valid {
			entry.PresentationID = &presentationID.String
		}
		if details.Valid && details.String != "" {
			entry.Details = []byte(details.String)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}

	return entries, nil
}

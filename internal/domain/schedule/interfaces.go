package schedule

import (
	"context"

	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/rpggio/lectern/internal/domain/presentation"
)

// Repository provides persistence for conference sessions.
type Repository interface {
	// Upsert inserts the session or, when (name, start_time, room) already
	// exists, updates it in place. sess.ID is set to the stored row's ID.
	Upsert(ctx context.Context, sess *Session) error
	List(ctx context.Context) ([]Session, error)
}

// PresentationCreator creates the presentations listed in a schedule.
type PresentationCreator interface {
	Create(ctx context.Context, req presentation.CreateRequest) (*presentation.Presentation, error)
}

// AuditRecorder appends audit entries for imports.
type AuditRecorder interface {
	Record(ctx context.Context, action audit.Action, presentationID string, details any) error
}

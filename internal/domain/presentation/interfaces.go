package presentation

import (
	"context"

	"github.com/rpggio/lectern/internal/domain/audit"
)

// Repository provides persistence for presentations.
type Repository interface {
	Create(ctx context.Context, p *Presentation) error
	Get(ctx context.Context, id string) (*Presentation, error)
	List(ctx context.Context, opts ListOptions) ([]Presentation, error)
	Update(ctx context.Context, p *Presentation) error
	Search(ctx context.Context, query string, limit int) ([]Presentation, error)
}

// AuditRecorder appends audit entries for presentation changes.
type AuditRecorder interface {
	Record(ctx context.Context, action audit.Action, presentationID string, details any) error
}

package mocks

import (
	"context"

	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/rpggio/lectern/internal/domain/presentation"
	"github.com/rpggio/lectern/internal/domain/schedule"
	"github.com/stretchr/testify/mock"
)

// PresentationRepository is a mock for presentation.Repository.
type PresentationRepository struct {
	mock.Mock
}

func (m *PresentationRepository) Create(ctx context.Context, p *presentation.Presentation) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *PresentationRepository) Get(ctx context.Context, id string) (*presentation.Presentation, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*presentation.Presentation); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PresentationRepository) List(ctx context.Context, opts presentation.ListOptions) ([]presentation.Presentation, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]presentation.Presentation); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PresentationRepository) Update(ctx context.Context, p *presentation.Presentation) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *PresentationRepository) Search(ctx context.Context, query string, limit int) ([]presentation.Presentation, error) {
	args := m.Called(ctx, query, limit)
	if list, ok := args.Get(0).([]presentation.Presentation); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ScheduleRepository is a mock for schedule.Repository.
type ScheduleRepository struct {
	mock.Mock
}

func (m *ScheduleRepository) Upsert(ctx context.Context, sess *schedule.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *ScheduleRepository) List(ctx context.Context) ([]schedule.Session, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]schedule.Session); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// AuditRepository is a mock for audit.Repository.
type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Log(ctx context.Context, entry *audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *AuditRepository) List(ctx context.Context, opts audit.ListOptions) ([]audit.Entry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]audit.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// AuditRecorder is a mock for the Record side of audit.Service.
type AuditRecorder struct {
	mock.Mock
}

func (m *AuditRecorder) Record(ctx context.Context, action audit.Action, presentationID string, details any) error {
	args := m.Called(ctx, action, presentationID, details)
	return args.Error(0)
}

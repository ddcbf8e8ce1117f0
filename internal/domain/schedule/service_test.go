package schedule_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rpggio/lectern/internal/domain/presentation"
	"github.com/rpggio/lectern/internal/domain/schedule"
	"github.com/rpggio/lectern/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingCreator struct {
	requests []presentation.CreateRequest
}

func (c *recordingCreator) Create(_ context.Context, req presentation.CreateRequest) (*presentation.Presentation, error) {
	c.requests = append(c.requests, req)
	return &presentation.Presentation{ID: "generated", Title: req.Title}, nil
}

const sampleCSV = `session_name,session_description,session_start_time,session_length_minutes,session_room,title,description,speaker_name,speaker_email,co_speakers,presentation_type,audience_level,tags,scheduled_time,length_minutes,room
Keynotes,Opening,2025-06-01 09:00,60,Hall A,Welcome,Hello,Ada,ada@example.com,,keynote,all,"opening, welcome",2025-06-01 09:00,20,Hall A
Keynotes,Opening,2025-06-01 09:00,60,Hall A,State of Go,Trends,Rob,rob@example.com,,keynote,all,go,2025-06-01 09:20,40,Hall A

Workshops,Hands on,2025-06-01 11:00,120,Room 2,Concurrency,Lab,Sam,sam@example.com,Kim,workshop,advanced,,2025-06-01T11:00:00Z,120,Room 2
`

func TestScheduleService_ImportDeduplicatesSessions(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.ScheduleRepository{}
	repo.On("Upsert", ctx, mock.Anything).Return(nil).Twice()

	auditRepo := &mocks.AuditRecorder{}
	auditRepo.On("Record", ctx, mock.Anything, "", mock.Anything).Return(nil)

	creator := &recordingCreator{}
	svc := schedule.NewService(repo, creator, auditRepo, nil)

	result, err := svc.Import(ctx, strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Equal(t, 3, result.Rows)
	require.Equal(t, 2, result.SessionsUpserted)
	require.Equal(t, 3, result.PresentationsCreated)
	repo.AssertNumberOfCalls(t, "Upsert", 2)

	require.Len(t, creator.requests, 3)
	require.NotNil(t, creator.requests[0].SessionID)
	require.Equal(t, *creator.requests[0].SessionID, *creator.requests[1].SessionID)
	require.NotEqual(t, *creator.requests[0].SessionID, *creator.requests[2].SessionID)
	require.Equal(t, []string{"opening", "welcome"}, creator.requests[0].Tags)
	require.Equal(t, 40, creator.requests[1].LengthMinutes)
	require.Equal(t, 11, creator.requests[2].ScheduledTime.Hour())
	auditRepo.AssertExpectations(t)
}

func TestScheduleService_ImportRejectsBadRows(t *testing.T) {
	ctx := context.Background()
	svc := schedule.NewService(&mocks.ScheduleRepository{}, &recordingCreator{}, nil, nil)

	_, err := svc.Import(ctx, strings.NewReader("name,room\nx,y\n"))
	require.ErrorIs(t, err, schedule.ErrInvalidCSV)

	_, err = svc.Import(ctx, strings.NewReader("title,length_minutes\n"))
	require.ErrorIs(t, err, schedule.ErrEmptySchedule)

	_, err = svc.Import(ctx, strings.NewReader("title,length_minutes\nTalk,forty\n"))
	require.ErrorIs(t, err, schedule.ErrInvalidCSV)
	require.ErrorContains(t, err, "row 2")
}

func TestParseTime(t *testing.T) {
	ts, err := schedule.ParseTime("")
	require.NoError(t, err)
	require.Nil(t, ts)

	ts, err = schedule.ParseTime("2025-06-01 14:30")
	require.NoError(t, err)
	require.Equal(t, 14, ts.Hour())
	require.Equal(t, 30, ts.Minute())

	_, err = schedule.ParseTime("tomorrow")
	require.Error(t, err)
}

package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/stretchr/testify/require"
)

func TestAuditRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewAuditRepository(db)

	p1 := "p1"
	entry1 := &audit.Entry{Action: audit.ActionMoveTime, PresentationID: &p1, UserName: "Admin", Details: []byte(`{"oldTime":"a","newTime":"b"}`)}
	entry2 := &audit.Entry{Action: audit.ActionAttachFile, PresentationID: &p1, UserName: "Admin"}
	entry3 := &audit.Entry{Action: audit.ActionImportSchedule, UserName: "Admin"}

	require.NoError(t, repo.Log(ctx, entry1))
	require.NoError(t, repo.Log(ctx, entry2))
	require.NoError(t, repo.Log(ctx, entry3))
	require.NotZero(t, entry1.ID)

	entries, err := repo.List(ctx, audit.ListOptions{PresentationID: &p1})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, audit.ActionAttachFile, entries[0].Action)
	require.Equal(t, audit.ActionMoveTime, entries[1].Action)
	require.JSONEq(t, `{"oldTime":"a","newTime":"b"}`, string(entries[1].Details))

	action := audit.ActionImportSchedule
	entries, err = repo.List(ctx, audit.ListOptions{Action: &action})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Nil(t, entries[0].PresentationID)

	entries, err = repo.List(ctx, audit.ListOptions{Offset: 2})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

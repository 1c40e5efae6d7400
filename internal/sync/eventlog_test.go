package syncx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fideprep/fideprep-api/internal/db"
	syncx "github.com/fideprep/fideprep-api/internal/sync"
)

func TestEventRepoAppendAndList(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	repo := syncx.NewEventRepo(conn, "")
	for _, typ := range []string{"MockExamStarted", "PathSelected"} {
		e, err := syncx.NewEvent(typ, "exam:1", map[string]any{"examId": 1})
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, e))
	}
	other, err := syncx.NewEvent("MockExamStarted", "exam:2", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, other))

	got, err := repo.ListByKey(ctx, "exam:1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "MockExamStarted", got[0].Type)
	assert.Equal(t, "PathSelected", got[1].Type)
	assert.Equal(t, "local", got[0].SiteID)
	assert.JSONEq(t, `{"examId":1}`, got[0].DataJSON)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.Less(t, got[0].Seq, got[1].Seq)
}

func TestMemoryLog(t *testing.T) {
	var log syncx.MemoryLog
	require.NoError(t, log.Append(context.Background(), syncx.Event{Type: "A"}))
	require.NoError(t, log.Append(context.Background(), syncx.Event{Type: "B"}))
	evs := log.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, int64(2), evs[1].Seq)
	assert.NotEmpty(t, evs[0].ID)
}

package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fideprep/fideprep-api/internal/db"
)

func openMem(t *testing.T) *sql.DB {
	t.Helper()
	h, err := db.Open(context.Background(), db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestOpenCreatesSchemaIdempotently(t *testing.T) {
	h := openMem(t)
	ctx := context.Background()

	// a second Open over the same database must not fail on existing tables
	again, err := db.Open(ctx, db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	_ = again.Close()

	for _, table := range []string{"sections", "mock_exams", "mock_answers", "event_log"} {
		var n int
		err := h.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
		require.NoError(t, err, table)
		assert.Zero(t, n, table)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	h := openMem(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, h, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO event_log (id, typ, key, data, created_at) VALUES ('e1','T','k','{}',1)`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, h.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_log`).Scan(&n))
	assert.Zero(t, n)
}

func TestUniqueUserA2Index(t *testing.T) {
	h := openMem(t)
	ctx := context.Background()
	ins := `INSERT INTO mock_exams (user_id, status, language, speaking_a2_id, created_at, updated_at) VALUES ($1,'IN_PROGRESS','FR',$2,1,1)`

	_, err := h.ExecContext(ctx, ins, "u1", "a2-1")
	require.NoError(t, err)
	_, err = h.ExecContext(ctx, ins, "u1", "a2-1")
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))

	// listening-only sessions have no A2 speaking reference and never collide
	_, err = h.ExecContext(ctx, ins, "u1", nil)
	require.NoError(t, err)
	_, err = h.ExecContext(ctx, ins, "u1", nil)
	require.NoError(t, err)
}

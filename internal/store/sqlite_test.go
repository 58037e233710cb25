package store_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x-notion-sync/internal/model"
	"x-notion-sync/internal/store"
)

func openTemp(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	rep := &model.Report{RunID: "r1", Username: "alice", Source: "x", StartedAt: time.Now()}
	require.NoError(t, s.BeginRun(ctx, rep))

	now := time.Now()
	require.NoError(t, s.Record(ctx, "r1", model.ItemOutcome{PostID: "1", Title: "a", Category: model.CategoryAI, Status: model.StatusWritten, HTTPStatus: 200, PageID: "p1", At: now}))
	require.NoError(t, s.Record(ctx, "r1", model.ItemOutcome{PostID: "2", Title: "b", Category: model.CategoryOther, Status: model.StatusFailed, HTTPStatus: 400, Error: "bad", At: now}))
	// 同一推文重复写入不去重
	require.NoError(t, s.Record(ctx, "r1", model.ItemOutcome{PostID: "1", Title: "a", Category: model.CategoryAI, Status: model.StatusWritten, At: now}))

	rep.Fetched, rep.Relevant, rep.Written, rep.Failed = 3, 3, 2, 1
	rep.FinishedAt = time.Now()
	require.NoError(t, s.FinishRun(ctx, rep))

	run, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "alice", run.Username)
	assert.Equal(t, 2, run.Written)
	assert.Equal(t, 1, run.Failed)
	assert.False(t, run.FinishedAt.IsZero())
	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	items, err := s.ListItems(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "1", items[0].PostID)
	assert.Equal(t, "p1", items[0].PageID)
	assert.Equal(t, model.CategoryOther, items[1].Category)
	assert.Equal(t, 400, items[1].HTTPStatus)
	assert.Equal(t, "bad", items[1].Error)
	assert.Equal(t, now.Unix(), items[0].At.Unix())

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, 3, st.Items)
	assert.Equal(t, 2, st.Written)
	assert.Equal(t, 1, st.Failed)
	assert.False(t, st.LastRunAt.IsZero())

	empty, err := s.ListItems(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLite_BeginRunRequiresID(t *testing.T) {
	s := openTemp(t)
	assert.Error(t, s.BeginRun(context.Background(), &model.Report{}))
}

func TestSQLite_CleanOldAndReset(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	old := time.Now().AddDate(-1, 0, 0)
	require.NoError(t, s.BeginRun(ctx, &model.Report{RunID: "old", StartedAt: old}))
	require.NoError(t, s.Record(ctx, "old", model.ItemOutcome{PostID: "o", Status: model.StatusWritten, At: old}))
	require.NoError(t, s.BeginRun(ctx, &model.Report{RunID: "new", StartedAt: time.Now()}))
	require.NoError(t, s.Record(ctx, "new", model.ItemOutcome{PostID: "n", Status: model.StatusWritten, At: time.Now()}))

	require.NoError(t, s.CleanOld(ctx, 0))
	st, _ := s.Stats(ctx)
	assert.Equal(t, 2, st.Runs)

	require.NoError(t, s.CleanOld(ctx, 30))
	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, 1, st.Items)

	require.NoError(t, s.Reset(ctx))
	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Runs)
	assert.Equal(t, 0, st.Items)
	assert.True(t, st.LastRunAt.IsZero())
}

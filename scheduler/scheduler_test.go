package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"modguard/model"
	"modguard/store"
)

type fakeExecutor struct {
	mu       sync.Mutex
	executed []model.TimedAction
	err      error
}

func (f *fakeExecutor) ExecuteTimedAction(ctx context.Context, action model.TimedAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, action)
	return f.err
}

func (f *fakeExecutor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.executed)
}

func setupTest(t *testing.T, maxAttempts int) (*Scheduler, *sqlx.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, 30*time.Second, maxAttempts, zap.NewNop()), db
}

func TestSweepExecutesDueActionsOnce(t *testing.T) {
	s, db := setupTest(t, 3)
	exec := &fakeExecutor{}
	now := time.Now()

	require.NoError(t, s.Schedule(model.TimedAction{
		ID: "a1", GuildID: "g1", UserID: "u1",
		Kind: model.KindUnmute, DueAt: now.Add(-time.Minute).UTC().Unix(),
	}))

	s.sweepOnce(context.Background(), exec, now)
	assert.Equal(t, 1, exec.calls())

	// Executed actions leave the pending set and never fire again.
	s.sweepOnce(context.Background(), exec, now)
	assert.Equal(t, 1, exec.calls())

	pending, err := store.CountPendingActions(db)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
}

func TestSweepSkipsFutureActions(t *testing.T) {
	s, _ := setupTest(t, 3)
	exec := &fakeExecutor{}
	now := time.Now()

	require.NoError(t, s.Schedule(model.TimedAction{
		ID: "a1", GuildID: "g1", UserID: "u1",
		Kind: model.KindUnmute, DueAt: now.Add(time.Hour).UTC().Unix(),
	}))

	s.sweepOnce(context.Background(), exec, now)
	assert.Equal(t, 0, exec.calls())
}

func TestCancelledActionNeverFires(t *testing.T) {
	s, _ := setupTest(t, 3)
	exec := &fakeExecutor{}
	now := time.Now()

	require.NoError(t, s.Schedule(model.TimedAction{
		ID: "a1", GuildID: "g1", UserID: "u1",
		Kind: model.KindUnmute, DueAt: now.Add(-time.Minute).UTC().Unix(),
	}))

	existed, err := s.Cancel("a1")
	require.NoError(t, err)
	assert.True(t, existed)

	s.sweepOnce(context.Background(), exec, now)
	assert.Equal(t, 0, exec.calls())

	// Cancelling again reports nothing removed.
	existed, err = s.Cancel("a1")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestScheduleIdempotentOnID(t *testing.T) {
	s, db := setupTest(t, 3)
	now := time.Now()

	action := model.TimedAction{
		ID: "a1", GuildID: "g1", UserID: "u1",
		Kind: model.KindUnmute, DueAt: now.Add(time.Hour).UTC().Unix(),
	}
	require.NoError(t, s.Schedule(action))
	require.NoError(t, s.Schedule(action))

	pending, err := store.CountPendingActions(db)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestFailedActionRetriesThenDeadLetters(t *testing.T) {
	s, db := setupTest(t, 2)
	exec := &fakeExecutor{err: errors.New("platform down")}
	now := time.Now()

	require.NoError(t, s.Schedule(model.TimedAction{
		ID: "a1", GuildID: "g1", UserID: "u1",
		Kind: model.KindUnmute, DueAt: now.Add(-time.Minute).UTC().Unix(),
	}))

	// First sweep fails and requeues with attempts=1.
	s.sweepOnce(context.Background(), exec, now)
	assert.Equal(t, 1, exec.calls())
	pending, err := store.CountPendingActions(db)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	// Second sweep exhausts the budget and parks the action.
	s.sweepOnce(context.Background(), exec, now)
	assert.Equal(t, 2, exec.calls())

	pending, err = store.CountPendingActions(db)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)

	letters, err := store.GetDeadLetters(db)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "a1", letters[0].ID)
	assert.Equal(t, "platform down", letters[0].LastErr)

	// Dead-lettered actions are never re-claimed.
	s.sweepOnce(context.Background(), exec, now)
	assert.Equal(t, 2, exec.calls())
}

func TestFailedActionRecoversOnRetry(t *testing.T) {
	s, db := setupTest(t, 5)
	exec := &fakeExecutor{err: errors.New("transient")}
	now := time.Now()

	require.NoError(t, s.Schedule(model.TimedAction{
		ID: "a1", GuildID: "g1", UserID: "u1",
		Kind: model.KindUnmute, DueAt: now.Add(-time.Minute).UTC().Unix(),
	}))

	s.sweepOnce(context.Background(), exec, now)
	assert.Equal(t, 1, exec.calls())

	exec.mu.Lock()
	exec.err = nil
	exec.mu.Unlock()

	s.sweepOnce(context.Background(), exec, now)
	assert.Equal(t, 2, exec.calls())

	pending, err := store.CountPendingActions(db)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
	dead, err := store.CountDeadLetters(db)
	require.NoError(t, err)
	assert.Equal(t, 0, dead)
}

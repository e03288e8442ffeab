package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"modguard/model"
	"modguard/store"
)

// Executor executes a due timed action. Implemented by the enforcement
// engine; the scheduler re-enters it on its own cadence.
type Executor interface {
	ExecuteTimedAction(ctx context.Context, action model.TimedAction) error
}

// Scheduler owns pending timed actions from creation until they fire or are
// cancelled. Actions survive restarts in the timed_actions table; the sweep
// simply picks them up again.
type Scheduler struct {
	db          *sqlx.DB
	logger      *zap.Logger
	interval    time.Duration
	maxAttempts int

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a scheduler. Start it with the executor once the engine exists.
func New(db *sqlx.DB, interval time.Duration, maxAttempts int, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Scheduler{
		db:          db,
		logger:      logger.Named("scheduler"),
		interval:    interval,
		maxAttempts: maxAttempts,
		done:        make(chan struct{}),
	}
}

// Schedule persists a pending action. Idempotent on ID; an action without an
// ID gets one assigned.
func (s *Scheduler) Schedule(action model.TimedAction) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if err := store.AddTimedAction(s.db, action); err != nil {
		return fmt.Errorf("schedule %s for user %s: %w", action.Kind, action.UserID, err)
	}
	s.logger.Info("scheduled timed action",
		zap.String("id", action.ID),
		zap.String("kind", string(action.Kind)),
		zap.String("user_id", action.UserID),
		zap.Int64("due_at", action.DueAt))
	return nil
}

// Cancel removes a pending action by ID. Returns true if one existed.
func (s *Scheduler) Cancel(id string) (bool, error) {
	return store.CancelAction(s.db, id)
}

// CancelFor removes pending actions of a kind for a user, e.g. a manual
// unmute cancelling the pending automatic one. Not an error if none exist.
func (s *Scheduler) CancelFor(guildID, userID string, kind model.ActionKind) (bool, error) {
	return store.CancelActionsFor(s.db, guildID, userID, kind)
}

// Start begins the recurring sweep.
func (s *Scheduler) Start(exec Executor) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweepOnce(context.Background(), exec, time.Now())
			case <-s.done:
				return
			}
		}
	}()
}

// Stop terminates the sweep gracefully.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	close(s.done)
	s.wg.Wait()
}

// sweepOnce claims and executes every action due at the given time. Actions
// are claimed with a conditional delete, so an action concurrently cancelled
// (or taken by another sweep) is skipped. Execution failures put the action
// back with attempts+1 until the retry budget runs out, then park it in the
// dead-letter table where operators can see it.
func (s *Scheduler) sweepOnce(ctx context.Context, exec Executor, now time.Time) {
	due, err := store.GetDueActions(s.db, now)
	if err != nil {
		s.logger.Error("failed to load due actions", zap.Error(err))
		return
	}
	if len(due) == 0 {
		return
	}

	p := pool.New().WithMaxGoroutines(4)
	for _, action := range due {
		p.Go(func() {
			s.runAction(ctx, exec, action)
		})
	}
	p.Wait()
}

func (s *Scheduler) runAction(ctx context.Context, exec Executor, action model.TimedAction) {
	claimed, err := store.ClaimAction(s.db, action.ID)
	if err != nil {
		s.logger.Error("failed to claim action", zap.String("id", action.ID), zap.Error(err))
		return
	}
	if !claimed {
		return
	}

	execErr := exec.ExecuteTimedAction(ctx, action)
	if execErr == nil {
		s.logger.Info("executed timed action",
			zap.String("id", action.ID),
			zap.String("kind", string(action.Kind)),
			zap.String("user_id", action.UserID))
		return
	}

	action.Attempts++
	if action.Attempts >= s.maxAttempts {
		s.logger.Error("timed action exhausted retries, parking in dead letters",
			zap.String("id", action.ID),
			zap.String("kind", string(action.Kind)),
			zap.String("user_id", action.UserID),
			zap.Int("attempts", action.Attempts),
			zap.Error(execErr))
		if err := store.ParkAction(s.db, action, execErr.Error()); err != nil {
			s.logger.Error("failed to park action", zap.String("id", action.ID), zap.Error(err))
		}
		return
	}

	s.logger.Warn("timed action failed, will retry next sweep",
		zap.String("id", action.ID),
		zap.String("kind", string(action.Kind)),
		zap.Int("attempts", action.Attempts),
		zap.Error(execErr))
	if err := store.AddTimedAction(s.db, action); err != nil {
		s.logger.Error("failed to requeue action", zap.String("id", action.ID), zap.Error(err))
	}
}

package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"modguard/model"
	"modguard/store"
	"modguard/utils"
)

// History returns a user's history entries, most recent last.
func (e *Engine) History(guildID, userID string) ([]model.HistoryEntry, error) {
	return store.GetHistory(e.db, guildID, userID)
}

// ViolationCount returns a user's current violation count.
func (e *Engine) ViolationCount(guildID, userID string) (int, error) {
	return store.GetCount(e.db, guildID, userID)
}

// ClearHistory resets the user's violation count, records the clear as an
// audit entry, cancels any pending automatic unmute and lifts an active mute.
func (e *Engine) ClearHistory(ctx context.Context, guildID, userID, actorID string) error {
	key := userKey(guildID, userID)
	caseID := utils.GenerateCaseID()

	e.locks.Lock(key)
	err := store.ClearHistory(e.db, guildID, userID, actorID, caseID)
	e.locks.Unlock(key)
	if err != nil {
		return fmt.Errorf("clear history for user %s: %w", userID, err)
	}

	if _, err := e.sched.CancelFor(guildID, userID, model.KindUnmute); err != nil {
		e.logger.Warn("failed to cancel pending unmute on clear",
			zap.String("user_id", userID), zap.Error(err))
	}

	// Best effort: a clear that drops the count below the mute threshold
	// lifts the mute immediately. Not being muted is not an error.
	if err := e.enf.Unmute(ctx, guildID, userID); err != nil && !errors.Is(err, model.ErrNotFound) {
		e.logger.Warn("failed to lift mute after history clear",
			zap.String("user_id", userID), zap.Error(err))
	}

	e.logger.Info("history cleared",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("actor_id", actorID),
		zap.String("case_id", caseID))
	e.audit(ctx, fmt.Sprintf("History of <@%s> cleared by <@%s> (case %s)", userID, actorID, caseID))
	return nil
}

// ManualUnmute lifts a mute on operator request and cancels the pending
// automatic unmute. No error when none is pending.
func (e *Engine) ManualUnmute(ctx context.Context, guildID, userID string) error {
	if _, err := e.sched.CancelFor(guildID, userID, model.KindUnmute); err != nil {
		return err
	}
	if err := e.enf.Unmute(ctx, guildID, userID); err != nil {
		return fmt.Errorf("unmute user %s: %w", userID, errors.Join(model.ErrPrimitive, err))
	}
	e.audit(ctx, fmt.Sprintf("User <@%s> manually unmuted", userID))
	return nil
}
